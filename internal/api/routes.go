package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/leaplineadmin/brevy-sub002/internal/api/middleware"
	"github.com/leaplineadmin/brevy-sub002/internal/auth"
	"github.com/leaplineadmin/brevy-sub002/internal/billing"
	"github.com/leaplineadmin/brevy-sub002/internal/config"
	"github.com/leaplineadmin/brevy-sub002/internal/draft"
	"github.com/leaplineadmin/brevy-sub002/internal/geoip"
	"github.com/leaplineadmin/brevy-sub002/internal/render"
	"github.com/leaplineadmin/brevy-sub002/internal/storage"
)

// Deps bundles everything the route tree needs.
type Deps struct {
	Config       *config.Config
	DB           *gorm.DB
	Redis        *redis.Client
	AsynqClient  *asynq.Client
	AuthService  *auth.AuthService
	Storage      *storage.Client
	Billing      *billing.Client
	GeoIP        *geoip.Client
	DraftService *draft.Service
	Logger       *slog.Logger
}

// RegisterRoutes mounts the full /v1 API.
func RegisterRoutes(router *gin.Engine, d Deps) {
	router.Use(middleware.CorrelationIDMiddleware(), middleware.SlogLoggerMiddleware(d.Logger))

	renderer := render.NewRenderer()

	draftHandler := NewDraftHandler(d.DraftService, d.DB, d.Config.API.FreeCVLimit)
	cvHandler := NewCVHandler(d.DB, d.Config.API.FreeCVLimit)
	previewHandler := NewPreviewHandler(d.DB, renderer, d.Storage)
	assetHandler := NewAssetHandler(d.DB, d.Storage, d.AsynqClient, d.Logger, d.Config.Clamd.Addr)
	authHandler := NewAuthHandler(
		d.DB, d.AuthService, d.Redis, d.Logger, d.AsynqClient, d.GeoIP, d.DraftService,
		d.Config.API.CookieDomain, d.Config.API.PublicBaseURL,
	)
	accountHandler := NewAccountHandler(d.DB, d.AsynqClient)
	billingHandler := NewBillingHandler(d.DB, d.Billing, d.Config.Stripe.WebhookSecret, d.Config.API.PublicBaseURL)
	wsHandler := NewWsHandler(d.Redis, d.AuthService, d.Logger, nil)

	authMiddleware := middleware.AuthMiddleware(d.AuthService)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)
		v1.GET("/templates", ListTemplates)

		draftGroup := v1.Group("/drafts")
		{
			draftGroup.POST("", draftHandler.CreateDraft)
			draftGroup.GET("/:id", draftHandler.GetDraft)
			draftGroup.POST("/:id/claim", authMiddleware, draftHandler.ClaimDraft)
			draftGroup.POST("/:id/convert", authMiddleware, draftHandler.ConvertDraft)
		}

		cvGroup := v1.Group("/cvs")
		cvGroup.Use(authMiddleware)
		{
			cvGroup.GET("", cvHandler.ListCVs)
			cvGroup.POST("", cvHandler.CreateCV)
			cvGroup.GET("/:id", cvHandler.GetCV)
			cvGroup.PUT("/:id", cvHandler.UpdateCV)
			cvGroup.DELETE("/:id", cvHandler.DeleteCV)
			cvGroup.POST("/:id/publish", cvHandler.PublishCV)
			cvGroup.POST("/:id/unpublish", cvHandler.UnpublishCV)
			cvGroup.GET("/:id/preview", previewHandler.Preview)
			cvGroup.POST("/:id/photo", assetHandler.UploadPhoto)
			cvGroup.POST("/:id/export", assetHandler.RequestExport)
			cvGroup.GET("/:id/export-link", assetHandler.ExportLink)
		}

		v1.GET("/subdomains/check", cvHandler.CheckSubdomain)
		v1.GET("/public/cvs/:subdomain", cvHandler.PublicCV)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authHandler.Logout)
			authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
			authGroup.POST("/password-reset/request", authHandler.RequestPasswordReset)
			authGroup.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset)
		}

		accountGroup := v1.Group("/account")
		accountGroup.Use(authMiddleware)
		{
			accountGroup.GET("/export", accountHandler.Export)
			accountGroup.DELETE("", accountHandler.Delete)
		}

		billingGroup := v1.Group("/billing")
		{
			billingGroup.POST("/checkout", authMiddleware, billingHandler.Checkout)
			billingGroup.POST("/cancel", authMiddleware, billingHandler.Cancel)
			billingGroup.POST("/webhook", billingHandler.Webhook)
		}
	}

	internal := router.Group("/internal")
	internal.Use(middleware.InternalSecretMiddleware(d.Config.API.InternalSecret))
	{
		internal.GET("/cvs/:id/print", previewHandler.Print)
	}
}
