package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"github.com/leaplineadmin/brevy-sub002/internal/api/middleware"
	"github.com/leaplineadmin/brevy-sub002/internal/database"
	"github.com/leaplineadmin/brevy-sub002/internal/mailer"
	"github.com/leaplineadmin/brevy-sub002/internal/tasks"
)

// PurgeGraceDays is how long deleted account data survives before the worker
// erases it for good.
const PurgeGraceDays = 30

// AccountHandler covers the GDPR surface: data export and account deletion.
type AccountHandler struct {
	db          *gorm.DB
	asynqClient *asynq.Client
}

func NewAccountHandler(db *gorm.DB, asynqClient *asynq.Client) *AccountHandler {
	return &AccountHandler{db: db, asynqClient: asynqClient}
}

type accountExport struct {
	ExportedAt time.Time          `json:"exported_at"`
	Account    accountExportUser  `json:"account"`
	CVs        []database.CV      `json:"cvs"`
	Drafts     []database.CVDraft `json:"drafts"`
}

type accountExportUser struct {
	Email              string     `json:"email"`
	Username           string     `json:"username"`
	Language           string     `json:"language"`
	CreatedAt          time.Time  `json:"created_at"`
	ConsentAt          *time.Time `json:"consent_at,omitempty"`
	MarketingConsentAt *time.Time `json:"marketing_consent_at,omitempty"`
	ActiveSubscription bool       `json:"active_subscription"`
}

// Export returns every row the user owns as a JSON download.
func (h *AccountHandler) Export(c *gin.Context) {
	userID := c.GetUint("userID")
	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		logger.Error("export: load user failed", slog.Any("error", err))
		Internal(c, "could not export account")
		return
	}

	var cvs []database.CV
	if err := h.db.WithContext(ctx).Where("user_id = ?", userID).Find(&cvs).Error; err != nil {
		logger.Error("export: load cvs failed", slog.Any("error", err))
		Internal(c, "could not export account")
		return
	}

	var drafts []database.CVDraft
	if err := h.db.WithContext(ctx).Where("user_id = ?", userID).Find(&drafts).Error; err != nil {
		logger.Error("export: load drafts failed", slog.Any("error", err))
		Internal(c, "could not export account")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="account-export.json"`)
	c.JSON(http.StatusOK, accountExport{
		ExportedAt: time.Now().UTC(),
		Account: accountExportUser{
			Email:              user.Email,
			Username:           user.Username,
			Language:           user.Language,
			CreatedAt:          user.CreatedAt,
			ConsentAt:          user.ConsentAt,
			MarketingConsentAt: user.MarketingConsentAt,
			ActiveSubscription: user.HasActiveSubscription,
		},
		CVs:    cvs,
		Drafts: drafts,
	})
}

// Delete retires the account: the user row and all CVs are soft-deleted at
// once, a DeletedUser marker schedules the hard purge after the grace period.
func (h *AccountHandler) Delete(c *gin.Context) {
	userID := c.GetUint("userID")
	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		logger.Error("delete account: load user failed", slog.Any("error", err))
		Internal(c, "could not delete account")
		return
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		marker := database.DeletedUser{
			OriginalUserID: user.ID,
			Email:          user.Email,
			PurgeAfter:     time.Now().AddDate(0, 0, PurgeGraceDays),
		}
		if err := tx.Create(&marker).Error; err != nil {
			return err
		}

		// Published CVs go offline and release their subdomains immediately.
		if err := tx.Model(&database.CV{}).
			Where("user_id = ?", user.ID).
			Updates(map[string]any{"published": false, "subdomain": nil}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&database.CV{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		logger.Error("delete account failed", slog.Any("error", err))
		Internal(c, "could not delete account")
		return
	}

	if h.asynqClient != nil {
		subject, html := mailer.AccountDeleted(user.Language, PurgeGraceDays)
		task, err := tasks.NewEmailSendTask(tasks.EmailSendPayload{
			To:            user.Email,
			Template:      "account_deleted",
			Language:      user.Language,
			Subject:       subject,
			HTML:          html,
			CorrelationID: middleware.GetCorrelationID(c),
		})
		if err == nil {
			if _, err := h.asynqClient.Enqueue(task); err != nil {
				logger.Error("enqueue deletion email failed", slog.Any("error", err))
			}
		}
	}

	logger.Info("account deleted", slog.Uint64("user_id", uint64(user.ID)))
	c.Status(http.StatusNoContent)
}
