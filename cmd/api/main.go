package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/leaplineadmin/brevy-sub002/internal/api"
	"github.com/leaplineadmin/brevy-sub002/internal/auth"
	"github.com/leaplineadmin/brevy-sub002/internal/billing"
	"github.com/leaplineadmin/brevy-sub002/internal/config"
	"github.com/leaplineadmin/brevy-sub002/internal/database"
	"github.com/leaplineadmin/brevy-sub002/internal/draft"
	"github.com/leaplineadmin/brevy-sub002/internal/geoip"
	"github.com/leaplineadmin/brevy-sub002/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	logger.Info("database ready",
		slog.String("host", cfg.Database.Host), slog.String("name", cfg.Database.Name))

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	authService, err := auth.NewAuthService(
		[]byte(cfg.Auth.PrivateKeyPEM),
		[]byte(cfg.Auth.PublicKeyPEM),
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	deps := api.Deps{
		Config:       cfg,
		DB:           db,
		Redis:        redisClient,
		AsynqClient:  asynqClient,
		AuthService:  authService,
		Storage:      storageClient,
		Billing:      billing.NewClient(cfg.Stripe),
		GeoIP:        geoip.NewClient(cfg.GeoIP, redisClient),
		DraftService: draft.NewService(db, cfg.Draft.TTL),
		Logger:       logger,
	}

	router := api.NewRouter()
	api.RegisterRoutes(router, deps)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("address", address))
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
