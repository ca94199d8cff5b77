package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/leaplineadmin/brevy-sub002/internal/config"
	"github.com/leaplineadmin/brevy-sub002/internal/database"
	"github.com/leaplineadmin/brevy-sub002/internal/draft"
	"github.com/leaplineadmin/brevy-sub002/internal/mailer"
	"github.com/leaplineadmin/brevy-sub002/internal/metrics"
	"github.com/leaplineadmin/brevy-sub002/internal/storage"
	"github.com/leaplineadmin/brevy-sub002/internal/tasks"
	"github.com/leaplineadmin/brevy-sub002/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr()}
	asynqClient := asynq.NewClient(redisOpt)
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
	})

	draftService := draft.NewService(db, cfg.Draft.TTL)
	pdfHandler := worker.NewPDFExportHandler(
		db, storageClient, redisClient, logger,
		cfg.API.InternalSecret, cfg.API.InternalBaseURL,
	)
	sweepHandler := worker.NewSweepHandler(db, draftService, storageClient, asynqClient, logger)
	emailHandler := worker.NewEmailHandler(mailer.NewClient(cfg.Resend), logger)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMiddleware())
	mux.Handle(tasks.TypePDFExport, pdfHandler)
	mux.HandleFunc(tasks.TypeDraftSweep, sweepHandler.HandleDraftSweep)
	mux.HandleFunc(tasks.TypeAccountPurge, sweepHandler.HandleAccountPurge)
	mux.Handle(tasks.TypeEmailSend, emailHandler)

	scheduler := asynq.NewScheduler(redisOpt, nil)
	sweepSpec := fmt.Sprintf("@every %s", cfg.Draft.SweepInterval)
	if _, err := scheduler.Register(sweepSpec, tasks.NewDraftSweepTask()); err != nil {
		log.Fatalf("register draft sweep: %v", err)
	}
	if _, err := scheduler.Register("@every 1h", tasks.NewAccountPurgeScanTask()); err != nil {
		log.Fatalf("register purge scan: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("start scheduler: %v", err)
	}
	defer scheduler.Shutdown()

	logger.Info("worker service started", slog.String("redis_addr", cfg.Redis.Addr()))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
