package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/leaplineadmin/brevy-sub002/internal/database"
	"github.com/leaplineadmin/brevy-sub002/internal/errcode"
	"github.com/leaplineadmin/brevy-sub002/internal/pdf"
	"github.com/leaplineadmin/brevy-sub002/internal/storage"
	"github.com/leaplineadmin/brevy-sub002/internal/tasks"
)

// PDFExportHandler consumes pdf:export tasks. It fetches the print document
// from the API, prints it in a headless browser, stores the result and tells
// the owner through the notification channel.
type PDFExportHandler struct {
	db              *gorm.DB
	storage         *storage.Client
	redisClient     *redis.Client
	logger          *slog.Logger
	internalSecret  string
	internalBaseURL string
}

func NewPDFExportHandler(
	db *gorm.DB,
	storageClient *storage.Client,
	redisClient *redis.Client,
	logger *slog.Logger,
	internalSecret string,
	internalBaseURL string,
) *PDFExportHandler {
	return &PDFExportHandler{
		db:              db,
		storage:         storageClient,
		redisClient:     redisClient,
		logger:          logger,
		internalSecret:  internalSecret,
		internalBaseURL: strings.TrimRight(strings.TrimSpace(internalBaseURL), "/"),
	}
}

// ProcessTask implements asynq.Handler.
func (h *PDFExportHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.PDFExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("cv_id", int(payload.CVID)),
	)
	log.Info("starting pdf export task")

	var cv database.CV
	if err := h.db.WithContext(ctx).First(&cv, payload.CVID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("cv not found, skipping task")
			return nil
		}
		log.Error("query cv failed", slog.Any("error", err))
		return err
	}

	log = log.With(slog.Uint64("user_id", uint64(cv.UserID)))

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}

		notify := ExportNotifyMessage{
			Status:        notifyStatusError,
			CVID:          cv.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := publishExportNotify(ctx, h.redisClient, cv.UserID, notify); err != nil {
			log.Error("publish export error notification failed", slog.Any("error", err))
		}
	}()

	htmlContent, err := fetchPrintHTML(ctx, h.internalBaseURL, cv.ID, h.internalSecret)
	if err != nil {
		log.Error("fetch print document failed", slog.Any("error", err))
		return err
	}

	pdfBytes, err := pdf.GenerateFromHTML(htmlContent)
	if err != nil {
		log.Error("generate pdf failed", slog.Any("error", err))
		return err
	}

	objectName := storage.PDFKey(cv.UserID, cv.ID)
	reader := bytes.NewReader(pdfBytes)
	if _, err := h.storage.UploadFile(ctx, objectName, reader, int64(len(pdfBytes)), "application/pdf"); err != nil {
		log.Error("upload pdf failed", slog.Any("error", err))
		return err
	}

	if err := h.db.WithContext(ctx).Model(&cv).Update("pdf_object_key", objectName).Error; err != nil {
		log.Error("update cv failed", slog.Any("error", err))
		return fmt.Errorf("update cv %d: %w", cv.ID, err)
	}

	notify := ExportNotifyMessage{
		Status:        notifyStatusCompleted,
		CVID:          cv.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if err := publishExportNotify(ctx, h.redisClient, cv.UserID, notify); err != nil {
		log.Error("publish export notification failed", slog.Any("error", err))
	}

	log.Info("pdf export completed", slog.String("object_key", objectName), slog.Int("size", len(pdfBytes)))
	return nil
}
