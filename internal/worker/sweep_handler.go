package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"github.com/leaplineadmin/brevy-sub002/internal/database"
	"github.com/leaplineadmin/brevy-sub002/internal/draft"
	"github.com/leaplineadmin/brevy-sub002/internal/storage"
	"github.com/leaplineadmin/brevy-sub002/internal/tasks"
)

// objectPurger is the slice of the storage client the purge needs.
type objectPurger interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

// taskEnqueuer is the slice of the asynq client the scan needs.
type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// SweepHandler runs the housekeeping tasks: expired-draft removal and the
// delayed account purge that completes a deletion request.
type SweepHandler struct {
	db          *gorm.DB
	drafts      *draft.Service
	storage     objectPurger
	asynqClient taskEnqueuer
	logger      *slog.Logger
}

func NewSweepHandler(
	db *gorm.DB,
	drafts *draft.Service,
	storageClient objectPurger,
	asynqClient taskEnqueuer,
	logger *slog.Logger,
) *SweepHandler {
	return &SweepHandler{
		db:          db,
		drafts:      drafts,
		storage:     storageClient,
		asynqClient: asynqClient,
		logger:      logger,
	}
}

// HandleDraftSweep removes every draft past its expiry.
func (h *SweepHandler) HandleDraftSweep(ctx context.Context, _ *asynq.Task) error {
	removed, err := h.drafts.SweepExpired(ctx)
	if err != nil {
		h.logger.Error("draft sweep failed", slog.Any("error", err))
		return err
	}
	if removed > 0 {
		h.logger.Info("draft sweep completed", slog.Int64("removed", removed))
	}
	return nil
}

// HandleAccountPurge serves the account:purge task in both of its forms. An
// empty payload is the periodic scan that enqueues one purge task per account
// whose grace period has ended; a payload names a single account to purge.
func (h *SweepHandler) HandleAccountPurge(ctx context.Context, t *asynq.Task) error {
	if len(t.Payload()) == 0 {
		return h.scanForPurge(ctx)
	}

	var payload tasks.AccountPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal purge payload failed", slog.Any("error", err))
		return err
	}
	return h.purgeAccount(ctx, payload.DeletedUserID)
}

func (h *SweepHandler) scanForPurge(ctx context.Context) error {
	var due []database.DeletedUser
	err := h.db.WithContext(ctx).
		Where("purge_after <= ?", time.Now()).
		Find(&due).Error
	if err != nil {
		h.logger.Error("purge scan query failed", slog.Any("error", err))
		return err
	}

	for _, marker := range due {
		task, err := tasks.NewAccountPurgeTask(marker.ID)
		if err != nil {
			return fmt.Errorf("build purge task for %d: %w", marker.ID, err)
		}
		if _, err := h.asynqClient.EnqueueContext(ctx, task); err != nil {
			h.logger.Error("enqueue purge task failed",
				slog.Uint64("deleted_user_id", uint64(marker.ID)), slog.Any("error", err))
			return err
		}
	}

	if len(due) > 0 {
		h.logger.Info("purge scan completed", slog.Int("due", len(due)))
	}
	return nil
}

// purgeAccount hard-deletes everything the retired account left behind:
// database rows first, then the object storage prefix, then the marker.
func (h *SweepHandler) purgeAccount(ctx context.Context, deletedUserID uint) error {
	log := h.logger.With(slog.Uint64("deleted_user_id", uint64(deletedUserID)))

	var marker database.DeletedUser
	if err := h.db.WithContext(ctx).First(&marker, deletedUserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("purge marker not found, skipping task")
			return nil
		}
		log.Error("query purge marker failed", slog.Any("error", err))
		return err
	}

	userID := marker.OriginalUserID
	log = log.With(slog.Uint64("user_id", uint64(userID)))

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("user_id = ?", userID).Delete(&database.CV{}).Error; err != nil {
			return fmt.Errorf("purge cvs: %w", err)
		}
		if err := tx.Unscoped().Where("user_id = ?", userID).Delete(&database.CVDraft{}).Error; err != nil {
			return fmt.Errorf("purge drafts: %w", err)
		}
		if err := tx.Unscoped().Where("id = ?", userID).Delete(&database.User{}).Error; err != nil {
			return fmt.Errorf("purge user: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error("purge transaction failed", slog.Any("error", err))
		return err
	}

	if err := h.storage.DeletePrefix(ctx, storage.UserPrefix(userID)); err != nil {
		log.Error("purge storage prefix failed", slog.Any("error", err))
		return err
	}

	if err := h.db.WithContext(ctx).Unscoped().Delete(&marker).Error; err != nil {
		log.Error("delete purge marker failed", slog.Any("error", err))
		return err
	}

	log.Info("account purge completed")
	return nil
}
