package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/leaplineadmin/brevy-sub002/internal/database"
)

var (
	ErrNotFound       = errors.New("draft not found")
	ErrExpired        = errors.New("draft expired")
	ErrClaimed        = errors.New("draft already claimed by another user")
	ErrConverted      = errors.New("draft already converted")
	ErrNotClaimed     = errors.New("draft is not claimed")
	ErrInvalidPayload = errors.New("invalid draft payload")
)

// Service implements the anonymous draft lifecycle: idempotent creation,
// claiming on authentication, conversion into a permanent CV, and TTL expiry.
type Service struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewService builds a Service. ttl is how long an untouched draft survives.
func NewService(db *gorm.DB, ttl time.Duration) *Service {
	return &Service{db: db, ttl: ttl}
}

// CreateOrGet returns the live draft matching the payload's content hash, or
// inserts a new one. The boolean reports whether a row was created. Two
// submissions of identical normalized content always land on the same row;
// converted and expired drafts never match.
func (s *Service) CreateOrGet(ctx context.Context, payload Payload, anonID string) (*database.CVDraft, bool, error) {
	hash, err := ContentHash(payload)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if existing, err := s.findLiveByHash(ctx, hash); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("lookup draft by hash: %w", err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, false, fmt.Errorf("marshal draft payload: %w", err)
	}

	row := database.CVDraft{
		AnonID:      strings.TrimSpace(anonID),
		Payload:     datatypes.JSON(raw),
		ContentHash: hash,
		Status:      database.DraftStatusDraft,
		ExpiresAt:   time.Now().Add(s.ttl),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		// Lost an insert race on the partial unique index: the winner's row
		// is the draft this content belongs to.
		if winner, lookupErr := s.findLiveByHash(ctx, hash); lookupErr == nil {
			return winner, false, nil
		}
		return nil, false, fmt.Errorf("create draft: %w", err)
	}

	return &row, true, nil
}

// Claim associates an unclaimed draft with an authenticated user. A repeated
// claim by the same user is a no-op; a claim on a draft owned by someone else
// fails with ErrClaimed and leaves the original claim intact.
func (s *Service) Claim(ctx context.Context, draftID, userID uint) (*database.CVDraft, error) {
	res := s.db.WithContext(ctx).
		Model(&database.CVDraft{}).
		Where("id = ? AND user_id IS NULL AND status = ? AND expires_at > ?",
			draftID, database.DraftStatusDraft, time.Now()).
		Updates(map[string]any{
			"user_id": userID,
			"status":  database.DraftStatusClaimed,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("claim draft: %w", res.Error)
	}

	var row database.CVDraft
	if err := s.db.WithContext(ctx).First(&row, draftID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reload draft: %w", err)
	}

	if res.RowsAffected > 0 {
		return &row, nil
	}

	// The conditional update matched nothing: classify why.
	switch {
	case row.ExpiresAt.Before(time.Now()):
		return nil, ErrExpired
	case row.Status == database.DraftStatusConverted:
		return nil, ErrConverted
	case row.UserID != nil && *row.UserID == userID:
		return &row, nil
	default:
		return nil, ErrClaimed
	}
}

// Convert promotes a claimed draft into a permanent CV owned by userID. The
// draft's hash never satisfies CreateOrGet again, so resubmitting identical
// content after conversion starts a fresh draft.
func (s *Service) Convert(ctx context.Context, draftID, userID uint) (*database.CV, error) {
	var cv database.CV

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row database.CVDraft
		if err := tx.Where("id = ? AND user_id = ?", draftID, userID).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load draft: %w", err)
		}
		if row.ExpiresAt.Before(time.Now()) {
			return ErrExpired
		}
		switch row.Status {
		case database.DraftStatusClaimed:
		case database.DraftStatusConverted:
			return ErrConverted
		default:
			return ErrNotClaimed
		}

		var payload Payload
		if err := json.Unmarshal(row.Payload, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}

		cv = database.CV{
			Title:       defaultString(payload.Title, "Untitled resume"),
			Kind:        defaultString(payload.Kind, database.CVKindPage),
			Template:    defaultString(payload.Template, "classic"),
			AccentColor: payload.AccentColor,
			Content:     datatypes.JSON(payload.Content),
			Language:    defaultString(payload.Language, "en"),
			UserID:      userID,
		}
		if err := tx.Create(&cv).Error; err != nil {
			return fmt.Errorf("create cv from draft: %w", err)
		}

		// Conditional transition guards against a concurrent convert.
		res := tx.Model(&database.CVDraft{}).
			Where("id = ? AND status = ?", row.ID, database.DraftStatusClaimed).
			Update("status", database.DraftStatusConverted)
		if res.Error != nil {
			return fmt.Errorf("mark draft converted: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConverted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &cv, nil
}

// Get loads a draft by ID regardless of owner; callers enforce access.
func (s *Service) Get(ctx context.Context, draftID uint) (*database.CVDraft, error) {
	var row database.CVDraft
	if err := s.db.WithContext(ctx).First(&row, draftID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load draft: %w", err)
	}
	if row.ExpiresAt.Before(time.Now()) {
		return nil, ErrExpired
	}
	return &row, nil
}

// SweepExpired hard-deletes every draft past its expiry, regardless of
// status. Idempotent; returns the number of rows removed.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Unscoped().
		Where("expires_at < ?", time.Now()).
		Delete(&database.CVDraft{})
	if res.Error != nil {
		return 0, fmt.Errorf("sweep expired drafts: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Service) findLiveByHash(ctx context.Context, hash string) (*database.CVDraft, error) {
	var row database.CVDraft
	err := s.db.WithContext(ctx).
		Where("content_hash = ? AND status IN ? AND expires_at > ?",
			hash,
			[]string{database.DraftStatusDraft, database.DraftStatusClaimed},
			time.Now()).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
