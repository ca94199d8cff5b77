package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is an account record. PasswordHash is empty for OAuth-only accounts.
type User struct {
	gorm.Model
	Email                 string     `gorm:"uniqueIndex;size:255"`
	Username              string     `gorm:"uniqueIndex;size:64"`
	PasswordHash          string     `gorm:"size:255"`
	OAuthID               *string    `gorm:"size:128"`
	StripeCustomerID      string     `gorm:"size:64"`
	StripeSubscriptionID  string     `gorm:"size:64"`
	HasActiveSubscription bool       `gorm:"default:false"`
	Language              string     `gorm:"size:8;default:en"`
	ConsentAt             *time.Time ``
	MarketingConsentAt    *time.Time ``
	CVs                   []CV       `gorm:"constraint:OnDelete:CASCADE"`
}

// CV kinds. Page CVs are paginated print documents; digital CVs are a single scroll.
const (
	CVKindPage    = "page"
	CVKindDigital = "digital"
)

// CV is a saved resume owned by exactly one user.
// Invariant: Published implies a non-null Subdomain, unique across the system
// (enforced by a partial unique index, see Migrate).
type CV struct {
	gorm.Model
	Title          string         `gorm:"size:255"`
	Kind           string         `gorm:"size:16;default:page"`
	Template       string         `gorm:"size:64;default:classic"`
	AccentColor    string         `gorm:"size:16"`
	Content        datatypes.JSON `gorm:"type:jsonb"`
	Subdomain      *string        `gorm:"size:64"`
	Published      bool           `gorm:"default:false"`
	PublishedAt    *time.Time     ``
	Language       string         `gorm:"size:8;default:en"`
	PremiumLocked  bool           `gorm:"default:false"`
	PhotoObjectKey string         `gorm:"size:512"`
	PdfObjectKey   string         `gorm:"size:512"`
	UserID         uint           `gorm:"index"`
	User           User           `gorm:"constraint:OnDelete:CASCADE"`
}

// Draft status values.
const (
	DraftStatusDraft     = "draft"
	DraftStatusClaimed   = "claimed"
	DraftStatusConverted = "converted"
)

// CVDraft stages resume content created before or during authentication.
// ContentHash is unique among live rows (status draft/claimed, unexpired) so
// resubmitting identical content returns the existing draft. Converted and
// expired rows never satisfy lookups.
type CVDraft struct {
	gorm.Model
	UserID      *uint          `gorm:"index"`
	AnonID      string         `gorm:"index;size:64"`
	Payload     datatypes.JSON `gorm:"type:jsonb"`
	ContentHash string         `gorm:"index;size:64"`
	Status      string         `gorm:"size:16;default:draft"`
	ExpiresAt   time.Time      `gorm:"index"`
}

// DeletedUser is a holding record for delayed GDPR purge. The original user
// row is soft-deleted immediately; the worker removes everything after
// PurgeAfter has passed.
type DeletedUser struct {
	gorm.Model
	OriginalUserID uint      `gorm:"index"`
	Email          string    `gorm:"size:255"`
	PurgeAfter     time.Time `gorm:"index"`
}
