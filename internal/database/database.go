package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/leaplineadmin/brevy-sub002/internal/config"
)

// InitDatabase opens the PostgreSQL connection and returns the GORM instance.
func InitDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap db: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// Migrate runs AutoMigrate for all models and creates the partial unique
// indexes AutoMigrate cannot express:
//   - one live draft per content hash
//   - one published CV per subdomain
//
// Both statements are valid on PostgreSQL and SQLite (tests).
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}, &CV{}, &CVDraft{}, &DeletedUser{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_live_draft_hash
			ON cv_drafts (content_hash)
			WHERE status IN ('draft', 'claimed') AND deleted_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_cv_subdomain
			ON cvs (subdomain)
			WHERE subdomain IS NOT NULL AND deleted_at IS NULL`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}
