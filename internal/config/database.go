package config

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"learnpath/interview-api/internal/models"
)

// pendingIndexSQL backs the one-pending-interview-per-(course, user) rule.
// Partial unique indexes are supported by both Postgres and SQLite.
const pendingIndexSQL = `CREATE UNIQUE INDEX IF NOT EXISTS ux_interviews_pending
ON interviews (course_id, user_id) WHERE status = 'pending'`

func InitDatabase(cfg *Config, gormLogger logger.Interface) (*gorm.DB, error) {
	dsn := cfg.GetDatabaseDSN()

	logLevel := logger.Warn
	if cfg.Server.Env == "development" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates the schema. Tests run it against SQLite.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Course{},
		&models.Interview{},
		&models.Feedback{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := db.Exec(pendingIndexSQL).Error; err != nil {
		return fmt.Errorf("failed to create pending interview index: %w", err)
	}

	return nil
}
