package config

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"alfredoptarigan/jd-matcher/internal/logger"
	"alfredoptarigan/jd-matcher/internal/models"
)

func InitDatabase(cfg *Config, log *logger.Logger) (*gorm.DB, error) {
	dsn := cfg.GetDatabaseDSN()

	logLevel := gormlogger.Silent
	if cfg.Server.Env == "development" {
		logLevel = gormlogger.Info
	}

	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("Database connected", "driver", cfg.Database.Driver)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("Database migration completed")

	return db, nil
}

// Migrate creates or updates the schema. Parents are migrated before the
// tables that reference them.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Job{},
		&models.Candidate{},
		&models.Analysis{},
		&models.CandidateAnalysis{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
