package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/myxmaster/zeus/db/migrations"
	"github.com/myxmaster/zeus/logger"
)

func NewDB(uri string, logDBQueries bool) (*gorm.DB, error) {
	// sqlite pragmas to play nicely with concurrent readers
	if !strings.Contains(uri, "?") {
		uri = uri + "?_busy_timeout=5000&_journal_mode=WAL"
	}

	gormConfig := &gorm.Config{
		TranslateError: true,
	}
	if logDBQueries {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	gormDB, err := gorm.Open(sqlite.Open(uri), gormConfig)
	if err != nil {
		return nil, err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	err = migrations.Migrate(gormDB)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to migrate database")
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return gormDB, nil
}

func Stop(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
