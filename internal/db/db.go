// Package db opens the store, applies the schema and seeds reference rows.
package db

import (
	"fmt"
	"regexp"
	"time"

	"github.com/diewo77/recoup/internal/config"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const connectAttempts = 10

var passwordRegex = regexp.MustCompile(`(password=)([^\s]+)`)

// MaskDSN hides the password of a key=value DSN for logging.
func MaskDSN(dsn string) string {
	return passwordRegex.ReplaceAllString(dsn, `${1}***`)
}

// Dialector returns the gorm dialector for the configured driver.
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres":
		return postgres.Open(cfg.DSN()), nil
	case "sqlite":
		return sqlite.Open(SQLiteDSN(cfg.SQLitePath)), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

// SQLiteDSN turns a file path into a DSN with foreign keys enforced.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_foreign_keys=1"
}

// Connect opens the store, retrying while postgres starts up.
func Connect(cfg config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	if cfg.Driver == "postgres" {
		log.Info().Str("dsn", MaskDSN(cfg.DSN())).Msg("connecting to database")
	} else {
		log.Info().Str("path", cfg.SQLitePath).Msg("opening sqlite database")
	}

	var db *gorm.DB
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("database connection failed, retrying")
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	return db, nil
}
