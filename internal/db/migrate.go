package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/diewo77/recoup/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// Registers the postgres driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

var requiredTables = []string{
	"financial_years", "contracts", "bills", "service_pools",
	"end_user_costs", "it_platform_costs", "end_user_services",
	"end_user_service_divisions", "divisions", "platforms",
	"it_systems", "system_dependencies",
}

// Migrate applies the schema. With sqlURL set the embedded SQL migrations
// run through golang-migrate; otherwise gorm AutoMigrate builds the tables.
func Migrate(db *gorm.DB, sqlURL string) error {
	if sqlURL != "" {
		if err := runSQLMigrations(sqlURL); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else if err := db.AutoMigrate(models.All()...); err != nil {
		// One call lets gorm order the tables by their references.
		return fmt.Errorf("automigrate: %w", err)
	}
	for _, table := range requiredTables {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// runSQLMigrations executes the embedded migrations against a postgres URL.
func runSQLMigrations(url string) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return err
	}
	defer m.Close()
	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
