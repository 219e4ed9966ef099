package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "SERVICE_POOLS", "DB_SEED", "APP_ENV", "FINANCIAL_YEAR_ID"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Driver = %q", cfg.Database.Driver)
	}
	if got := strings.Join(cfg.App.ServicePools, "|"); got != "End User|IT Platform" {
		t.Errorf("ServicePools = %q", got)
	}
	if !cfg.App.Seed || !cfg.App.Dev() {
		t.Errorf("App = %+v", cfg.App)
	}
	if cfg.App.FinancialYearID != 0 {
		t.Errorf("FinancialYearID = %d", cfg.App.FinancialYearID)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("SERVICE_POOLS", " Desktop , ,Network")
	t.Setenv("FINANCIAL_YEAR_ID", "7")
	t.Setenv("DB_DEBUG", "yes")
	t.Setenv("APP_ENV", "production")

	cfg := Load()
	if cfg.Database.Driver != "sqlite" || cfg.Database.SQLitePath != "/tmp/x.db" || !cfg.Database.Debug {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if got := strings.Join(cfg.App.ServicePools, "|"); got != "Desktop|Network" {
		t.Errorf("ServicePools = %q", got)
	}
	if cfg.App.FinancialYearID != 7 {
		t.Errorf("FinancialYearID = %d", cfg.App.FinancialYearID)
	}
	if cfg.App.Dev() {
		t.Error("production reported as dev")
	}
}

func TestValidateReportsEveryError(t *testing.T) {
	cfg := Load()
	cfg.Server.Port = "http"
	cfg.Server.ReadTimeout = 0
	cfg.Database.Driver = "mysql"
	cfg.App.LogLevel = "loud"
	cfg.App.ServicePools = nil
	cfg.App.FinancialYearID = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"PORT", "SERVER_READ_TIMEOUT", "DB_DRIVER", "LOG_LEVEL", "SERVICE_POOLS", "FINANCIAL_YEAR_ID"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	if got := d.DSN(); got != "host=db port=5433 user=u password=p dbname=n sslmode=disable" {
		t.Errorf("DSN() = %q", got)
	}
	if got := d.URL(); got != "postgres://u:p@db:5433/n?sslmode=disable" {
		t.Errorf("URL() = %q", got)
	}
}

func TestNegativeFinancialYearRejected(t *testing.T) {
	t.Setenv("FINANCIAL_YEAR_ID", "-3")
	cfg := Load()
	if cfg.App.FinancialYearID != -3 {
		t.Fatalf("FinancialYearID = %d", cfg.App.FinancialYearID)
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "FINANCIAL_YEAR_ID") {
		t.Fatalf("Validate() = %v, want FINANCIAL_YEAR_ID error", err)
	}
}
