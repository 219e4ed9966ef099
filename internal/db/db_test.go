package db

import (
	"testing"

	"github.com/diewo77/recoup/internal/config"
	"github.com/diewo77/recoup/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	d, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := Migrate(d, ""); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d
}

func TestSeedIdempotent(t *testing.T) {
	d := setupTestDB(t)
	pools := []string{"End User", "IT Platform", " "}

	n, err := Seed(d, pools)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("first seed created %d pools, want 2", n)
	}
	n, err = Seed(d, pools)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("second seed created %d pools, want 0", n)
	}
	var count int64
	d.Model(&models.ServicePool{}).Count(&count)
	if count != 2 {
		t.Fatalf("expected 2 service pools got %d", count)
	}
}

func TestMigrateCreatesEveryTable(t *testing.T) {
	d := setupTestDB(t)
	for _, table := range requiredTables {
		if !d.Migrator().HasTable(table) {
			t.Errorf("missing table %s", table)
		}
	}
	// A second run is a no-op.
	if err := Migrate(d, ""); err != nil {
		t.Fatalf("re-migrate: %v", err)
	}
}

func TestConnectSQLite(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: "sqlite", SQLitePath: t.TempDir() + "/recoup.db"}
	d, err := Connect(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := Migrate(d, ""); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
}

func TestDialectorUnknownDriver(t *testing.T) {
	if _, err := Dialector(config.DatabaseConfig{Driver: "mysql"}); err == nil {
		t.Error("unknown driver accepted")
	}
}

func TestMaskDSN(t *testing.T) {
	got := MaskDSN("host=db user=u password=secret dbname=n")
	if got != "host=db user=u password=*** dbname=n" {
		t.Errorf("MaskDSN() = %q", got)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	for _, name := range []string{"migrations/000001_init.up.sql", "migrations/000001_init.down.sql"} {
		data, err := migrationFiles.ReadFile(name)
		if err != nil || len(data) == 0 {
			t.Errorf("%s not embedded: %v", name, err)
		}
	}
}
