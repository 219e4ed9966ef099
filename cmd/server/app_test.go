package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diewo77/recoup/internal/config"
	"github.com/diewo77/recoup/internal/db"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupApp(t *testing.T) (*App, *gorm.DB) {
	t.Helper()
	d, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Migrate(d, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Seed(d, []string{"End User", "IT Platform"}); err != nil {
		t.Fatal(err)
	}
	return NewApp(d, config.Load()), d
}

func TestHealth(t *testing.T) {
	app, _ := setupApp(t)
	for _, p := range []string{"/health", "/healthz"} {
		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d", p, w.Code)
		}
	}
}

func TestRequestLogging(t *testing.T) {
	app, _ := setupApp(t)
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	h := withLogging(log, app)

	req := httptest.NewRequest(http.MethodGet, "/bills/999", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") != "req-1" {
		t.Errorf("request id not echoed")
	}
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var line map[string]any
	if err := json.Unmarshal(lines[len(lines)-1], &line); err != nil {
		t.Fatalf("log line %q: %v", buf.String(), err)
	}
	if line["request_id"] != "req-1" || line["status"] != float64(404) || line["path"] != "/bills/999" {
		t.Errorf("log line = %v", line)
	}
}

func TestGeneratedRequestID(t *testing.T) {
	app, _ := setupApp(t)
	h := withLogging(zerolog.Nop(), app)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if len(w.Header().Get("X-Request-ID")) != 36 {
		t.Errorf("X-Request-ID = %q, want a uuid", w.Header().Get("X-Request-ID"))
	}
}

func TestFixtureFiles(t *testing.T) {
	app, d := setupApp(t)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/platforms", strings.NewReader(`{"name":"Cloud"}`)))
	if w.Code != http.StatusCreated {
		t.Fatalf("create platform = %d %s", w.Code, w.Body.String())
	}

	file := filepath.Join(t.TempDir(), "fixtures.json")
	if err := dumpFixtures(d, file); err != nil {
		t.Fatalf("dump: %v", err)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"name": "Cloud"`)) {
		t.Errorf("dump lacks the platform: %s", data)
	}

	dst, err := gorm.Open(sqlite.Open("file:"+t.Name()+"_dst?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Migrate(dst, ""); err != nil {
		t.Fatal(err)
	}
	if err := loadFixtures(dst, file); err != nil {
		t.Fatalf("load: %v", err)
	}
	var count int64
	dst.Table("platforms").Count(&count)
	if count != 1 {
		t.Errorf("platforms after load = %d", count)
	}
}
