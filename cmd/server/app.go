package main

import (
	"net/http"

	"github.com/diewo77/recoup/httpx"
	"github.com/diewo77/recoup/internal/config"
	"github.com/diewo77/recoup/internal/handlers"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux *http.ServeMux
	db  *gorm.DB
	h   *handlers.Handlers
}

// NewApp creates a new application with all routes configured.
func NewApp(db *gorm.DB, cfg *config.Config) *App {
	app := &App{
		mux: http.NewServeMux(),
		db:  db,
		h:   handlers.New(db, uint(cfg.App.FinancialYearID)),
	}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	a.mux.HandleFunc("GET /health", a.health)
	a.mux.HandleFunc("GET /healthz", a.health)
	a.h.Register(a.mux)
}

// health reports whether the database answers.
func (a *App) health(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		httpx.JSONError(w, http.StatusServiceUnavailable, "database_unavailable", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
