package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/recoup/internal/config"
	"github.com/diewo77/recoup/internal/db"
	"github.com/diewo77/recoup/internal/logger"
	"github.com/diewo77/recoup/internal/services"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var (
	migrateOnlyFlag  = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag     = flag.Bool("seed-only", false, "Run DB seed and exit")
	loadFixturesFlag = flag.String("load-fixtures", "", "Load a JSON fixture file into an empty database and exit")
	dumpFixturesFlag = flag.String("dump-fixtures", "", "Dump the database to a JSON fixture file and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, cfg.App.LogLevel)

	dbConn, err := db.Connect(cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if *migrateOnlyFlag {
		runMigrate(dbConn, cfg, log)
		log.Info().Msg("migrations completed successfully")
		return
	}

	if *seedOnlyFlag {
		runSeed(dbConn, cfg, log)
		return
	}

	if *dumpFixturesFlag != "" {
		if err := dumpFixtures(dbConn, *dumpFixturesFlag); err != nil {
			log.Fatal().Err(err).Str("file", *dumpFixturesFlag).Msg("fixture dump failed")
		}
		log.Info().Str("file", *dumpFixturesFlag).Msg("fixtures dumped")
		return
	}

	if *loadFixturesFlag != "" {
		runMigrate(dbConn, cfg, log)
		if err := loadFixtures(dbConn, *loadFixturesFlag); err != nil {
			log.Fatal().Err(err).Str("file", *loadFixturesFlag).Msg("fixture load failed")
		}
		log.Info().Str("file", *loadFixturesFlag).Msg("fixtures loaded")
		return
	}

	runMigrate(dbConn, cfg, log)
	if cfg.App.Seed {
		runSeed(dbConn, cfg, log)
	}

	appHandler := NewApp(dbConn, cfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      withLogging(log, appHandler),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("env", cfg.App.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("server stopped gracefully")
}

// runMigrate applies the schema, through SQL migrations when MIGRATIONS is set.
func runMigrate(dbConn *gorm.DB, cfg *config.Config, log zerolog.Logger) {
	sqlURL := ""
	if cfg.App.Migrations {
		sqlURL = cfg.Database.URL()
	}
	if err := db.Migrate(dbConn, sqlURL); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Bool("sql", sqlURL != "").Msg("migrations completed")
}

func runSeed(dbConn *gorm.DB, cfg *config.Config, log zerolog.Logger) {
	n, err := db.Seed(dbConn, cfg.App.ServicePools)
	if err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}
	log.Info().Int("created", n).Strs("service_pools", cfg.App.ServicePools).Msg("seeding completed")
}

func dumpFixtures(dbConn *gorm.DB, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return services.NewFixtureService(dbConn).Dump(context.Background(), f)
}

func loadFixtures(dbConn *gorm.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return services.NewFixtureService(dbConn).Load(context.Background(), f)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging tags each request with an id and logs it once served.
func withLogging(log zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		reqLog := log.With().Str("request_id", id).Logger()
		w.Header().Set("X-Request-ID", id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(reqLog.WithContext(r.Context())))

		reqLog.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
