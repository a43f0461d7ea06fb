// Command server runs the media-identification backend.
//
// Startup order matters: configuration first, then logging, then tracing,
// then the cache store. A store that fails to open is logged and replaced
// with a disabled handle so the API keeps serving in always-miss mode.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-ident-backend/internal/config"
	httpapi "github.com/tbourn/go-ident-backend/internal/http"
	"github.com/tbourn/go-ident-backend/internal/observability"
	"github.com/tbourn/go-ident-backend/internal/repo"
	"github.com/tbourn/go-ident-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	sysutil.SetLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ver := sysutil.FirstNonEmpty(os.Getenv("SERVICE_VERSION"), version)
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	store := openStore(cfg)

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, store, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", ver).
			Bool("cache", store.Enabled()).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// openStore opens and migrates the cache database. Any failure, or
// CACHE_ENABLED=false, yields a disabled store rather than a dead process:
// lookups miss, writes no-op, and the identify pipeline still works.
func openStore(cfg config.Config) *repo.Store {
	if !cfg.CacheEnabled {
		log.Warn().Msg("cache disabled by configuration, running in always-miss mode")
		return repo.NewStore(nil)
	}
	db, err := repo.Open(cfg.DBPath, cfg.OTEL.Enabled)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.DBPath).Msg("cache store unavailable, running in always-miss mode")
		return repo.NewStore(nil)
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Warn().Err(err).Msg("cache migration failed, running in always-miss mode")
		return repo.NewStore(nil)
	}
	return repo.NewStore(db)
}
