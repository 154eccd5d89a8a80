// Copyright (c) 2026 Bestiary. All rights reserved.

// Command api is the entry point for the Bestiary HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire upstream clients, repositories, and HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buivan/bestiary/internal/api"
	"github.com/buivan/bestiary/internal/entity"
	"github.com/buivan/bestiary/internal/platform/config"
	"github.com/buivan/bestiary/internal/platform/constants"
	"github.com/buivan/bestiary/internal/platform/migration"
	pgstore "github.com/buivan/bestiary/internal/platform/postgres"
	redisstore "github.com/buivan/bestiary/internal/platform/redis"
	"github.com/buivan/bestiary/internal/platform/resilience"
	"github.com/buivan/bestiary/internal/translation"
	"github.com/buivan/bestiary/internal/upstream/funtranslations"
	"github.com/buivan/bestiary/internal/upstream/pokeapi"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "bestiary"))
	slog.SetDefault(log)

	log.Info("[Bestiary] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "bestiary"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// Root context for background workers (cache invalidation subscriber,
	// rate limiter cleanup). Cancelled when shutdown begins.
	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 7. Upstream Clients ───────────────────────────────────────────────
	// Each upstream gets its own policy instance so one provider's outage
	// never opens the other's circuit.
	policyCfg := resilience.Config{
		Timeout: cfg.TranslateTimeout,
		Retry: resilience.RetryConfig{
			MaxRetries: cfg.RetryMax,
			BaseDelay:  cfg.RetryBaseDelay,
		},
		Breaker: resilience.BreakerConfig{
			Window:           cfg.BreakerWindow,
			MinSamples:       cfg.BreakerMinSamples,
			FailureRatio:     cfg.BreakerFailureRatio,
			OpenFor:          cfg.BreakerOpen,
			RateLimitOpenFor: cfg.BreakerRateLimitOpen,
		},
	}

	sourceClient := pokeapi.NewClient(cfg.PokeAPIURL,
		resilience.NewPolicy(policyCfg, pokeapi.Classify, log.With(slog.String("upstream", "pokeapi"))))
	translatorClient := funtranslations.NewClient(cfg.FunTranslationsURL,
		resilience.NewPolicy(policyCfg, funtranslations.Classify, log.With(slog.String("upstream", "funtranslations"))))

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	entityRepository := entity.NewPostgresRepository(pool)

	cacheCfg := entity.DefaultCacheConfig()
	cacheCfg.LocalTTL = cfg.CacheLocalTTL
	cacheCfg.SharedTTL = cfg.CacheSharedTTL
	cacheCfg.FailsafeTTL = cfg.CacheFailsafeTTL

	cachedRepository := entity.NewCachedRepository(
		entityRepository,
		entity.NewRedisCache(rdb, log),
		cacheCfg,
		log,
	)
	cachedRepository.Start(runCtx)

	translationService := translation.NewService(cachedRepository, translatorClient, log)
	entityService := entity.NewService(cachedRepository, sourceClient, translationService, log)
	entityHandler := entity.NewHandler(entityService)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Entity:    entityHandler,
	}

	server := api.NewServer(runCtx, cfg, log, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
