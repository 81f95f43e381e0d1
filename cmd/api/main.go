// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

// Command api is the entry point for the Suoke Life auth service.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire the domain services and HTTP handlers.
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

	"github.com/suoke-life/auth-service/internal/access"
	"github.com/suoke-life/auth-service/internal/api"
	"github.com/suoke-life/auth-service/internal/auth"
	"github.com/suoke-life/auth-service/internal/auth/device"
	"github.com/suoke-life/auth-service/internal/auth/risk"
	"github.com/suoke-life/auth-service/internal/auth/session"
	"github.com/suoke-life/auth-service/internal/auth/token"
	"github.com/suoke-life/auth-service/internal/auth/twofactor"
	"github.com/suoke-life/auth-service/internal/platform/config"
	"github.com/suoke-life/auth-service/internal/platform/constants"
	"github.com/suoke-life/auth-service/internal/platform/geo"
	"github.com/suoke-life/auth-service/internal/platform/migration"
	"github.com/suoke-life/auth-service/internal/platform/notify"
	pgstore "github.com/suoke-life/auth-service/internal/platform/postgres"
	redisstore "github.com/suoke-life/auth-service/internal/platform/redis"
	"github.com/suoke-life/auth-service/internal/platform/sec"
	"github.com/suoke-life/auth-service/internal/platform/task"
	"github.com/suoke-life/auth-service/internal/security"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "suoke-auth"))
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "suoke-auth"))
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

	// ── 6. Platform Services ──────────────────────────────────────────────
	runner := task.NewRunner(task.DefaultQueueCapacity, log)

	signer, err := sec.NewSigner(cfg.JWTSecret, cfg.AppName, cfg.AppBaseURL)
	must(log, err, "initialize jwt signer")

	geoLookup := geo.NewNoopLookup(log)
	emailTransport := notify.NewLogEmailTransport(log)
	smsTransport := notify.NewLogSmsTransport(log)
	dispatch := notify.NewLogDispatch(log)

	// ── 7. Security Log ───────────────────────────────────────────────────
	securityService := security.NewService(
		security.NewRedisEventStore(rdb),
		security.NewPostgresAuditStore(pool),
		runner, log,
		security.Options{
			Retention:          cfg.SecurityLogRetention(),
			HighPriorityEvents: cfg.HighPriorityEvents,
		},
	)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	tokenAuthority := token.NewAuthority(
		signer, token.NewRedisStore(rdb), securityService, log,
		cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry,
	)

	deviceRegistry := device.NewRegistry(device.NewPostgresStore(pool), securityService, log)

	sessionStore := session.NewPostgresStore(pool)
	riskEngine := risk.NewEngine(sessionStore, deviceRegistry, geoLookup, securityService, log)

	sessionManager := session.NewManager(
		sessionStore, session.NewRedisCache(rdb), geoLookup, riskEngine,
		securityService, dispatch, runner, log,
		cfg.SessionCacheTTL, cfg.SessionDefaultDuration,
	)

	twoFactorStore := twofactor.NewPostgresStore(pool)
	twoFactorService := twofactor.NewService(
		twofactor.NewRedisSetupStore(rdb), twoFactorStore, twoFactorStore,
		securityService, log,
	)

	smsCodes := auth.NewSMSCodeService(rdb, smsTransport, securityService, log, cfg.DeviceVerificationCodeTTL)

	permissionCache := access.NewMemoryCache()
	accessResolver := access.NewResolver(
		permissionCache, access.NewRedisKV(rdb), access.NewPostgresSource(pool),
		securityService, securityService, log,
	)

	orchestrator := auth.NewOrchestrator(
		auth.NewPostgresUserRepository(pool),
		tokenAuthority, sessionManager, deviceRegistry, twoFactorService,
		riskEngine, smsCodes, accessResolver,
		emailTransport, runner, securityService, log,
		auth.Durations{
			Session:        cfg.SessionDefaultDuration,
			TrustedSession: cfg.TrustedDeviceDuration,
		},
	)

	// ── 9. Background Maintenance ─────────────────────────────────────────
	maintenanceCtx, maintenanceCancel := context.WithCancel(context.Background())
	defer maintenanceCancel()

	permissionCache.StartSweeper(maintenanceCtx, access.SweepInterval)
	go sessionCleanupLoop(maintenanceCtx, sessionManager, cfg.SessionCleanupInterval, log)

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(orchestrator),
		TwoFactor: twofactor.NewHandler(twoFactorService, orchestrator),
		Session:   session.NewHandler(sessionManager),
		Device:    device.NewHandler(deviceRegistry),
		Access:    access.NewHandler(accessResolver),
		Security:  security.NewHandler(securityService),
	}

	server := api.NewServer(maintenanceCtx, cfg, log, tokenAuthority, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
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

	maintenanceCancel()

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	// Drain queued background jobs before the stores go away.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer drainCancel()
	if err := runner.Shutdown(drainCtx); err != nil {
		log.Error("task runner drain error", slog.Any("error", err))
	}

	log.Info("server stopped cleanly")
}

// sessionCleanupLoop periodically expires overdue sessions.
func sessionCleanupLoop(ctx context.Context, manager *session.Manager, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		interval = constants.SessionCleanupInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := manager.CleanupExpired(ctx)
			if err != nil {
				log.Error("session_cleanup_failed", slog.Any("error", err))
				continue
			}
			if expired > 0 {
				log.Info("sessions_expired", slog.Int("count", expired))
			}
		}
	}
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
