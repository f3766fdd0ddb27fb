// Package main is the entry point for the masterannonce API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"masterannonce/internal/auth"
	"masterannonce/internal/cache"
	"masterannonce/internal/config"
	"masterannonce/internal/database"
	"masterannonce/internal/engine"
	"masterannonce/internal/events"
	"masterannonce/internal/handlers"
	"masterannonce/internal/metrics"
	"masterannonce/internal/middleware"
	"masterannonce/internal/router"
	"masterannonce/internal/session"
	"masterannonce/internal/store"
	"masterannonce/internal/tracing"
)

func main() {
	// Load configuration from the environment and an optional .env file.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: JSON in production, text in development.
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"log_level", cfg.LogLevel.String(),
	)

	ctx := context.Background()

	// Tracing exports only when an OTLP endpoint is configured.
	tp, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	// Connect to PostgreSQL.
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(ctx, db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (credential store and response cache).
	valkeyClient, err := cache.ConnectValkey(ctx, cfg.ValkeyAddr(), cfg.ValkeyPassword, 0)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	m := metrics.NewManager()

	// Initialize data stores.
	userStore := store.NewUserStore(db)
	annonceStore := store.NewAnnonceStore(db)
	categoryStore := store.NewCategoryStore(db)
	activityStore := store.NewActivityStore(db)

	// Tokens are backed by revocable credentials in Valkey.
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, session.NewStore(valkeyClient))
	authService := auth.NewService(userStore, tokens)
	authService.SetObserver(m)

	// Lifecycle events go to the activity log and, when configured, NATS.
	notifiers := events.Multi{activityStore}
	if cfg.NATSURL != "" {
		pub, err := events.NewPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			slog.Error("failed to connect to nats", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		notifiers = append(notifiers, pub)
		slog.Info("nats publisher connected", "url", cfg.NATSURL, "prefix", cfg.NATSSubjectPrefix)
	} else {
		slog.Warn("nats not configured, activity events stay local")
	}

	eng := engine.New(annonceStore, userStore, categoryStore)
	eng.SetNotifier(notifiers)
	eng.SetRecorder(m)

	// Cached bodies from a previous run may predate migrations or seeds.
	responseCache := cache.NewResponseCache(valkeyClient, cfg.CacheTTL)
	responseCache.InvalidateAll(ctx)

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
	defer loginLimiter.Stop()

	r := router.New(router.Deps{
		Checks: map[string]router.Check{
			"database": db.PingContext,
			"valkey":   func(ctx context.Context) error { return valkeyClient.Ping(ctx).Err() },
		},
		Verifier:     tokens,
		Auth:         handlers.NewAuth(authService),
		Annonces:     handlers.NewAnnonces(eng, activityStore),
		Categories:   handlers.NewCategories(categoryStore, responseCache),
		LoginLimiter: loginLimiter,
		Metrics:      m.Handler(),
		Requests:     m,
	})

	// Create the HTTP server with sensible timeouts.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
