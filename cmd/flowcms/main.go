// Package main is the entry point for the flowcms server.
// It loads configuration, connects to services, wires the workflow
// engine and scheduler, and starts the HTTP server with graceful
// shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"flowcms/internal/cache"
	"flowcms/internal/config"
	"flowcms/internal/database"
	"flowcms/internal/handlers"
	"flowcms/internal/router"
	"flowcms/internal/scheduler"
	"flowcms/internal/session"
	"flowcms/internal/store"
	"flowcms/internal/workflow"
)

func main() {
	// Structured logger — text output, debug level.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load .env if present, then configuration from the environment.
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"scheduler_interval", cfg.SchedulerInterval.String(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (sessions, render cache, scheduler lock).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// In non-development environments, mark session cookies as Secure.
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)

	// Initialize data stores.
	contentStore := store.NewContentStore(db)
	versionStore := store.NewVersionStore(db)
	historyStore := store.NewHistoryStore(db)
	userStore := store.NewUserStore(db)

	// The workflow engine with the default role policy.
	engine := workflow.New(contentStore, workflow.RolePolicy{})

	// The scheduler transitions due content as its own system actor.
	startCtx, cancelStart := context.WithTimeout(context.Background(), cfg.DBTimeout)
	schedulerUser, err := userStore.EnsureSchedulerUser(startCtx)
	cancelStart()
	if err != nil {
		slog.Error("failed to ensure scheduler user", "error", err)
		os.Exit(1)
	}

	sched := scheduler.New(engine, contentStore,
		workflow.Actor{ID: schedulerUser.ID, Role: schedulerUser.Role},
		scheduler.Options{
			Interval:    cfg.SchedulerInterval,
			ItemTimeout: cfg.DBTimeout,
			AlertAfter:  cfg.SchedulerAlertAfter,
			Lock:        scheduler.NewTickLock(valkeyClient, cfg.SchedulerLockTTL),
		})
	if err := sched.Start(context.Background()); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// Create handler groups with their dependencies.
	renderCache := cache.NewRenderCache(valkeyClient, cache.DefaultRenderTTL)
	contentHandlers := handlers.NewContent(engine, contentStore, versionStore, historyStore, renderCache, cfg.DBTimeout)
	schedulerHandlers := handlers.NewScheduler(sched)
	authHandlers := handlers.NewAuth(sessionStore, userStore)

	// Set up the Chi router with all middleware and routes.
	r := router.New(sessionStore, contentHandlers, schedulerHandlers, authHandlers)

	// Create the HTTP server with sensible timeouts.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
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

	// Stop the scheduler first; a tick in progress runs to completion.
	sched.Stop()

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
