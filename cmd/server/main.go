package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/config"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/database"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/logging"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/routes"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/scheduler"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/services"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/targets"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	logging.Setup(cfg.AppEnv)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.NewStdoutHandler(os.Stdout, cfg.AppEnv),
		pgLogHandler,
	)))

	// Targets and services
	registry := targets.NewRegistry(targets.NewGormAccessors(database.DB).Accessors())
	store := services.NewGormReportStore(database.DB)
	reportService := services.NewReportService(store, registry)
	queryService := services.NewReportQueryService(store, registry, services.NewContentFilter(), services.QueryOptions{
		StepTimeout: cfg.TargetStepTimeout,
		Concurrency: cfg.LookupConcurrency,
	})
	resolutionService := services.NewResolutionService(store, store, registry, services.NewUserModerationService(database.DB), services.ResolutionOptions{
		StepTimeout:     cfg.TargetStepTimeout,
		ClaimLease:      cfg.ClaimLease,
		SuspendDuration: cfg.SuspendDuration,
	})

	// Background jobs: stale claim reconciliation and log retention
	jobs := scheduler.New(resolutionService, func(ctx context.Context) (int64, error) {
		return logging.CleanupLogs(ctx, database.DB, cfg.LogRetentionDays)
	}, cfg.ReconcileInterval)
	if err := jobs.Start(); err != nil {
		slog.Error("scheduler failed to start", "error", err)
		os.Exit(1)
	}

	// Handlers
	healthHandler := handlers.NewHealthHandler(database.Ping)
	reportHandler := handlers.NewReportHandler(reportService, queryService, resolutionService)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	routes.Setup(app, cfg, database.DB, healthHandler, reportHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	jobs.Stop()
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
