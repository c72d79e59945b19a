package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/config"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/database"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/dto"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/events"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/logging"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/ratelimit"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/routes"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/services"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/store"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
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
	pgLogHandler := logging.SetupWithDB(database.DB)

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

	// user_blocked events, optional
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATSURL != "" {
		natsPublisher, err := events.NewNATSPublisher(events.DefaultNATSConfig(cfg.NATSURL))
		if err != nil {
			slog.Warn("nats unavailable, block events disabled", "url", cfg.NATSURL, "error", err)
		} else {
			publisher = natsPublisher
		}
	}

	// Shared limiter counters, optional
	var limiterStorage fiber.Storage
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		client, err := ratelimit.Connect(ctx, cfg.RedisAddr)
		cancel()
		if err != nil {
			slog.Warn("redis unavailable, rate limits are per instance", "addr", cfg.RedisAddr, "error", err)
		} else {
			limiterStorage = ratelimit.NewRedisStorage(client, "")
		}
	}

	// Services
	moderationService := services.NewModerationService(
		store.NewGormStore(database.DB),
		services.NewOpenRouterClassifier(cfg),
		publisher,
		services.ModerationOptions{
			Variant:       services.Variant(cfg.ModerationVariant),
			EvidenceLimit: cfg.EvidenceLimit,
		},
	)

	reconcileDone := make(chan struct{})
	services.StartReconciler(moderationService, cfg.ReconcileInterval, reconcileDone)

	// Handlers
	healthHandler := handlers.NewHealthHandler(moderationService, cfg.ModerationVariant)
	moderationHandler := handlers.NewModerationHandler(moderationService)

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    64 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
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
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, healthHandler, moderationHandler, limiterStorage)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "variant", cfg.ModerationVariant)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(25 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(reconcileDone)
	close(cleanupDone)
	publisher.Close()
	if limiterStorage != nil {
		limiterStorage.Close()
	}
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	database.Close()

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{Error: message})
}
