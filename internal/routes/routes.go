package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/config"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/dto"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Setup mounts every route. limiterStorage may be nil, in which case the limiter keeps
// its counters in process memory.
func Setup(
	app *fiber.App,
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	moderationHandler *handlers.ModerationHandler,
	limiterStorage fiber.Storage,
) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Moderation: 10 req/min per reporter, each request costs a classifier call
	moderate := []fiber.Handler{
		middleware.JWTProtected(cfg),
		limiter.New(limiter.Config{
			Max:               10,
			Expiration:        1 * time.Minute,
			LimiterMiddleware: limiter.SlidingWindow{},
			Storage:           limiterStorage,
			KeyGenerator:      reporterKey,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{Error: "too many reports, try again later"})
			},
		}),
		moderationHandler.Moderate,
	}
	app.Post("/functions/v1/moderate-message", moderate...)

	api := app.Group("/api")
	api.Get("/health", healthHandler.Check)
	api.Post("/moderate", moderate...)
	api.Get("/users/:id/block", moderationHandler.BlockStatus)
}

func reporterKey(c *fiber.Ctx) string {
	if sub, err := middleware.TokenSubject(c); err == nil {
		return "sub:" + sub.String()
	}
	return "ip:" + c.IP()
}
