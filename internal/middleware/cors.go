package middleware

import (
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS answers preflight for the chat app, which calls with its anon key and client info headers.
func CORS(cfg *config.Config) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Authorization, X-Client-Info, Apikey, Content-Type",
		AllowMethods:     "GET, POST, OPTIONS",
		AllowCredentials: false,
	})
}
