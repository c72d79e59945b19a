package middleware

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/config"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/dto"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenLocal = "user"

var ErrNoToken = errors.New("no token in context")

// JWTProtected verifies the caller's bearer token. When no secret is configured it
// lets every request through and TokenSubject reports ErrNoToken.
func JWTProtected(cfg *config.Config) fiber.Handler {
	if cfg.JWTSecret == "" {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ContextKey: tokenLocal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: "invalid or expired token",
			})
		},
	})
}

// TokenSubject extracts the user UUID from the verified token's sub claim.
func TokenSubject(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals(tokenLocal).(*jwt.Token)
	if !ok {
		return uuid.Nil, ErrNoToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing sub claim")
	}

	return uuid.Parse(sub)
}
