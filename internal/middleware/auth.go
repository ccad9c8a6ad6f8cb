package middleware

import (
	"strings"

	"github.com/detomata-com/kamclient/internal/auth"
	"github.com/detomata-com/kamclient/internal/config"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	CtxAccountID = "account_id"
	CtxEmail     = "email"
)

func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := claimsFromHeader(c, cfg)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired session"})
		}

		c.Locals(CtxAccountID, claims.AccountID)
		c.Locals(CtxEmail, claims.Email)

		return c.Next()
	}
}

// OptionalAuthMiddleware populates the session identity when a bearer token
// is present but lets anonymous requests through. Used on the game-client
// boundary, where an explicit accountId parameter can stand in for a session.
func OptionalAuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := claimsFromHeader(c, cfg)
		if err == nil {
			c.Locals(CtxAccountID, claims.AccountID)
			c.Locals(CtxEmail, claims.Email)
		}
		return c.Next()
	}
}

func claimsFromHeader(c *fiber.Ctx, cfg *config.Config) (*auth.Claims, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, fiber.ErrUnauthorized
	}
	tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenStr == authHeader {
		return nil, fiber.ErrUnauthorized
	}
	return auth.ParseJWT(cfg.JWTSecret, tokenStr)
}

func GetAccountID(c *fiber.Ctx) string {
	id, _ := c.Locals(CtxAccountID).(string)
	return id
}

func GetEmail(c *fiber.Ctx) string {
	email, _ := c.Locals(CtxEmail).(string)
	return email
}
