package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Nemeth89/ECOMMERCE-Backend/internal/service"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/mylogger"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	LocalUserID = "userId"
	LocalToken  = "token"
)

// NewAuthMiddleware accepts only session tokens that are still valid and not
// revoked. Any failure short of an infrastructure error is a 401.
func NewAuthMiddleware(auth service.AuthService, timeout time.Duration, logger *zap.Logger) fiber.Handler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized: missed header"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized: Invalid header format"})
		}
		token := parts[1]

		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()

		claims, err := auth.Authenticate(ctx, token)
		if err != nil {
			if errors.Is(err, service.ErrInvalidToken) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized: Invalid token"})
			}

			mylogger.Error(ctx, logger, "session check failed", zap.Error(err))

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Server error"})
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalToken, token)
		return c.Next()
	}
}
