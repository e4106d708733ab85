package middleware

import (
	"strings"

	"eshop/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"go.uber.org/zap"
)

// Locals keys set by RequireUser.
const (
	LocalUserID   = "user_id"
	LocalUsername = "username"
)

// SessionUserKey is the session field holding the logged in user's ID.
const SessionUserKey = "user_id"

// RequireUser accepts a session cookie or an "Authorization: Bearer <token>"
// header and stores the caller's ID in the request locals. Requests with
// neither are rejected with 401.
func RequireUser(sessions *session.Store, auth *services.AuthService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if header := c.Get(fiber.HeaderAuthorization); header != "" {
			// Expected format: "Bearer <token>"
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				return unauthenticated(c)
			}
			claims, err := auth.ValidateToken(parts[1])
			if err != nil {
				logger.Debug("JWT validation failed", zap.Error(err))
				return unauthenticated(c)
			}
			userID, _ := claims["user_id"].(string)
			if userID == "" {
				return unauthenticated(c)
			}
			c.Locals(LocalUserID, userID)
			c.Locals(LocalUsername, claims["username"])
			return c.Next()
		}

		sess, err := sessions.Get(c)
		if err != nil {
			logger.Warn("Session lookup failed", zap.Error(err))
			return unauthenticated(c)
		}
		userID, _ := sess.Get(SessionUserKey).(string)
		if userID == "" {
			return unauthenticated(c)
		}
		c.Locals(LocalUserID, userID)
		return c.Next()
	}
}

// UserID returns the caller set by RequireUser.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": "User not authenticated",
	})
}
