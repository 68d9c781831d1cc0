package middleware

import (
	"strings"

	"petalpaint/internal/models"
	"petalpaint/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Locals keys set by AuthRequired.
const (
	LocalUserID   = "user_id"
	LocalUsername = "username"
	LocalRole     = "role"
)

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// AuthRequired is a Fiber middleware to check for a valid JWT token.
// Browsers cannot set headers on a websocket handshake, so the token may
// also be passed as the "token" query parameter.
func AuthRequired(authService *services.AuthService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var tokenString string
		if authHeader := c.Get("Authorization"); authHeader != "" {
			// Expected format: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if !(len(parts) == 2 && parts[0] == "Bearer") {
				return unauthorized(c, "Authorization header format must be 'Bearer <token>'")
			}
			tokenString = parts[1]
		} else {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			return unauthorized(c, "Authorization header is required")
		}

		claims, err := authService.ValidateToken(tokenString)
		if err != nil {
			log.Debug("JWT validation failed", zap.Error(err))
			return unauthorized(c, "Invalid or expired token")
		}

		userID, _ := claims["user_id"].(string)
		if userID == "" {
			return unauthorized(c, "Invalid or expired token")
		}
		role, _ := claims["role"].(string)
		if role == "" {
			role = models.RoleCustomer
		}

		// Store claims in Fiber context for subsequent handlers
		c.Locals(LocalUserID, userID)
		c.Locals(LocalUsername, claims["username"])
		c.Locals(LocalRole, role)

		return c.Next()
	}
}

// AdminOnly rejects authenticated users without the admin role.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if role, _ := c.Locals(LocalRole).(string); role != models.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Admin access required",
			})
		}
		return c.Next()
	}
}

// ActorFrom returns the identity stored by AuthRequired.
func ActorFrom(c *fiber.Ctx) models.Actor {
	userID, _ := c.Locals(LocalUserID).(string)
	role, _ := c.Locals(LocalRole).(string)
	return models.Actor{UserID: userID, Role: role}
}
