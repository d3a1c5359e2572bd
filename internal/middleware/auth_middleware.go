package middleware

import (
	"strings"

	"go-pos-sync/internal/model"
	"go-pos-sync/internal/service"

	"github.com/gofiber/fiber/v2"
)

const sessionKey = "session"

// RequireAuth validates the bearer token and stores the resulting session in
// the request context.
func RequireAuth(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		session, err := auth.ValidateToken(c.UserContext(), parts[1])
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": err.Error()})
		}

		c.Locals(sessionKey, *session)
		c.Locals("user_id", session.User.UUID.String())
		c.Locals("user_name", session.User.Username)
		return c.Next()
	}
}

// Session returns the session stored by RequireAuth. Outside protected
// routes it is empty, which every service rejects with a context error.
func Session(c *fiber.Ctx) model.Session {
	if s, ok := c.Locals(sessionKey).(model.Session); ok {
		return s
	}
	return model.Session{}
}

// RequireRole lets the request through when the session user has one of the
// given roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := Session(c)
		if s.User == nil {
			return c.Status(403).JSON(fiber.Map{"error": "No session found"})
		}
		for _, r := range roles {
			if s.User.Role == r {
				return c.Next()
			}
		}
		return c.Status(403).JSON(fiber.Map{
			"error": "Forbidden: requires one of " + strings.Join(roles, ", ") + " roles",
		})
	}
}
