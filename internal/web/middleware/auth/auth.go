// Package auth provides the fiber middleware gating the API behind a valid
// session. The session cookie is exchanged for the stored provider token,
// the token is verified against the identity provider, and the resulting
// UID is put on the request locals for the handlers.
package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/floortrack/floortrack/internal/identity"
	"github.com/floortrack/floortrack/internal/web/handler"
	"github.com/floortrack/floortrack/internal/web/session"
)

// publicPaths need no session: the auth flow itself, the health probe and
// the metrics endpoint.
var publicPaths = []string{
	"/api/register",
	"/api/login",
	"/api/logout",
	"/api/reset-password",
	"/api/health",
	"/metrics",
}

// IsPublic reports whether the request path skips authentication.
func IsPublic(c *fiber.Ctx) bool {
	path := strings.ToLower(c.Path())
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}

	return false
}

// New builds the authentication middleware on top of the given identity
// provider.
func New(provider identity.Provider) fiber.Handler {
	if provider == nil {
		panic("identity provider is nil")
	}

	return func(c *fiber.Ctx) error {
		if IsPublic(c) {
			return c.Next()
		}

		sessionID := c.Cookies("session")
		if sessionID == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No token provided"})
		}

		sessData := new(session.Data)
		if err := sessData.Read(sessionID); err != nil || sessData.Token == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unauthorized"})
		}

		token, err := provider.VerifyToken(c.UserContext(), sessData.Token)
		if err != nil {
			log.Warn().Err(err).Str("path", c.Path()).Msg("token verification failed")

			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unauthorized"})
		}

		c.Locals(handler.LocalsUIDKey, token.UID)

		return c.Next()
	}
}
