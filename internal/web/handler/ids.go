package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/floortrack/floortrack/internal/apperr"
	"github.com/floortrack/floortrack/internal/auth"
)

// IDs are 64-bit integers internally but string-encoded on the wire, so
// clients never lose precision in JSON number parsing.

// ParseID decodes a string-encoded ID. Anything that is not a plain
// decimal number is an InvalidArgument.
func ParseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, apperr.Wrap(apperr.InvalidArgument, "invalid id", err)
	}

	return id, nil
}

// FormatID encodes an ID for a JSON payload.
func FormatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// UID returns the verified identity UID the auth middleware stored on the
// request, or "" when the request is unauthenticated.
func UID(c *fiber.Ctx) string {
	uid, _ := c.Locals(LocalsUIDKey).(string)

	return uid
}

// CurrentUser resolves the request's identity UID to the application user.
// A UID without a user row yields apperr.NotFound; most endpoints translate
// that to 403 like the rest of the authorization denials.
func CurrentUser(c *fiber.Ctx, svc *auth.Service) (*auth.AppUser, error) {
	return svc.Resolve(UID(c))
}
