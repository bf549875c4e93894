// Package apperr defines the application's error kinds and their mapping to
// HTTP statuses. Handlers classify failures once at the boundary; internal
// detail never reaches the client.
package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Kind enumerates the failure classes the API distinguishes.
type Kind int

const (
	// Internal is an unexpected store or provider failure.
	Internal Kind = iota
	// Unauthenticated means no valid session accompanied the request.
	Unauthenticated
	// Forbidden means the caller is authenticated but out of scope.
	Forbidden
	// NotFound means the resource or a required parent is missing.
	NotFound
	// InvalidArgument means a malformed ID, missing field, or
	// cross-reference mismatch.
	InvalidArgument
	// Conflict means a unique-constraint violation.
	Conflict
)

// Error carries a kind and a client-safe message. The wrapped cause is for
// logs only.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}

	return e.Msg
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind with a client-safe message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches a kind and client-safe message to an underlying cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from err. Unclassified errors are Internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}

	return Internal
}

// FromDB classifies a gorm error: record-not-found becomes NotFound,
// duplicated-key becomes Conflict, everything else Internal.
func FromDB(err error, notFoundMsg, conflictMsg string) *Error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Wrap(NotFound, notFoundMsg, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Wrap(Conflict, conflictMsg, err)
	default:
		return Wrap(Internal, "internal error", err)
	}
}

// HTTPStatus maps a kind to its HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Unauthenticated:
		return fiber.StatusUnauthorized
	case Forbidden:
		return fiber.StatusForbidden
	case NotFound:
		return fiber.StatusNotFound
	case InvalidArgument:
		return fiber.StatusBadRequest
	case Conflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// Respond writes the JSON error payload for err. Unclassified errors render
// as a generic 500 with the fallback message.
func Respond(c *fiber.Ctx, err error, fallbackMsg string) error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return c.Status(HTTPStatus(appErr.Kind)).JSON(fiber.Map{"error": appErr.Msg})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallbackMsg})
}
