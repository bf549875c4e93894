// Package identity abstracts the external identity provider holding the
// actual credentials. The application database never stores passwords when
// a remote provider is configured; it only keeps the provider UID on the
// user row.
package identity

import (
	"context"
	"errors"
)

// Token is the verified identity extracted from an access token.
type Token struct {
	// UID is the provider-assigned stable user identifier.
	UID string
	// Email the identity was registered with.
	Email string
}

var (
	// ErrEmailAlreadyInUse is returned by SignUp when the email is taken.
	ErrEmailAlreadyInUse = errors.New("email is already in use")

	// ErrInvalidCredentials is returned by SignIn on a wrong email/password
	// combination. Callers must not distinguish the two cases.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned by VerifyToken for unknown or expired
	// access tokens.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrIdentityNotFound is returned when no identity matches the given
	// email or UID.
	ErrIdentityNotFound = errors.New("identity not found")
)

// Provider is the contract every identity backend implements.
type Provider interface {
	// SignUp registers a new identity and returns its UID.
	SignUp(ctx context.Context, email, password string) (string, error)

	// SignIn verifies the credentials and returns an access token plus the
	// identity UID.
	SignIn(ctx context.Context, email, password string) (token string, uid string, err error)

	// SignOut invalidates all sessions of the identity.
	SignOut(ctx context.Context, uid string) error

	// VerifyToken checks an access token and returns the identity behind it.
	VerifyToken(ctx context.Context, accessToken string) (Token, error)

	// ResetPassword starts the provider's password reset flow for the email.
	// Unknown emails are not an error, to avoid account enumeration.
	ResetPassword(ctx context.Context, email string) error

	// DeleteIdentity removes the identity at the provider.
	DeleteIdentity(ctx context.Context, uid string) error
}
