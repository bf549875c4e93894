package identity

import (
	"context"
	"net/http"
	"time"

	"github.com/Nerzal/gocloak/v13"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/floortrack/floortrack/internal/config"
)

const keycloakTimeout = 10 * time.Second

// Keycloak implements Provider on top of a Keycloak realm via the admin
// REST API. User administration runs with a service account; end-user
// operations use the direct access grant flow.
type Keycloak struct {
	client *gocloak.GoCloak
	cfg    config.Keycloak
}

// NewKeycloak creates a Keycloak-backed identity provider and verifies the
// admin credentials once at startup.
func NewKeycloak(cfg config.Keycloak) (*Keycloak, error) {
	k := &Keycloak{
		client: gocloak.NewClient(cfg.ServerURL),
		cfg:    cfg,
	}

	ctx, cancel := context.WithTimeout(context.Background(), keycloakTimeout)
	defer cancel()

	if _, err := k.adminLogin(ctx); err != nil {
		return nil, errors.Wrap(err, "keycloak admin login failed")
	}

	log.Info().Str("server", cfg.ServerURL).Str("realm", cfg.Realm).Msg("keycloak admin login successful")

	return k, nil
}

func (k *Keycloak) adminLogin(ctx context.Context) (string, error) {
	realm := k.cfg.AdminRealm
	if realm == "" {
		// the default admin realm in keycloak
		realm = "master"
	}

	token, err := k.client.LoginAdmin(ctx, k.cfg.AdminUsername, k.cfg.AdminPassword, realm)
	if err != nil {
		return "", errors.Wrap(err, "keycloak admin login")
	}

	return token.AccessToken, nil
}

// isConflict reports whether err is a keycloak 409, returned when the user
// already exists.
func isConflict(err error) bool {
	var apiErr *gocloak.APIError

	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}

func pArg[T any](value T) *T {
	p := new(T)
	*p = value

	return p
}

// SignUp registers the identity in the realm with the email doubling as the
// username.
func (k *Keycloak) SignUp(ctx context.Context, email, password string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, keycloakTimeout)
	defer cancel()

	adminToken, err := k.adminLogin(ctx)
	if err != nil {
		return "", err
	}

	uid, err := k.client.CreateUser(ctx, adminToken, k.cfg.Realm, gocloak.User{
		Username:      &email,
		Email:         &email,
		Enabled:       pArg(true),
		EmailVerified: pArg(true),
		Credentials: &[]gocloak.CredentialRepresentation{{
			Type:      pArg("password"),
			Value:     &password,
			Temporary: pArg(false),
		}},
	})
	if err != nil {
		if isConflict(err) {
			return "", ErrEmailAlreadyInUse
		}

		return "", errors.Wrap(err, "keycloak create user")
	}

	return uid, nil
}

// SignIn runs the direct access grant flow and resolves the UID from the
// token's user info.
func (k *Keycloak) SignIn(ctx context.Context, email, password string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, keycloakTimeout)
	defer cancel()

	jwt, err := k.client.Login(ctx, k.cfg.ClientID, k.cfg.ClientSecret, k.cfg.Realm, email, password)
	if err != nil {
		// wrong password and unknown user are indistinguishable on purpose
		return "", "", ErrInvalidCredentials
	}

	token, err := k.VerifyToken(ctx, jwt.AccessToken)
	if err != nil {
		return "", "", err
	}

	return jwt.AccessToken, token.UID, nil
}

// SignOut terminates all sessions of the identity.
func (k *Keycloak) SignOut(ctx context.Context, uid string) error {
	ctx, cancel := context.WithTimeout(ctx, keycloakTimeout)
	defer cancel()

	adminToken, err := k.adminLogin(ctx)
	if err != nil {
		return err
	}

	if err := k.client.LogoutAllSessions(ctx, adminToken, k.cfg.Realm, uid); err != nil {
		return errors.Wrap(err, "keycloak logout")
	}

	return nil
}

// VerifyToken asks keycloak for the user info behind the access token.
func (k *Keycloak) VerifyToken(ctx context.Context, accessToken string) (Token, error) {
	ctx, cancel := context.WithTimeout(ctx, keycloakTimeout)
	defer cancel()

	info, err := k.client.GetUserInfo(ctx, accessToken, k.cfg.Realm)
	if err != nil {
		return Token{}, ErrInvalidToken
	}

	if info.Sub == nil {
		return Token{}, errors.New("user identifier missing in keycloak response")
	}

	t := Token{UID: *info.Sub}
	if info.Email != nil {
		t.Email = *info.Email
	}

	return t, nil
}

// ResetPassword triggers keycloak's UPDATE_PASSWORD action mail. Unknown
// emails return nil so callers can't probe for accounts.
func (k *Keycloak) ResetPassword(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, keycloakTimeout)
	defer cancel()

	adminToken, err := k.adminLogin(ctx)
	if err != nil {
		return err
	}

	users, err := k.client.GetUsers(ctx, adminToken, k.cfg.Realm, gocloak.GetUsersParams{
		Email: &email,
		Max:   pArg(1),
		Exact: pArg(true),
	})
	if err != nil {
		return errors.Wrap(err, "keycloak user lookup")
	}

	if len(users) == 0 || users[0].ID == nil {
		log.Debug().Str("email", email).Msg("password reset requested for unknown email")

		return nil
	}

	err = k.client.ExecuteActionsEmail(ctx, adminToken, k.cfg.Realm, gocloak.ExecuteActionsEmail{
		UserID:  users[0].ID,
		Actions: &[]string{"UPDATE_PASSWORD"},
	})
	if err != nil {
		return errors.Wrap(err, "keycloak reset password mail")
	}

	return nil
}

// DeleteIdentity removes the identity from the realm. A missing identity is
// treated as already deleted.
func (k *Keycloak) DeleteIdentity(ctx context.Context, uid string) error {
	ctx, cancel := context.WithTimeout(ctx, keycloakTimeout)
	defer cancel()

	adminToken, err := k.adminLogin(ctx)
	if err != nil {
		return err
	}

	err = k.client.DeleteUser(ctx, adminToken, k.cfg.Realm, uid)
	if err != nil {
		var apiErr *gocloak.APIError
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil
		}

		return errors.Wrap(err, "keycloak delete user")
	}

	return nil
}
