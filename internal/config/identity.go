package config

// Supported identity provider backends.
const (
	// IdentityProviderLocal keeps credentials in the application database.
	// Meant for dev and test setups.
	IdentityProviderLocal = "local"

	// IdentityProviderKeycloak delegates authentication to a Keycloak realm.
	IdentityProviderKeycloak = "keycloak"
)

// Identity selects and configures the external identity provider.
type Identity struct {
	Provider string // "local" or "keycloak"
	Keycloak Keycloak
}

// Keycloak holds the connection settings for a Keycloak realm.
type Keycloak struct {
	ServerURL     string // base url of the keycloak server
	Realm         string
	ClientID      string
	ClientSecret  string
	AdminUsername string // service account used for user administration
	AdminPassword string
	AdminRealm    string // realm of the admin account, usually "master"
}
