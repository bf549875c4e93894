package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnknownIdentityProvider error if config identity.provider names no known backend.
	ErrUnknownIdentityProvider = errors.New("toml config identity.provider must be \"local\" or \"keycloak\"")

	// ErrKeycloakServerURLEmpty error if keycloak is selected without a server url.
	ErrKeycloakServerURLEmpty = errors.New("toml config identity.keycloak.serverurl can not be empty")
)
