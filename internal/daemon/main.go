// Package daemon wires the process together: database, migrations, seed
// data, session storage, identity provider and the web service.
package daemon

import (
	"fmt"

	sessionpostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/config"
	"github.com/floortrack/floortrack/internal/db/dsn"
	"github.com/floortrack/floortrack/internal/db/models"
	"github.com/floortrack/floortrack/internal/identity"
	"github.com/floortrack/floortrack/internal/logger"
	"github.com/floortrack/floortrack/internal/web"
	"github.com/floortrack/floortrack/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
}

// Start starts the Daemon's web service and blocks until shutdown.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	if err := logger.Init(cfg.Log); err != nil {
		panic(err)
	}

	dbDriver := gormpostgres.Open(dsn.Create(cfg))

	// TranslateError maps driver duplicate-key errors onto
	// gorm.ErrDuplicatedKey, which the handlers rely on for 409 replies.
	db, err := gorm.Open(dbDriver, &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
		return nil
	}

	if err = db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Group{},
		&models.UserGroup{},
		&models.Building{},
		&models.Floor{},
		&models.AccessPoint{},
		&models.ClientDevice{},
		&models.UserDevice{},
		&models.GlobalPermission{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
		return nil
	}

	seed(cfg, db)

	provider := newIdentityProvider(cfg, db)

	sessionStorage := sessionpostgres.New(sessionpostgres.Config{
		ConnectionURI: dsn.Create(cfg),
		Table:         "sessions",
	})

	session.Init(sessionStorage)

	return &Daemon{
		cfg:        cfg,
		webService: web.New(cfg, db, provider),
	}
}

func newIdentityProvider(cfg *config.Config, db *gorm.DB) identity.Provider {
	switch cfg.Identity.Provider {
	case config.IdentityProviderKeycloak:
		provider, err := identity.NewKeycloak(cfg.Identity.Keycloak)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init keycloak identity provider")
			return nil
		}

		return provider
	default:
		provider, err := identity.NewLocal(db)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init local identity provider")
			return nil
		}

		return provider
	}
}
