// Package web assembles the fiber application: middleware chain, handler
// registration and the graceful shutdown lifecycle.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/auth"
	"github.com/floortrack/floortrack/internal/config"
	"github.com/floortrack/floortrack/internal/identity"
	fiberlogger "github.com/floortrack/floortrack/internal/logger/adapter/fiber"
	"github.com/floortrack/floortrack/internal/web/handler"
	"github.com/floortrack/floortrack/internal/web/handler/admin/ap"
	"github.com/floortrack/floortrack/internal/web/handler/admin/building"
	"github.com/floortrack/floortrack/internal/web/handler/admin/device"
	adminfloor "github.com/floortrack/floortrack/internal/web/handler/admin/floor"
	"github.com/floortrack/floortrack/internal/web/handler/admin/group"
	"github.com/floortrack/floortrack/internal/web/handler/admin/pending"
	"github.com/floortrack/floortrack/internal/web/handler/admin/permission"
	"github.com/floortrack/floortrack/internal/web/handler/admin/role"
	"github.com/floortrack/floortrack/internal/web/handler/authn"
	"github.com/floortrack/floortrack/internal/web/handler/clients"
	"github.com/floortrack/floortrack/internal/web/handler/diag"
	"github.com/floortrack/floortrack/internal/web/handler/floors"
	"github.com/floortrack/floortrack/internal/web/handler/health"
	"github.com/floortrack/floortrack/internal/web/handler/me"
	"github.com/floortrack/floortrack/internal/web/handler/profile"
	"github.com/floortrack/floortrack/internal/web/handler/stats"
	authmw "github.com/floortrack/floortrack/internal/web/middleware/auth"
)

const (
	adminLimiterMax    = 100
	adminLimiterWindow = 5 * time.Minute
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	authService  *auth.Service
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: fail the health probe first so
	// the LB removes this instance before the listener stops.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, db *gorm.DB, provider identity.Provider) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	if provider == nil {
		panic("identity provider cannot be nil")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        "FloorTrack",
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:    cfg.Log,
		HealthURI: health.Path,
	}))
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Webserver.URL,
		AllowCredentials: true,
		AllowMethods:     "GET,POST,PUT,DELETE",
		AllowHeaders:     "Content-Type, Authorization",
	}))

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	// session-backed authentication for everything non-public
	app.Use(authmw.New(provider))

	app.Use(handler.APIPath+"/admin", limiter.New(limiter.Config{
		Max:        adminLimiterMax,
		Expiration: adminLimiterWindow,
		LimitReached: func(c *fiber.Ctx) error {
			log.Warn().Str("ip", c.IP()).Str("path", c.Path()).Msg("rate limit exceeded")

			return c.Status(fiber.StatusTooManyRequests).
				JSON(fiber.Map{"error": "Admin rate limit exceeded. Please slow down."})
		},
	}))

	authService := auth.NewService(db)

	service := &Service{
		cfg:         cfg,
		App:         app,
		db:          db,
		authService: authService,
	}
	service.alive.Store(true)

	// init handlers (they register their own routes)
	health.Handler.Init(app, &service.alive)
	authn.Handler.Init(app, cfg, db, provider)

	if err := me.Handler.Init(app, cfg, db); err != nil {
		log.Fatal().Err(err).Msg(handler.ErrNilACDFatalLogMsg)
	}

	profile.Handler.Init(app, cfg, db, provider)
	floors.Handler.Init(app, cfg, db, authService)
	stats.Handler.Init(app, cfg, db, authService)

	if err := clients.Handler.Init(app, cfg, db); err != nil {
		log.Fatal().Err(err).Msg(handler.ErrNilACDFatalLogMsg)
	}

	if err := diag.Handler.Init(app, cfg, db); err != nil {
		log.Fatal().Err(err).Msg(handler.ErrNilACDFatalLogMsg)
	}

	building.Handler.Init(app, cfg, db, authService)
	adminfloor.Handler.Init(app, cfg, db, authService)
	ap.Handler.Init(app, cfg, db, authService)
	device.Handler.Init(app, cfg, db, authService)
	pending.Handler.Init(app, cfg, db, authService)
	permission.Handler.Init(app, cfg, db, authService)

	if err := group.Handler.Init(app, cfg, db); err != nil {
		log.Fatal().Err(err).Msg(handler.ErrNilACDFatalLogMsg)
	}

	if err := role.Handler.Init(app, cfg, db); err != nil {
		log.Fatal().Err(err).Msg(handler.ErrNilACDFatalLogMsg)
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return service
}
