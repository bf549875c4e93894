// Package diag serves an authenticated diagnostics probe that checks
// database connectivity, for operators rather than load balancers.
package diag

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/config"
	"github.com/floortrack/floortrack/internal/web/handler"
)

// Path is the diagnostics path.
const Path = handler.APIPath + "/diag"

// Service is the diagnostics handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers the route.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.db = db

	app.Get(Path, s.Get)

	return nil
}

// Get round-trips a trivial query to prove the database is reachable.
func (s *Service) Get(c *fiber.Ctx) error {
	uid := handler.UID(c)

	var one int
	if err := s.db.WithContext(c.UserContext()).Raw("SELECT 1").Scan(&one).Error; err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("diagnostics failed")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database unreachable"})
	}

	log.Info().Str("uid", uid).Msg("diagnostics ok")

	return c.JSON(fiber.Map{"ok": true, "uid": uid})
}
