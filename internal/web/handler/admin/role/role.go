// Package role serves the fixed role list, used by the pending-user
// assignment form. Any authenticated user may read it.
package role

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/config"
	"github.com/floortrack/floortrack/internal/db/models"
	"github.com/floortrack/floortrack/internal/web/handler"
)

// Path is the role listing path.
const Path = handler.APIPath + "/admin/roles"

// Service is the role handler service.
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

	app.Get(Path, s.List)

	return nil
}

// List returns all roles, ascending by ID.
func (s *Service) List(c *fiber.Ctx) error {
	var roles []models.Role
	if err := s.db.Order("id ASC").Find(&roles).Error; err != nil {
		log.Error().Err(err).Msg("failed to list roles")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list roles"})
	}

	payload := make([]fiber.Map, 0, len(roles))
	for _, r := range roles {
		payload = append(payload, fiber.Map{"id": handler.FormatID(r.ID), "name": r.Name})
	}

	return c.JSON(payload)
}
