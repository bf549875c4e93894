// Package building provides the admin CRUD for buildings. The listing is
// scoped per role; every mutation is Owner-only.
package building

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/apperr"
	"github.com/floortrack/floortrack/internal/auth"
	"github.com/floortrack/floortrack/internal/config"
	"github.com/floortrack/floortrack/internal/db/models"
	"github.com/floortrack/floortrack/internal/web/handler"
)

// Path is the base path for building management.
const Path = handler.APIPath + "/admin/buildings"

// Service provides CRUD operations for buildings.
type Service struct {
	handler.Service
	cfg         *config.Config
	db          *gorm.DB
	authService *auth.Service
	validator   *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil || authService == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.authService = authService
	s.validator = validator.New()

	app.Get(Path, s.List)
	app.Post(Path, s.Create)
	app.Put(Path+"/:id", s.Update)
	app.Delete(Path+"/:id", s.Delete)
}

// requireOwner resolves the caller and rejects everyone but an Owner.
func (s *Service) requireOwner(c *fiber.Ctx, action string) (*auth.AppUser, error) {
	u, err := handler.CurrentUser(c, s.authService)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unauthorized"})
		}

		return nil, apperr.Respond(c, err, "Server error")
	}

	if u.Role != auth.RoleOwner {
		log.Warn().Uint64("user_id", u.User.ID).Str("role", u.Role.String()).Msg(action + " forbidden")

		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only Owner can " + action})
	}

	return u, nil
}

// List returns the buildings visible to the caller. Unscoped roles get an
// empty list.
func (s *Service) List(c *fiber.Ctx) error {
	u, err := handler.CurrentUser(c, s.authService)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unauthorized"})
		}

		return apperr.Respond(c, err, "Failed to list buildings")
	}

	buildings, err := s.authService.ListBuildings(u)
	if err != nil {
		log.Error().Err(err).Msg("failed to list buildings")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list buildings"})
	}

	payload := make([]fiber.Map, 0, len(buildings))
	for _, b := range buildings {
		payload = append(payload, fiber.Map{"id": handler.FormatID(b.ID), "name": b.Name})
	}

	return c.JSON(payload)
}

type buildingRequest struct {
	Name string `json:"name" validate:"required"`
}

// Create adds a building.
func (s *Service) Create(c *fiber.Ctx) error {
	u, reply := s.requireOwner(c, "create buildings")
	if u == nil {
		return reply
	}

	req := new(buildingRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name required"})
	}

	building := models.Building{Name: req.Name}
	if err := s.db.Create(&building).Error; err != nil {
		log.Error().Err(err).Msg("failed to create building")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create building"})
	}

	log.Info().Uint64("id", building.ID).Str("name", building.Name).Msg("building created")

	return c.JSON(fiber.Map{"id": handler.FormatID(building.ID), "name": building.Name})
}

// Update renames a building.
func (s *Service) Update(c *fiber.Ctx) error {
	u, reply := s.requireOwner(c, "edit buildings")
	if u == nil {
		return reply
	}

	id, err := handler.ParseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	req := new(buildingRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name required"})
	}

	var building models.Building

	err = s.db.First(&building, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Building not found"})
	}

	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update building"})
	}

	if err := s.db.Model(&building).Update("name", req.Name).Error; err != nil {
		log.Error().Err(err).Uint64("id", id).Msg("failed to update building")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update building"})
	}

	return c.JSON(fiber.Map{"id": handler.FormatID(building.ID), "name": building.Name})
}

// Delete removes a building. A building that still has floors is rejected
// with a conflict; the floors must go first.
func (s *Service) Delete(c *fiber.Ctx) error {
	u, reply := s.requireOwner(c, "delete buildings")
	if u == nil {
		return reply
	}

	id, err := handler.ParseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var building models.Building
		if err := tx.First(&building, id).Error; err != nil {
			return apperr.FromDB(err, "Building not found", "")
		}

		var floorCount int64
		if err := tx.Model(&models.Floor{}).Where("building_id = ?", id).Count(&floorCount).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "Failed to delete building", err)
		}

		if floorCount > 0 {
			return apperr.New(apperr.Conflict, "building still has floors")
		}

		if err := tx.Where("building_id = ?", id).Delete(&models.GlobalPermission{}).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "Failed to delete building", err)
		}

		return tx.Delete(&building).Error
	})
	if err != nil {
		log.Error().Err(err).Uint64("id", id).Msg("failed to delete building")

		return apperr.Respond(c, err, "Failed to delete building")
	}

	log.Warn().Uint64("id", id).Msg("building deleted")

	return c.JSON(fiber.Map{"ok": true})
}
