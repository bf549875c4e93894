// Package group provides the admin CRUD for groups. Groups carry no
// permissions themselves; deleting one removes its grants and memberships.
package group

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/apperr"
	"github.com/floortrack/floortrack/internal/config"
	"github.com/floortrack/floortrack/internal/db/models"
	"github.com/floortrack/floortrack/internal/web/handler"
)

// Path is the base path for group management.
const Path = handler.APIPath + "/admin/groups"

// Service provides CRUD operations for groups.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.db = db
	s.validator = validator.New()

	app.Get(Path, s.List)
	app.Post(Path, s.Create)
	app.Put(Path+"/:id", s.Update)
	app.Delete(Path+"/:id", s.Delete)

	return nil
}

// List returns all groups, ascending by ID.
func (s *Service) List(c *fiber.Ctx) error {
	var groups []models.Group
	if err := s.db.Order("id ASC").Find(&groups).Error; err != nil {
		log.Error().Err(err).Msg("failed to list groups")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list groups"})
	}

	payload := make([]fiber.Map, 0, len(groups))
	for _, g := range groups {
		payload = append(payload, fiber.Map{"id": handler.FormatID(g.ID), "name": g.Name})
	}

	return c.JSON(payload)
}

type groupRequest struct {
	Name string `json:"name" validate:"required"`
}

// Create adds a group. Group names are unique.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(groupRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name required"})
	}

	group := models.Group{Name: req.Name}
	if err := s.db.Create(&group).Error; err != nil {
		log.Error().Err(err).Msg("failed to create group")

		return apperr.Respond(c, apperr.FromDB(err, "", "Group already exists"), "Failed to create group")
	}

	log.Info().Uint64("id", group.ID).Str("name", group.Name).Msg("group created")

	return c.JSON(fiber.Map{"id": handler.FormatID(group.ID), "name": group.Name})
}

// Update renames a group.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.ParseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	req := new(groupRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name required"})
	}

	var group models.Group

	err = s.db.First(&group, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Group not found"})
	}

	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update group"})
	}

	if err := s.db.Model(&group).Update("name", req.Name).Error; err != nil {
		log.Error().Err(err).Uint64("id", id).Msg("failed to update group")

		return apperr.Respond(c, apperr.FromDB(err, "", "Group already exists"), "Failed to update group")
	}

	return c.JSON(fiber.Map{"id": handler.FormatID(group.ID), "name": group.Name})
}

// Delete removes a group together with its memberships and grants.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ParseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := tx.First(&group, id).Error; err != nil {
			return apperr.FromDB(err, "Group not found", "")
		}

		if err := tx.Where("group_id = ?", id).Delete(&models.UserGroup{}).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "Failed to delete group", err)
		}

		if err := tx.Where("group_id = ?", id).Delete(&models.GlobalPermission{}).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "Failed to delete group", err)
		}

		return tx.Delete(&group).Error
	})
	if err != nil {
		log.Error().Err(err).Uint64("id", id).Msg("failed to delete group")

		return apperr.Respond(c, err, "Failed to delete group")
	}

	log.Warn().Uint64("id", id).Msg("group deleted")

	return c.JSON(fiber.Map{"ok": true})
}
