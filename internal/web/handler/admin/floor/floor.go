// Package floor provides the admin CRUD for floors. Site Admins are
// explicitly locked out of every floor mutation; Organization Admins reach
// only the buildings and floors their groups are granted.
package floor

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/apperr"
	"github.com/floortrack/floortrack/internal/auth"
	"github.com/floortrack/floortrack/internal/config"
	floorctl "github.com/floortrack/floortrack/internal/db/controller/floor"
	"github.com/floortrack/floortrack/internal/db/models"
	"github.com/floortrack/floortrack/internal/web/handler"
)

// Path is the base path for floor management.
const Path = handler.APIPath + "/admin/floors"

// Service provides CRUD operations for floors.
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

// currentUser resolves the caller or writes the Unauthorized reply.
func (s *Service) currentUser(c *fiber.Ctx, fallbackMsg string) (*auth.AppUser, error) {
	u, err := handler.CurrentUser(c, s.authService)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unauthorized"})
		}

		return nil, apperr.Respond(c, err, fallbackMsg)
	}

	return u, nil
}

// List returns the floors visible to the caller with their building names.
// Viewers are excluded here, unlike the general floor listing.
func (s *Service) List(c *fiber.Ctx) error {
	u, reply := s.currentUser(c, "Failed to list floors")
	if u == nil {
		return reply
	}

	floors, err := s.authService.ListFloors(u, false)
	if err != nil {
		log.Error().Err(err).Msg("failed to list floors")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list floors"})
	}

	payload := make([]fiber.Map, 0, len(floors))
	for _, f := range floors {
		payload = append(payload, fiber.Map{
			"id":           handler.FormatID(f.ID),
			"name":         f.Name,
			"buildingId":   handler.FormatID(f.BuildingID),
			"buildingName": f.Building.Name,
		})
	}

	return c.JSON(payload)
}

type createFloorRequest struct {
	Name       string `json:"name" validate:"required"`
	SvgMap     string `json:"svgMap" validate:"required"`
	BuildingID string `json:"buildingId" validate:"required"`
}

// Create adds a floor to a building and seeds a grant for the creator's
// first group so the floor does not vanish from their own scope.
func (s *Service) Create(c *fiber.Ctx) error {
	u, reply := s.currentUser(c, "Failed to create floor")
	if u == nil {
		return reply
	}

	req := new(createFloorRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name, svgMap, buildingId required"})
	}

	if u.Role == auth.RoleSiteAdmin {
		log.Warn().Uint64("user_id", u.User.ID).Msg("create floor forbidden: site admin")

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Site Admins cannot create floors"})
	}

	if u.Role != auth.RoleOwner && u.Role != auth.RoleOrgAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	buildingID, err := handler.ParseID(req.BuildingID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid buildingId"})
	}

	if u.Role == auth.RoleOrgAdmin {
		ok, err := s.authService.CanManageBuilding(u, buildingID)
		if err != nil {
			log.Error().Err(err).Uint64("building_id", buildingID).Msg("building check failed")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create floor"})
		}

		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden for building"})
		}
	}

	floor, err := floorctl.CreateWithGrant(s.db, req.Name, req.SvgMap, buildingID, u.GroupIDs)
	if err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("failed to create floor")

		return apperr.Respond(c, err, "Failed to create floor")
	}

	log.Info().Uint64("id", floor.ID).Uint64("building_id", buildingID).
		Str("role", u.Role.String()).Msg("floor created")

	return c.JSON(fiber.Map{
		"id":         handler.FormatID(floor.ID),
		"name":       floor.Name,
		"buildingId": handler.FormatID(floor.BuildingID),
	})
}

// checkManage applies the floor mutation gate shared by update and delete.
func (s *Service) checkManage(c *fiber.Ctx, u *auth.AppUser, floorID uint64, verb string) (bool, error) {
	if u.Role == auth.RoleSiteAdmin {
		log.Warn().Uint64("user_id", u.User.ID).Msg(verb + " floor forbidden: site admin")

		return false, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Site Admins cannot " + verb + " floors"})
	}

	ok, err := s.authService.CanManageFloor(u, floorID)
	if err != nil {
		log.Error().Err(err).Uint64("floor_id", floorID).Msg("floor check failed")

		return false, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to " + verb + " floor"})
	}

	if !ok {
		return false, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	return true, nil
}

type updateFloorRequest struct {
	Name   *string `json:"name"`
	SvgMap *string `json:"svgMap"`
}

// Update changes a floor's name and/or map. The parent building is
// immutable.
func (s *Service) Update(c *fiber.Ctx) error {
	u, reply := s.currentUser(c, "Failed to update floor")
	if u == nil {
		return reply
	}

	floorID, err := handler.ParseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	if ok, reply := s.checkManage(c, u, floorID, "edit"); !ok {
		return reply
	}

	req := new(updateFloorRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	var floor models.Floor

	err = s.db.First(&floor, floorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Floor not found"})
	}

	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update floor"})
	}

	updates := map[string]any{}
	if req.Name != nil && *req.Name != "" {
		updates["name"] = *req.Name
	}
	if req.SvgMap != nil && *req.SvgMap != "" {
		updates["svg_map"] = *req.SvgMap
	}

	if len(updates) > 0 {
		if err := s.db.Model(&floor).Updates(updates).Error; err != nil {
			log.Error().Err(err).Uint64("id", floorID).Msg("failed to update floor")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update floor"})
		}
	}

	return c.JSON(fiber.Map{"id": handler.FormatID(floor.ID), "name": floor.Name})
}

// Delete removes a floor and its grants. Floors that still carry APs are
// rejected with a conflict.
func (s *Service) Delete(c *fiber.Ctx) error {
	u, reply := s.currentUser(c, "Failed to delete floor")
	if u == nil {
		return reply
	}

	floorID, err := handler.ParseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	if ok, reply := s.checkManage(c, u, floorID, "delete"); !ok {
		return reply
	}

	if err := floorctl.Delete(s.db, floorID); err != nil {
		log.Error().Err(err).Uint64("id", floorID).Msg("failed to delete floor")

		return apperr.Respond(c, err, "Failed to delete floor")
	}

	log.Warn().Uint64("id", floorID).Msg("floor deleted")

	return c.JSON(fiber.Map{"ok": true})
}
