// Package permission provides the admin CRUD for the group grants binding
// groups to buildings and floors. Owners see and manage everything;
// Organization Admins are confined to grants touching their own groups.
package permission

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

// Path is the base path for grant management.
const Path = handler.APIPath + "/admin/global-permissions"

// Service provides CRUD operations for grants.
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
	app.Delete(Path+"/:id", s.Delete)
}

func (s *Service) currentUser(c *fiber.Ctx) (*auth.AppUser, error) {
	u, err := handler.CurrentUser(c, s.authService)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}

		return nil, apperr.Respond(c, err, "Server error")
	}

	return u, nil
}

func grantPayload(g *models.GlobalPermission) fiber.Map {
	return fiber.Map{
		"id":           handler.FormatID(g.ID),
		"groupId":      handler.FormatID(g.GroupID),
		"buildingId":   handler.FormatID(g.BuildingID),
		"floorId":      handler.FormatID(g.FloorID),
		"groupName":    g.Group.Name,
		"buildingName": g.Building.Name,
		"floorName":    g.Floor.Name,
	}
}

// List returns the grants visible to the caller. Roles outside Owner and
// Organization Admin are rejected outright.
func (s *Service) List(c *fiber.Ctx) error {
	u, reply := s.currentUser(c)
	if u == nil {
		return reply
	}

	if u.Role != auth.RoleOwner && u.Role != auth.RoleOrgAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	grants, err := s.authService.ListGrants(u)
	if err != nil {
		log.Error().Err(err).Msg("failed to list grants")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error"})
	}

	payload := make([]fiber.Map, 0, len(grants))
	for i := range grants {
		payload = append(payload, grantPayload(&grants[i]))
	}

	return c.JSON(payload)
}

type createGrantRequest struct {
	GroupID    string `json:"groupId" validate:"required"`
	BuildingID string `json:"buildingId" validate:"required"`
	FloorID    string `json:"floorId" validate:"required"`
}

// Create adds a grant after validating all three referents exist and the
// floor actually belongs to the named building. Organization Admins may
// only grant to their own groups.
func (s *Service) Create(c *fiber.Ctx) error {
	u, reply := s.currentUser(c)
	if u == nil {
		return reply
	}

	req := new(createGrantRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "groupId, buildingId, floorId required"})
	}

	groupID, errG := handler.ParseID(req.GroupID)
	buildingID, errB := handler.ParseID(req.BuildingID)
	floorID, errF := handler.ParseID(req.FloorID)
	if errG != nil || errB != nil || errF != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "groupId, buildingId, floorId required"})
	}

	var (
		group    models.Group
		building models.Building
		floor    models.Floor
	)

	errGroup := s.db.First(&group, groupID).Error
	errBuilding := s.db.First(&building, buildingID).Error
	errFloor := s.db.Select("id", "building_id", "name").First(&floor, floorID).Error

	if errGroup != nil || errBuilding != nil || errFloor != nil || floor.BuildingID != buildingID {
		log.Warn().Uint64("group_id", groupID).Uint64("building_id", buildingID).
			Uint64("floor_id", floorID).Msg("create grant: invalid referents")

		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "Invalid groupId/buildingId/floorId (or floor not in building)"})
	}

	switch u.Role {
	case auth.RoleOwner:
		// unrestricted
	case auth.RoleOrgAdmin:
		if !u.InGroups(groupID) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden: group is not in your scope"})
		}
	default:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	grant := models.GlobalPermission{
		GroupID:    groupID,
		BuildingID: buildingID,
		FloorID:    floorID,
	}
	if err := s.db.Create(&grant).Error; err != nil {
		log.Error().Err(err).Msg("failed to create grant")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create global permission"})
	}

	grant.Group = group
	grant.Building = building
	grant.Floor = floor

	log.Info().Uint64("id", grant.ID).Uint64("group_id", groupID).
		Uint64("floor_id", floorID).Msg("grant created")

	return c.JSON(grantPayload(&grant))
}

// Delete removes a grant. Existence is answered before scope, so Org
// Admins can distinguish a dead ID from one outside their groups.
func (s *Service) Delete(c *fiber.Ctx) error {
	u, reply := s.currentUser(c)
	if u == nil {
		return reply
	}

	id, err := handler.ParseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	var grant models.GlobalPermission

	err = s.db.First(&grant, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "GlobalPermission not found"})
	}

	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete global permission"})
	}

	switch u.Role {
	case auth.RoleOwner:
		// unrestricted
	case auth.RoleOrgAdmin:
		if !u.InGroups(grant.GroupID) {
			return c.Status(fiber.StatusForbidden).
				JSON(fiber.Map{"error": "Forbidden: GlobalPermission group is not in your scope"})
		}
	default:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	if err := s.db.Delete(&grant).Error; err != nil {
		log.Error().Err(err).Uint64("id", id).Msg("failed to delete grant")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete global permission"})
	}

	log.Info().Uint64("id", id).Msg("grant deleted")

	return c.JSON(fiber.Map{"ok": true})
}
