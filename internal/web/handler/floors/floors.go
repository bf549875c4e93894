// Package floors serves the scoped read endpoints of the floor hierarchy:
// the general floor listing and the per-floor detail/building reads backing
// the visualization view.
//
// Listing and detail deliberately use different rules: the listing shows
// any floor one of the user's groups has a grant on (Viewers included),
// while the detail endpoints demand a grant on that exact floor for every
// non-Owner role.
package floors

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/apperr"
	"github.com/floortrack/floortrack/internal/auth"
	"github.com/floortrack/floortrack/internal/config"
	"github.com/floortrack/floortrack/internal/db/models"
	"github.com/floortrack/floortrack/internal/web/handler"
)

// Path is the base path of the floor read endpoints.
const Path = handler.APIPath + "/floors"

// Service is the floors handler service.
type Service struct {
	handler.Service
	cfg         *config.Config
	db          *gorm.DB
	authService *auth.Service
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers the routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil || authService == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.authService = authService

	app.Get(Path, s.List)
	app.Get(Path+"/:floorId", s.Get)
	app.Get(Path+"/:floorId/building", s.GetBuilding)
}

// List returns the floors visible to the caller with their building names.
// Viewers participate here; unscoped roles get an empty list, not an error.
func (s *Service) List(c *fiber.Ctx) error {
	u, err := handler.CurrentUser(c, s.authService)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unauthorized"})
		}

		return apperr.Respond(c, err, "Failed to fetch floors")
	}

	floors, err := s.authService.ListFloors(u, true)
	if err != nil {
		log.Error().Err(err).Msg("failed to list floors")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch floors"})
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

// checkFloorAccess applies the strict read rule. The grant check runs
// before the existence check, so an unscoped caller cannot probe floor IDs.
// ok is false when the denial reply has already been written; the floor ID
// itself carries no signal since any uint64 parses.
func (s *Service) checkFloorAccess(c *fiber.Ctx) (uint64, bool, error) {
	u, err := handler.CurrentUser(c, s.authService)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return 0, false, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unauthorized"})
		}

		return 0, false, apperr.Respond(c, err, "Failed to fetch floor")
	}

	floorID, err := handler.ParseID(c.Params("floorId"))
	if err != nil {
		return 0, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	ok, err := s.authService.CanViewFloor(u, floorID)
	if err != nil {
		log.Error().Err(err).Uint64("floor_id", floorID).Msg("floor access check failed")

		return 0, false, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch floor"})
	}

	if !ok {
		return 0, false, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	return floorID, true, nil
}

// Get returns a floor's name and SVG map.
func (s *Service) Get(c *fiber.Ctx) error {
	floorID, ok, reply := s.checkFloorAccess(c)
	if !ok {
		return reply
	}

	var floor models.Floor
	if err := s.db.Select("id", "name", "svg_map").First(&floor, floorID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Floor not found"})
	}

	return c.JSON(fiber.Map{
		"id":     handler.FormatID(floor.ID),
		"name":   floor.Name,
		"svgMap": floor.SvgMap,
	})
}

// GetBuilding returns the parent building of a floor.
func (s *Service) GetBuilding(c *fiber.Ctx) error {
	floorID, ok, reply := s.checkFloorAccess(c)
	if !ok {
		return reply
	}

	var floor models.Floor
	if err := s.db.Preload("Building").First(&floor, floorID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Building not found for floor"})
	}

	return c.JSON(fiber.Map{
		"id":   handler.FormatID(floor.Building.ID),
		"name": floor.Building.Name,
	})
}
