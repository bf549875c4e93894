// Package stats serves the per-floor aggregates consumed by the dashboard:
// device and AP totals plus the per-AP device counts of one floor. All
// three use the strict floor read rule.
package stats

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

// Path is the base path of the stats endpoints.
const Path = handler.APIPath + "/stats"

// Service is the stats handler service.
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

	app.Get(Path+"/total-devices", s.TotalDevices)
	app.Get(Path+"/total-aps", s.TotalAPs)
	app.Get(Path+"/devices-by-ap", s.DevicesByAP)
}

// checkFloorParam parses the floorId query param and applies the strict
// floor read rule. ok is false when the denial reply has already been
// written; the floor ID itself carries no signal since any uint64 parses.
func (s *Service) checkFloorParam(c *fiber.Ctx) (uint64, bool, error) {
	raw := c.Query("floorId")
	if raw == "" {
		return 0, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "floorId query param is required"})
	}

	floorID, err := handler.ParseID(raw)
	if err != nil {
		return 0, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid floorId"})
	}

	u, err := handler.CurrentUser(c, s.authService)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return 0, false, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unauthorized"})
		}

		return 0, false, apperr.Respond(c, err, "Failed to fetch stats")
	}

	ok, err := s.authService.CanViewFloor(u, floorID)
	if err != nil {
		log.Error().Err(err).Uint64("floor_id", floorID).Msg("stats access check failed")

		return 0, false, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch stats"})
	}

	if !ok {
		return 0, false, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	return floorID, true, nil
}

// TotalDevices counts the client devices seen on the floor's APs.
func (s *Service) TotalDevices(c *fiber.Ctx) error {
	floorID, ok, reply := s.checkFloorParam(c)
	if !ok {
		return reply
	}

	var total int64

	err := s.db.Model(&models.ClientDevice{}).
		Joins("JOIN access_points ON access_points.id = client_devices.ap_id").
		Where("access_points.floor_id = ?", floorID).
		Count(&total).Error
	if err != nil {
		log.Error().Err(err).Uint64("floor_id", floorID).Msg("failed to count devices")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch devices"})
	}

	return c.JSON(fiber.Map{
		"floorId":      handler.FormatID(floorID),
		"totalDevices": total,
	})
}

// TotalAPs counts the APs on the floor.
func (s *Service) TotalAPs(c *fiber.Ctx) error {
	floorID, ok, reply := s.checkFloorParam(c)
	if !ok {
		return reply
	}

	var total int64
	if err := s.db.Model(&models.AccessPoint{}).Where("floor_id = ?", floorID).Count(&total).Error; err != nil {
		log.Error().Err(err).Uint64("floor_id", floorID).Msg("failed to count access points")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch APs"})
	}

	return c.JSON(fiber.Map{
		"floorId":  handler.FormatID(floorID),
		"totalAps": total,
	})
}

type apDeviceCount struct {
	ID          uint64
	Name        string
	Cx          float64
	Cy          float64
	DeviceCount int64
}

// DevicesByAP returns each AP on the floor with its marker position and
// current device count, ascending by AP ID.
func (s *Service) DevicesByAP(c *fiber.Ctx) error {
	floorID, ok, reply := s.checkFloorParam(c)
	if !ok {
		return reply
	}

	var rows []apDeviceCount

	err := s.db.Model(&models.AccessPoint{}).
		Select("access_points.id, access_points.name, access_points.cx, access_points.cy, COUNT(client_devices.id) AS device_count").
		Joins("LEFT JOIN client_devices ON client_devices.ap_id = access_points.id").
		Where("access_points.floor_id = ?", floorID).
		Group("access_points.id, access_points.name, access_points.cx, access_points.cy").
		Order("access_points.id ASC").
		Scan(&rows).Error
	if err != nil {
		log.Error().Err(err).Uint64("floor_id", floorID).Msg("failed to aggregate devices by AP")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch devices-by-ap"})
	}

	aps := make([]fiber.Map, 0, len(rows))
	for _, row := range rows {
		aps = append(aps, fiber.Map{
			"apId":        handler.FormatID(row.ID),
			"title":       row.Name,
			"cx":          row.Cx,
			"cy":          row.Cy,
			"deviceCount": row.DeviceCount,
		})
	}

	return c.JSON(fiber.Map{
		"floorId": handler.FormatID(floorID),
		"aps":     aps,
	})
}
