// Package device provides the admin CRUD for client devices, the
// network-observed MACs attached to access points. Mutations are gated on
// managing the AP's floor; moving a device additionally requires managing
// the target AP's floor.
package device

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

// Path is the base path for client device management.
const Path = handler.APIPath + "/admin/devices"

// Service provides CRUD operations for client devices.
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

// List returns the devices on floors visible to the caller with their AP,
// floor and building references.
func (s *Service) List(c *fiber.Ctx) error {
	u, reply := s.currentUser(c, "Failed to list devices")
	if u == nil {
		return reply
	}

	devices, err := s.authService.ListClientDevices(u)
	if err != nil {
		log.Error().Err(err).Msg("failed to list client devices")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list devices"})
	}

	payload := make([]fiber.Map, 0, len(devices))
	for _, d := range devices {
		payload = append(payload, fiber.Map{
			"id":         handler.FormatID(d.ID),
			"mac":        d.Mac,
			"apId":       handler.FormatID(d.APID),
			"floorId":    handler.FormatID(d.AP.FloorID),
			"buildingId": handler.FormatID(d.AP.Floor.BuildingID),
			"createdAt":  d.CreatedAt,
		})
	}

	return c.JSON(payload)
}

// checkFloorOfAP resolves the AP and enforces the floor gate. A missing AP
// is 404 before the authorization answer.
func (s *Service) checkFloorOfAP(c *fiber.Ctx, u *auth.AppUser, apID uint64, forbiddenMsg, fallbackMsg string) (bool, error) {
	var ap models.AccessPoint

	err := s.db.Select("id", "floor_id").First(&ap, apID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "AP not found"})
	}

	if err != nil {
		return false, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallbackMsg})
	}

	ok, err := s.authService.CanManageFloor(u, ap.FloorID)
	if err != nil {
		log.Error().Err(err).Uint64("floor_id", ap.FloorID).Msg("floor check failed")

		return false, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallbackMsg})
	}

	if !ok {
		return false, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": forbiddenMsg})
	}

	return true, nil
}

type createDeviceRequest struct {
	Mac  string `json:"mac" validate:"required"`
	APID string `json:"apId" validate:"required"`
}

// Create records a device sighting on an AP.
func (s *Service) Create(c *fiber.Ctx) error {
	u, reply := s.currentUser(c, "Failed to create device")
	if u == nil {
		return reply
	}

	req := new(createDeviceRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "mac and apId required"})
	}

	apID, err := handler.ParseID(req.APID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid apId"})
	}

	if ok, reply := s.checkFloorOfAP(c, u, apID, "Forbidden", "Failed to create device"); !ok {
		return reply
	}

	device := models.ClientDevice{
		Mac:  models.NormalizeMac(req.Mac),
		APID: apID,
	}
	if err := s.db.Create(&device).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "MAC already exists"})
		}

		log.Error().Err(err).Uint64("ap_id", apID).Msg("failed to create client device")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create device"})
	}

	log.Info().Uint64("id", device.ID).Uint64("ap_id", apID).Msg("client device created")

	return c.JSON(fiber.Map{"id": handler.FormatID(device.ID), "mac": device.Mac})
}

type updateDeviceRequest struct {
	Mac  *string `json:"mac"`
	APID *string `json:"apId"`
}

// Update re-MACs a device or moves it to another AP.
func (s *Service) Update(c *fiber.Ctx) error {
	u, reply := s.currentUser(c, "Failed to update device")
	if u == nil {
		return reply
	}

	id, err := handler.ParseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	var device models.ClientDevice

	err = s.db.Preload("AP").First(&device, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Device not found"})
	}

	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update device"})
	}

	ok, err := s.authService.CanManageFloor(u, device.AP.FloorID)
	if err != nil {
		log.Error().Err(err).Uint64("floor_id", device.AP.FloorID).Msg("floor check failed")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update device"})
	}

	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	req := new(updateDeviceRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	updates := map[string]any{}
	if req.Mac != nil && *req.Mac != "" {
		updates["mac"] = models.NormalizeMac(*req.Mac)
	}

	if req.APID != nil {
		targetAPID, err := handler.ParseID(*req.APID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid apId"})
		}

		// moving needs manage rights on the destination floor too
		if ok, reply := s.checkFloorOfAP(c, u, targetAPID, "Forbidden for target floor", "Failed to update device"); !ok {
			return reply
		}

		updates["ap_id"] = targetAPID
	}

	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No valid fields to update"})
	}

	if err := s.db.Model(&device).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "MAC already exists"})
		}

		log.Error().Err(err).Uint64("id", id).Msg("failed to update client device")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update device"})
	}

	return c.JSON(fiber.Map{
		"id":      handler.FormatID(device.ID),
		"mac":     device.Mac,
		"apId":    handler.FormatID(device.APID),
		"floorId": handler.FormatID(device.AP.FloorID),
	})
}

// Delete removes a device.
func (s *Service) Delete(c *fiber.Ctx) error {
	u, reply := s.currentUser(c, "Failed to delete device")
	if u == nil {
		return reply
	}

	id, err := handler.ParseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	var device models.ClientDevice

	err = s.db.Preload("AP").First(&device, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Device not found"})
	}

	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete device"})
	}

	ok, err := s.authService.CanManageFloor(u, device.AP.FloorID)
	if err != nil {
		log.Error().Err(err).Uint64("floor_id", device.AP.FloorID).Msg("floor check failed")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete device"})
	}

	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	if err := s.db.Delete(&device).Error; err != nil {
		log.Error().Err(err).Uint64("id", id).Msg("failed to delete client device")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete device"})
	}

	log.Warn().Uint64("id", id).Msg("client device deleted")

	return c.JSON(fiber.Map{"ok": true})
}
