// Package clients ingests client device sightings. This is the feed the
// network infrastructure posts to; any authenticated caller may report a
// sighting, without the role gates of the admin device CRUD.
package clients

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/config"
	"github.com/floortrack/floortrack/internal/db/models"
	"github.com/floortrack/floortrack/internal/web/handler"
)

// Path is the client device ingest path.
const Path = handler.APIPath + "/clients"

// Service is the client ingest handler service.
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

	app.Post(Path, s.Create)

	return nil
}

type createClientRequest struct {
	Mac  string `json:"mac"`
	APID string `json:"apId"`
}

// Create records a device sighting on an AP.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(createClientRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if req.Mac == "" || req.APID == "" {
		log.Warn().Str("uid", handler.UID(c)).Msg("create client: missing mac/apId")

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "mac and apId are required"})
	}

	apID, err := handler.ParseID(req.APID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid apId"})
	}

	var ap models.AccessPoint

	err = s.db.Select("id").First(&ap, apID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "AP not found"})
	}

	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create client"})
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

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create client"})
	}

	log.Info().Str("uid", handler.UID(c)).Uint64("client_id", device.ID).
		Uint64("ap_id", apID).Msg("client created")

	return c.JSON(fiber.Map{
		"id":        handler.FormatID(device.ID),
		"mac":       device.Mac,
		"apId":      handler.FormatID(device.APID),
		"createdAt": device.CreatedAt,
	})
}
