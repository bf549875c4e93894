// Package ap provides the admin CRUD for access points. Every mutation is
// gated on managing the AP's floor, so Site Admins reach APs through their
// building grants while Organization Admins need the exact floor.
package ap

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

// Path is the base path for access point management.
const Path = handler.APIPath + "/admin/aps"

// Service provides CRUD operations for access points.
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

// List returns the APs on floors visible to the caller, with floor and
// building references. Unscoped roles get an empty list.
func (s *Service) List(c *fiber.Ctx) error {
	u, reply := s.currentUser(c, "Failed to list APs")
	if u == nil {
		return reply
	}

	aps, err := s.authService.ListAccessPoints(u)
	if err != nil {
		log.Error().Err(err).Msg("failed to list access points")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list APs"})
	}

	payload := make([]fiber.Map, 0, len(aps))
	for _, ap := range aps {
		payload = append(payload, fiber.Map{
			"id":         handler.FormatID(ap.ID),
			"name":       ap.Name,
			"cx":         ap.Cx,
			"cy":         ap.Cy,
			"floorId":    handler.FormatID(ap.FloorID),
			"buildingId": handler.FormatID(ap.Floor.BuildingID),
		})
	}

	return c.JSON(payload)
}

type createAPRequest struct {
	Name    string   `json:"name" validate:"required"`
	Cx      *float64 `json:"cx" validate:"required"`
	Cy      *float64 `json:"cy" validate:"required"`
	FloorID string   `json:"floorId" validate:"required"`
}

// Create places an AP on a floor.
func (s *Service) Create(c *fiber.Ctx) error {
	u, reply := s.currentUser(c, "Failed to create AP")
	if u == nil {
		return reply
	}

	req := new(createAPRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name, cx, cy, floorId required"})
	}

	floorID, err := handler.ParseID(req.FloorID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid floorId"})
	}

	ok, err := s.authService.CanManageFloor(u, floorID)
	if err != nil {
		log.Error().Err(err).Uint64("floor_id", floorID).Msg("floor check failed")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create AP"})
	}

	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden for floor"})
	}

	ap := models.AccessPoint{
		Name:    req.Name,
		Cx:      *req.Cx,
		Cy:      *req.Cy,
		FloorID: floorID,
	}
	if err := s.db.Create(&ap).Error; err != nil {
		log.Error().Err(err).Uint64("floor_id", floorID).Msg("failed to create access point")

		return apperr.Respond(c, apperr.FromDB(err, "Floor not found", ""), "Failed to create AP")
	}

	log.Info().Uint64("id", ap.ID).Uint64("floor_id", floorID).Msg("access point created")

	return c.JSON(fiber.Map{"id": handler.FormatID(ap.ID), "name": ap.Name})
}

// loadManagedAP fetches the AP and enforces the floor gate: a missing AP
// is 404 before the authorization answer.
func (s *Service) loadManagedAP(c *fiber.Ctx, u *auth.AppUser, fallbackMsg string) (*models.AccessPoint, error) {
	id, err := handler.ParseID(c.Params("id"))
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	var ap models.AccessPoint

	err = s.db.First(&ap, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "AP not found"})
	}

	if err != nil {
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallbackMsg})
	}

	ok, err := s.authService.CanManageFloor(u, ap.FloorID)
	if err != nil {
		log.Error().Err(err).Uint64("floor_id", ap.FloorID).Msg("floor check failed")

		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallbackMsg})
	}

	if !ok {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	return &ap, nil
}

type updateAPRequest struct {
	Name *string  `json:"name"`
	Cx   *float64 `json:"cx"`
	Cy   *float64 `json:"cy"`
}

// Update renames or moves an AP on its floor.
func (s *Service) Update(c *fiber.Ctx) error {
	u, reply := s.currentUser(c, "Failed to update AP")
	if u == nil {
		return reply
	}

	ap, reply := s.loadManagedAP(c, u, "Failed to update AP")
	if ap == nil {
		return reply
	}

	req := new(updateAPRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	updates := map[string]any{}
	if req.Name != nil && *req.Name != "" {
		updates["name"] = *req.Name
	}
	if req.Cx != nil {
		updates["cx"] = *req.Cx
	}
	if req.Cy != nil {
		updates["cy"] = *req.Cy
	}

	if len(updates) > 0 {
		if err := s.db.Model(ap).Updates(updates).Error; err != nil {
			log.Error().Err(err).Uint64("id", ap.ID).Msg("failed to update access point")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update AP"})
		}
	}

	return c.JSON(fiber.Map{"id": handler.FormatID(ap.ID), "name": ap.Name})
}

// Delete removes an AP. APs that still carry client devices are rejected
// with a conflict.
func (s *Service) Delete(c *fiber.Ctx) error {
	u, reply := s.currentUser(c, "Failed to delete AP")
	if u == nil {
		return reply
	}

	ap, reply := s.loadManagedAP(c, u, "Failed to delete AP")
	if ap == nil {
		return reply
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var deviceCount int64
		if err := tx.Model(&models.ClientDevice{}).Where("ap_id = ?", ap.ID).Count(&deviceCount).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "Failed to delete AP", err)
		}

		if deviceCount > 0 {
			return apperr.New(apperr.Conflict, "AP still has client devices")
		}

		return tx.Delete(ap).Error
	})
	if err != nil {
		log.Error().Err(err).Uint64("id", ap.ID).Msg("failed to delete access point")

		return apperr.Respond(c, err, "Failed to delete AP")
	}

	log.Warn().Uint64("id", ap.ID).Msg("access point deleted")

	return c.JSON(fiber.Map{"ok": true})
}
