// Package profile serves the self-service endpoints: the caller's own user
// record, the MACs they register for the ap-connection lookup, and account
// deletion.
package profile

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/config"
	"github.com/floortrack/floortrack/internal/db/controller/account"
	"github.com/floortrack/floortrack/internal/db/models"
	"github.com/floortrack/floortrack/internal/identity"
	"github.com/floortrack/floortrack/internal/web/handler"
	"github.com/floortrack/floortrack/internal/web/session"
)

// Path is the base path of the profile endpoints.
const Path = handler.APIPath + "/profile"

// Service is the profile handler service.
type Service struct {
	handler.Service
	cfg      *config.Config
	db       *gorm.DB
	provider identity.Provider
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers the routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, provider identity.Provider) {
	if app == nil || cfg == nil || db == nil || provider == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.provider = provider

	app.Get(Path, s.Get)
	app.Put(Path, s.Update)
	app.Delete(Path, s.DeleteAccount)

	app.Get(Path+"/devices", s.ListDevices)
	app.Post(Path+"/devices", s.CreateDevice)
	app.Put(Path+"/devices/:id", s.UpdateDevice)
	app.Delete(Path+"/devices/:id", s.DeleteDevice)

	app.Get(handler.APIPath+"/users/:userId/ap-connection", s.APConnection)
}

// Get returns the caller's profile with role and groups.
func (s *Service) Get(c *fiber.Ctx) error {
	uid := handler.UID(c)

	var user models.User

	err := s.db.Preload("Role").Preload("UserGroups.Group").
		Where("firebase_uid = ?", uid).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unauthorized"})
	}

	if err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("failed to load profile")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load profile"})
	}

	groups := make([]fiber.Map, 0, len(user.UserGroups))
	for _, ug := range user.UserGroups {
		groups = append(groups, fiber.Map{
			"id":   handler.FormatID(ug.Group.ID),
			"name": ug.Group.Name,
		})
	}

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":        handler.FormatID(user.ID),
			"email":     user.Email,
			"firstName": user.FirstName,
			"lastName":  user.LastName,
			"role":      fiber.Map{"id": handler.FormatID(user.Role.ID), "name": user.Role.Name},
			"groups":    groups,
		},
	})
}

type updateProfileRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

// Update changes the caller's name fields. Absent fields stay untouched.
func (s *Service) Update(c *fiber.Ctx) error {
	req := new(updateProfileRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	uid := handler.UID(c)

	var user models.User
	if err := s.db.Where("firebase_uid = ?", uid).First(&user).Error; err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unauthorized"})
	}

	updates := map[string]any{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}

	if len(updates) > 0 {
		if err := s.db.Model(&user).Updates(updates).Error; err != nil {
			log.Error().Err(err).Str("uid", uid).Msg("failed to update profile")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
		}
	}

	return c.JSON(fiber.Map{
		"id":        handler.FormatID(user.ID),
		"firstName": user.FirstName,
		"lastName":  user.LastName,
	})
}

// DeleteAccount removes the caller's user row, memberships and registered
// devices, then the provider identity, then the session.
func (s *Service) DeleteAccount(c *fiber.Ctx) error {
	uid := handler.UID(c)

	if err := account.Delete(c.UserContext(), s.db, s.provider, uid); err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("account deletion failed")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete account"})
	}

	if sessionID := c.Cookies("session"); sessionID != "" {
		if err := session.Destroy(sessionID); err != nil {
			log.Warn().Err(err).Msg("failed to destroy session")
		}
	}
	c.ClearCookie("session")

	log.Warn().Str("uid", uid).Msg("account deleted")

	return c.JSON(fiber.Map{"ok": true})
}

// currentUserID maps the identity UID to the caller's user ID.
func (s *Service) currentUserID(c *fiber.Ctx) (uint64, error) {
	var user models.User
	if err := s.db.Select("id").Where("firebase_uid = ?", handler.UID(c)).First(&user).Error; err != nil {
		return 0, err
	}

	return user.ID, nil
}

// ListDevices returns the caller's registered MACs, ascending by ID.
func (s *Service) ListDevices(c *fiber.Ctx) error {
	userID, err := s.currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var devices []models.UserDevice
	if err := s.db.Where("user_id = ?", userID).Order("id ASC").Find(&devices).Error; err != nil {
		log.Error().Err(err).Msg("failed to list owned devices")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load devices"})
	}

	payload := make([]fiber.Map, 0, len(devices))
	for _, d := range devices {
		payload = append(payload, fiber.Map{
			"id":   handler.FormatID(d.ID),
			"name": d.Name,
			"mac":  d.Mac,
		})
	}

	return c.JSON(payload)
}

type deviceRequest struct {
	Name *string `json:"name"`
	Mac  *string `json:"mac"`
}

// CreateDevice registers a MAC under the caller's account.
func (s *Service) CreateDevice(c *fiber.Ctx) error {
	req := new(deviceRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if req.Name == nil || *req.Name == "" || req.Mac == nil || *req.Mac == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name and mac required"})
	}

	userID, err := s.currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unauthorized"})
	}

	device := models.UserDevice{
		Name:   *req.Name,
		Mac:    models.NormalizeMac(*req.Mac),
		UserID: userID,
	}
	if err := s.db.Create(&device).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "MAC already exists"})
		}

		log.Error().Err(err).Msg("failed to create owned device")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create device"})
	}

	return c.JSON(fiber.Map{
		"id":   handler.FormatID(device.ID),
		"name": device.Name,
		"mac":  device.Mac,
	})
}

// loadOwnedDevice fetches the device and enforces ownership: a missing
// device is 404 before any ownership answer leaks.
func (s *Service) loadOwnedDevice(c *fiber.Ctx) (*models.UserDevice, error) {
	id, err := handler.ParseID(c.Params("id"))
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	userID, err := s.currentUserID(c)
	if err != nil {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var device models.UserDevice

	err = s.db.First(&device, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Device not found"})
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to load owned device")

		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load device"})
	}

	if device.UserID != userID {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	return &device, nil
}

// UpdateDevice renames or re-MACs a registered device.
func (s *Service) UpdateDevice(c *fiber.Ctx) error {
	device, reply := s.loadOwnedDevice(c)
	if device == nil {
		return reply
	}

	req := new(deviceRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Mac != nil {
		updates["mac"] = models.NormalizeMac(*req.Mac)
	}

	if len(updates) > 0 {
		if err := s.db.Model(device).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "MAC already exists"})
			}

			log.Error().Err(err).Msg("failed to update owned device")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update device"})
		}
	}

	return c.JSON(fiber.Map{
		"id":   handler.FormatID(device.ID),
		"name": device.Name,
		"mac":  device.Mac,
	})
}

// DeleteDevice removes a registered device.
func (s *Service) DeleteDevice(c *fiber.Ctx) error {
	device, reply := s.loadOwnedDevice(c)
	if device == nil {
		return reply
	}

	if err := s.db.Delete(device).Error; err != nil {
		log.Error().Err(err).Msg("failed to delete owned device")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete device"})
	}

	log.Warn().Uint64("id", device.ID).Msg("owned device deleted")

	return c.JSON(fiber.Map{"ok": true})
}

// APConnection resolves where the target user's registered MACs were last
// seen. Only the user themselves may ask; the caller's identity must match
// the target row.
func (s *Service) APConnection(c *fiber.Ctx) error {
	userID, err := handler.ParseID(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	var target models.User

	err = s.db.Select("id", "firebase_uid").First(&target, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	if err != nil {
		log.Error().Err(err).Msg("ap-connection user lookup failed")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to resolve AP connection"})
	}

	if handler.UID(c) != target.FirebaseUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var devices []models.UserDevice
	if err := s.db.Where("user_id = ?", userID).Order("id ASC").Find(&devices).Error; err != nil {
		log.Error().Err(err).Msg("ap-connection device lookup failed")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to resolve AP connection"})
	}

	if len(devices) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User has no registered device MAC"})
	}

	connections := make([]fiber.Map, 0, len(devices))

	for _, d := range devices {
		mac := models.NormalizeMac(d.Mac)

		var client models.ClientDevice

		err := s.db.Preload("AP").
			Where("mac = ?", mac).
			Order("updated_at DESC").
			First(&client).Error

		entry := fiber.Map{"mac": mac, "ap": nil, "updatedAt": nil}

		switch {
		case err == nil:
			entry["ap"] = fiber.Map{
				"id":      handler.FormatID(client.AP.ID),
				"name":    client.AP.Name,
				"floorId": handler.FormatID(client.AP.FloorID),
			}
			entry["updatedAt"] = client.UpdatedAt
		case errors.Is(err, gorm.ErrRecordNotFound):
			// never seen on the network; entry stays empty
		default:
			log.Error().Err(err).Str("mac", mac).Msg("ap-connection client lookup failed")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to resolve AP connection"})
		}

		connections = append(connections, entry)
	}

	return c.JSON(fiber.Map{"connections": connections})
}
