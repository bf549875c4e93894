// Package me serves the identity snapshot of the logged-in user.
package me

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/config"
	"github.com/floortrack/floortrack/internal/db/models"
	"github.com/floortrack/floortrack/internal/web/handler"
)

// Path is the route of the identity snapshot.
const Path = handler.APIPath + "/me"

// Service is the me handler service.
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

	app.Get(Path, s.Get)

	return nil
}

// Get returns the caller's user row with role and groups resolved.
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
		log.Error().Err(err).Str("uid", uid).Msg("failed to load current user")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load user"})
	}

	groups := make([]fiber.Map, 0, len(user.UserGroups))
	for _, ug := range user.UserGroups {
		groups = append(groups, fiber.Map{
			"id":   handler.FormatID(ug.Group.ID),
			"name": ug.Group.Name,
		})
	}

	return c.JSON(fiber.Map{
		"firebaseUid": user.FirebaseUID,
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
