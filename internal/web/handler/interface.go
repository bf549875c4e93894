// Package handler holds the pieces shared by every web handler: the route
// constants, the service interface, and the ID codec used at the JSON
// boundary.
package handler

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/config"
)

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error
}
