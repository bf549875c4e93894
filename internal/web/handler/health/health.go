// Package health serves the load balancer probe.
package health

import (
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/floortrack/floortrack/internal/web/handler"
)

// Path is the health probe path.
const Path = handler.APIPath + "/health"

// Service is the health handler service.
type Service struct {
	alive *atomic.Bool
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers the probe. alive is flipped off during graceful shutdown
// so the LB drains this instance before the listener stops.
func (s *Service) Init(app *fiber.App, alive *atomic.Bool) {
	if app == nil || alive == nil {
		log.Fatal().Msg("app or alive flag is nil")
		return
	}

	s.alive = alive

	app.Get(Path, s.Get)
}

// Get reports liveness.
func (s *Service) Get(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "shutting down"})
	}

	return c.JSON(fiber.Map{
		"message":   "Server is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
