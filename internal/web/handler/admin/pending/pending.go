// Package pending handles the onboarding queue: freshly registered users
// sit in the Pending User role until an Owner assigns them a real role and
// group memberships.
package pending

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/apperr"
	"github.com/floortrack/floortrack/internal/auth"
	"github.com/floortrack/floortrack/internal/config"
	"github.com/floortrack/floortrack/internal/db/controller/account"
	"github.com/floortrack/floortrack/internal/db/models"
	"github.com/floortrack/floortrack/internal/web/handler"
)

// Path is the base path for pending user management.
const Path = handler.APIPath + "/admin/pending-users"

// Service is the pending user handler service.
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
	app.Post(Path+"/:id/assign", s.Assign)
}

// requireOwner rejects everyone but an Owner.
func (s *Service) requireOwner(c *fiber.Ctx) (*auth.AppUser, error) {
	u, err := handler.CurrentUser(c, s.authService)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		}

		return nil, apperr.Respond(c, err, "Server error")
	}

	if u.Role != auth.RoleOwner {
		log.Warn().Uint64("user_id", u.User.ID).Str("role", u.Role.String()).Msg("pending users forbidden")

		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	return u, nil
}

// List returns the pending users in registration order.
func (s *Service) List(c *fiber.Ctx) error {
	u, reply := s.requireOwner(c)
	if u == nil {
		return reply
	}

	var pendingRole models.Role

	err := s.db.Where("name = ?", models.RoleNamePending).First(&pendingRole).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON([]fiber.Map{})
	}

	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list pending users"})
	}

	var users []models.User
	if err := s.db.Where("role_id = ?", pendingRole.ID).Order("created_at ASC").Find(&users).Error; err != nil {
		log.Error().Err(err).Msg("failed to list pending users")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list pending users"})
	}

	payload := make([]fiber.Map, 0, len(users))
	for _, user := range users {
		payload = append(payload, fiber.Map{
			"id":        handler.FormatID(user.ID),
			"email":     user.Email,
			"createdAt": user.CreatedAt,
		})
	}

	return c.JSON(payload)
}

type assignRequest struct {
	RoleID   string   `json:"roleId" validate:"required"`
	GroupIDs []string `json:"groupIds" validate:"required,min=1"`
}

// Assign promotes a pending user: new role plus a full membership
// replacement, atomically.
func (s *Service) Assign(c *fiber.Ctx) error {
	u, reply := s.requireOwner(c)
	if u == nil {
		return reply
	}

	userID, err := handler.ParseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	req := new(assignRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "roleId and groupIds[] are required"})
	}

	roleID, err := handler.ParseID(req.RoleID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid roleId"})
	}

	groupIDs := make([]uint64, 0, len(req.GroupIDs))
	for _, raw := range req.GroupIDs {
		id, err := handler.ParseID(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid groupIds"})
		}

		groupIDs = append(groupIDs, id)
	}

	if err := account.AssignPendingUser(s.db, userID, roleID, groupIDs); err != nil {
		log.Error().Err(err).Uint64("user_id", userID).Msg("failed to assign pending user")

		return apperr.Respond(c, err, "Failed to assign")
	}

	log.Info().Uint64("user_id", userID).Uint64("role_id", roleID).
		Interface("group_ids", groupIDs).Msg("pending user assigned")

	return c.JSON(fiber.Map{"ok": true})
}
