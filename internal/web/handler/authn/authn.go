// Package authn handles registration, login, logout and password reset.
// Credentials never touch the application database; the identity provider
// owns them and we only correlate the provider UID with an application
// user row.
package authn

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/config"
	"github.com/floortrack/floortrack/internal/db/models"
	"github.com/floortrack/floortrack/internal/identity"
	"github.com/floortrack/floortrack/internal/web/handler"
	"github.com/floortrack/floortrack/internal/web/session"
)

const (
	// registration and login share one tight limit per client IP
	authLimiterMax    = 10
	authLimiterWindow = 10 * time.Minute

	// password reset is rarer and abused harder
	resetLimiterMax    = 5
	resetLimiterWindow = 30 * time.Minute
)

// Service is the authentication handler service.
type Service struct {
	handler.Service
	cfg      *config.Config
	db       *gorm.DB
	provider identity.Provider
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers the auth routes with their rate limiters.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, provider identity.Provider) {
	if app == nil || cfg == nil || db == nil || provider == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.provider = provider

	authLimiter := limiter.New(limiter.Config{
		Max:        authLimiterMax,
		Expiration: authLimiterWindow,
		LimitReached: func(c *fiber.Ctx) error {
			log.Warn().Str("ip", c.IP()).Str("path", c.Path()).Msg("rate limit exceeded")

			return c.Status(fiber.StatusTooManyRequests).
				JSON(fiber.Map{"error": "Too many auth attempts. Please wait a few minutes and try again."})
		},
	})
	resetLimiter := limiter.New(limiter.Config{
		Max:        resetLimiterMax,
		Expiration: resetLimiterWindow,
		LimitReached: func(c *fiber.Ctx) error {
			log.Warn().Str("ip", c.IP()).Str("path", c.Path()).Msg("rate limit exceeded")

			return c.Status(fiber.StatusTooManyRequests).
				JSON(fiber.Map{"error": "Too many password reset attempts. Try again later."})
		},
	})

	app.Post(handler.APIPath+"/register", authLimiter, s.Register)
	app.Post(handler.APIPath+"/login", authLimiter, s.Login)
	app.Post(handler.APIPath+"/logout", s.Logout)
	app.Post(handler.APIPath+"/reset-password", resetLimiter, s.ResetPassword)
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Register creates the identity at the provider and the matching
// application user in the Pending User role. Promotion to a real role is
// an Owner action later.
func (s *Service) Register(c *fiber.Ctx) error {
	req := new(registerRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	// per-field messages so the signup form can annotate inputs
	fieldErrors := fiber.Map{}
	if req.FirstName == "" {
		fieldErrors["firstName"] = "First name is required"
	}
	if req.LastName == "" {
		fieldErrors["lastName"] = "Last name is required"
	}
	if req.Email == "" {
		fieldErrors["email"] = "Email is required"
	}
	if req.Password == "" {
		fieldErrors["password"] = "Password is required"
	}
	if len(fieldErrors) > 0 {
		log.Warn().Str("email", req.Email).Msg("register: missing fields")

		return c.Status(fiber.StatusUnprocessableEntity).JSON(fieldErrors)
	}

	uid, err := s.provider.SignUp(c.UserContext(), req.Email, req.Password)
	if errors.Is(err, identity.ErrEmailAlreadyInUse) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "User already exists"})
	}

	if err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("register: provider signup failed")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Registration failed"})
	}

	var pendingRole models.Role
	if err := s.db.Where("name = ?", models.RoleNamePending).First(&pendingRole).Error; err != nil {
		log.Error().Err(err).Msg("register: pending role missing")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Registration failed"})
	}

	user := models.User{
		FirebaseUID: uid,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		RoleID:      pendingRole.ID,
	}
	if err := s.db.Create(&user).Error; err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("register: db create failed")

		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "User already exists"})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Registration failed"})
	}

	log.Info().Str("uid", uid).Str("email", req.Email).Msg("user registered")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "User created successfully"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies the credentials at the provider and opens a session.
func (s *Service) Login(c *fiber.Ctx) error {
	req := new(loginRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if req.Email == "" || req.Password == "" {
		log.Warn().Str("email", req.Email).Msg("login: missing fields")

		return c.Status(fiber.StatusUnprocessableEntity).
			JSON(fiber.Map{"email": "Email is required", "password": "Password is required"})
	}

	token, uid, err := s.provider.SignIn(c.UserContext(), req.Email, req.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		log.Warn().Str("email", req.Email).Msg("login: invalid credentials")

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	}

	if err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("login: provider error")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate session ID")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	sessData := &session.Data{Token: token, UID: uid}
	if err := sessData.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	cookieSettings := &fiber.Cookie{
		Name:     "session",
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}
	if s.cfg.DevMode {
		cookieSettings.Secure = false
	}
	c.Cookie(cookieSettings)

	log.Info().Str("uid", uid).Str("email", req.Email).Msg("user logged in")

	return c.JSON(fiber.Map{"message": "User logged in successfully"})
}

// Logout ends the session. The provider side is best effort; a dead
// provider must not keep a client logged in.
func (s *Service) Logout(c *fiber.Ctx) error {
	sessionID := c.Cookies("session")
	if sessionID != "" {
		sessData := new(session.Data)
		if err := sessData.Read(sessionID); err == nil && sessData.UID != "" {
			if err := s.provider.SignOut(c.UserContext(), sessData.UID); err != nil {
				log.Warn().Err(err).Str("uid", sessData.UID).Msg("provider signout failed")
			}
		}

		if err := session.Destroy(sessionID); err != nil {
			log.Warn().Err(err).Msg("failed to destroy session")
		}
	}

	c.ClearCookie("session")

	return c.JSON(fiber.Map{"message": "User logged out successfully"})
}

type resetPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPassword starts the provider's reset flow. The response never
// reveals whether the email exists.
func (s *Service) ResetPassword(c *fiber.Ctx) error {
	req := new(resetPasswordRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if req.Email == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"email": "Email is required"})
	}

	if err := s.provider.ResetPassword(c.UserContext(), req.Email); err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("reset password failed")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	log.Info().Str("email", req.Email).Msg("password reset requested")

	return c.JSON(fiber.Map{"message": "Password reset email sent successfully"})
}
