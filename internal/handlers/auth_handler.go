package handlers

import (
	"errors"

	"eshop/internal/middleware"
	"eshop/internal/models"
	"eshop/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"go.uber.org/zap"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	sessions    *session.Store
	limiter     *middleware.RateLimiter
	logger      *zap.Logger
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler. limiter throttles login attempts
// and may be nil.
func NewAuthHandler(authService *services.AuthService, sessions *session.Store, limiter *middleware.RateLimiter, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		limiter:     limiter,
		logger:      logger,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the authentication routes.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, requireUser fiber.Handler) {
	router.Post("/register", h.HandleRegister)
	if h.limiter != nil {
		router.Post("/login", h.limiter.Handler(), h.HandleLogin)
	} else {
		router.Post("/login", h.HandleLogin)
	}
	router.Post("/logout", h.HandleLogout)
	router.Get("/user", requireUser, h.HandleUser)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, "Username, email and password are required", err)
	}

	user := models.User{Username: req.Username, Email: req.Email, Password: req.Password}
	if err := h.authService.RegisterUser(c.UserContext(), &user); err != nil {
		if errors.Is(err, services.ErrUserExists) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Username or email already exists",
			})
		}
		h.logger.Error("Error registering user", zap.String("username", req.Username), zap.Error(err))
		return serverError(c)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin checks the credentials, starts a session and also returns a JWT
// for clients that prefer bearer tokens.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, "Username and password are required", err)
	}

	user, token, err := h.authService.LoginUser(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid username or password",
			})
		}
		h.logger.Error("Login failed", zap.String("username", req.Username), zap.Error(err))
		return serverError(c)
	}

	sess, err := h.sessions.Get(c)
	if err != nil {
		h.logger.Error("Failed to load session", zap.Error(err))
		return serverError(c)
	}
	// A fresh session ID on every login.
	if err := sess.Regenerate(); err != nil {
		h.logger.Error("Failed to regenerate session", zap.Error(err))
		return serverError(c)
	}
	sess.Set(middleware.SessionUserKey, user.ID)
	if err := sess.Save(); err != nil {
		h.logger.Error("Failed to save session", zap.Error(err))
		return serverError(c)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
	})
}

// HandleLogout destroys the session.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		h.logger.Error("Failed to load session", zap.Error(err))
		return serverError(c)
	}
	if err := sess.Destroy(); err != nil {
		h.logger.Error("Failed to destroy session", zap.Error(err))
		return serverError(c)
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// HandleUser returns the name of the logged in user.
func (h *AuthHandler) HandleUser(c *fiber.Ctx) error {
	user, err := h.authService.GetUser(c.UserContext(), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "User not found"})
		}
		h.logger.Error("Failed to load user", zap.Error(err))
		return serverError(c)
	}
	return c.JSON(fiber.Map{"username": user.Username})
}
