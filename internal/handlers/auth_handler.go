package handlers

import (
	"petalpaint/internal/middleware"
	"petalpaint/internal/models"
	"petalpaint/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
	log         *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    NewValidator(),
		log:         log,
	}
}

// RegisterRoutes registers the authentication routes. limit guards the
// credential endpoints against brute force.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, authRequired, limit fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", limit, h.HandleRegister)
	authRoutes.Post("/login", limit, h.HandleLogin)
	authRoutes.Get("/me", authRequired, h.HandleMe)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := parseAndValidate(c, h.validate, &req); err != nil {
		return respondError(c, h.log, err)
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}
	if err := h.authService.RegisterUser(c.UserContext(), &user); err != nil {
		return respondError(c, h.log, err)
	}

	return success(c, fiber.StatusCreated, fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseAndValidate(c, h.validate, &req); err != nil {
		return respondError(c, h.log, err)
	}

	token, err := h.authService.LoginUser(c.UserContext(), req.Username, req.Password)
	if err != nil {
		h.log.Info("Login failed", zap.String("username", req.Username))
		return respondError(c, h.log, err)
	}

	return success(c, fiber.StatusOK, fiber.Map{
		"message": "Login successful",
		"token":   token,
	})
}

// HandleMe returns the authenticated user's profile.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	user, err := h.authService.CurrentUser(c.UserContext(), middleware.ActorFrom(c).UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{"user": user})
}
