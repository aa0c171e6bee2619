package handlers

import (
	"errors"
	"fmt"
	"log"

	"loja/internal/middleware"
	"loja/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for PIN-based authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the authentication and profile routes with the
// Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/request-pin", h.HandleRequestPin)
	authRoutes.Post("/verify-pin", h.HandleVerifyPin)

	userRoutes := router.Group("/users", authRequired)
	userRoutes.Get("/profile", h.HandleGetProfile)
}

// HandleGetProfile returns the authenticated user's own public projection.
func (h *AuthHandler) HandleGetProfile(c *fiber.Ctx) error {
	user, err := h.authService.GetUser(middleware.UserID(c))
	if err != nil {
		log.Printf("Error loading profile: %v", err)
		return fail(c, err, "Could not retrieve profile")
	}
	return c.JSON(user.Public())
}

// RequestPinRequest is the request body for /auth/request-pin.
type RequestPinRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleRequestPin issues a one-time PIN and sends it to the given email.
func (h *AuthHandler) HandleRequestPin(c *fiber.Ctx) error {
	var req RequestPinRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	if err := h.authService.RequestPin(req.Email); err != nil {
		// Never leak internals: the caller only learns the dispatch failed.
		log.Printf("Error issuing pin for %s: %v", req.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not send PIN",
		})
	}

	return c.JSON(fiber.Map{
		"message": "PIN sent to your email",
	})
}

// VerifyPinRequest is the request body for /auth/verify-pin.
type VerifyPinRequest struct {
	Email string `json:"email" validate:"required,email"`
	Pin   string `json:"pin" validate:"required,len=6,numeric"`
}

// HandleVerifyPin consumes a PIN and returns a session token with the
// public user projection.
func (h *AuthHandler) HandleVerifyPin(c *fiber.Ctx) error {
	var req VerifyPinRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	token, user, err := h.authService.VerifyPin(req.Email, req.Pin)
	if err != nil {
		if errors.Is(err, services.ErrInvalidOrExpiredPin) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Invalid or expired PIN",
			})
		}
		log.Printf("Error verifying pin for %s: %v", req.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not verify PIN",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    user.Public(),
	})
}

// validationError renders validator failures as a field -> reason map.
func validationError(c *fiber.Ctx, err error) error {
	validationErrors := err.(validator.ValidationErrors)
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}
