package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/domain"
	"github.com/goalreminder/goal-reminder/internal/ports"
)

type SignupRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,min=7,max=32"`
}

type SignupHandler struct {
	service  ports.SignupService
	validate *validator.Validate
	log      *zap.Logger
}

func NewSignupHandler(service ports.SignupService, log *zap.Logger) *SignupHandler {
	return &SignupHandler{
		service:  service,
		validate: validator.New(),
		log:      log,
	}
}

// Register handles POST /api/signup.
func (h *SignupHandler) Register(c *fiber.Ctx) error {
	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid phone number format"})
	}

	user, err := h.service.Register(c.UserContext(), req.PhoneNumber)
	switch {
	case errors.Is(err, domain.ErrInvalidPhone):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid phone number format"})
	case errors.Is(err, domain.ErrDuplicatePhone):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "Phone number is already registered"})
	case err != nil:
		h.log.Error("Signup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to register phone number"})
	}

	h.log.Info("User signed up", zap.String("phone", user.PhoneNumber))
	return c.JSON(fiber.Map{"success": true})
}
