package handlers

import (
	"errors"

	"loja/internal/services"

	"github.com/gofiber/fiber/v2"
)

// statusForError maps the service error taxonomy to HTTP status codes.
// Unrecognized errors are internal.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrCartItemNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrInvalidStockValue),
		errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidOrExpiredPin):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrProductInUse):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// fail writes the standard error envelope. Internal errors keep their detail
// in the logs only.
func fail(c *fiber.Ctx, err error, message string) error {
	status := statusForError(err)
	body := fiber.Map{"message": message}
	if status != fiber.StatusInternalServerError {
		body["error"] = err.Error()
	}
	return c.Status(status).JSON(body)
}
