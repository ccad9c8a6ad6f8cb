package handlers

import (
	"errors"

	"github.com/detomata-com/kamclient/internal/models"
	"github.com/gofiber/fiber/v2"
)

// statusForError maps sentinel errors to an HTTP status and client message.
// Unrecognized errors come back as a generic 500.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidEmail):
		return fiber.StatusBadRequest, "Invalid email address"
	case errors.Is(err, models.ErrInvalidAddress):
		return fiber.StatusBadRequest, "Invalid device address"
	case errors.Is(err, models.ErrInvalidPurchase):
		return fiber.StatusBadRequest, "Invalid purchase payload"
	case errors.Is(err, models.ErrTokenNotFound):
		return fiber.StatusBadRequest, "Invalid or expired token"
	case errors.Is(err, models.ErrTokenUsed):
		return fiber.StatusBadRequest, "Token already used"
	case errors.Is(err, models.ErrTokenExpired):
		return fiber.StatusBadRequest, "Token expired"
	case errors.Is(err, models.ErrAccountNotFound):
		return fiber.StatusNotFound, "Account not found"
	case errors.Is(err, models.ErrPurchaseNotFound):
		return fiber.StatusNotFound, "Purchase not found"
	case errors.Is(err, models.ErrBalanceConflict):
		return fiber.StatusConflict, "Balance changed concurrently, re-read and retry"
	case errors.Is(err, models.ErrIDExhausted):
		return fiber.StatusInternalServerError, "Unable to allocate account identifier"
	default:
		return fiber.StatusInternalServerError, "Internal server error"
	}
}
