package handlers

import (
	"errors"

	"github.com/detomata-com/kamclient/internal/http/dto"
	"github.com/detomata-com/kamclient/internal/models"
	"github.com/detomata-com/kamclient/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type DeviceHandler struct {
	deviceService *services.DeviceService
	log           *zap.Logger
}

func NewDeviceHandler(deviceService *services.DeviceService, log *zap.Logger) *DeviceHandler {
	return &DeviceHandler{deviceService: deviceService, log: log}
}

// Register starts email-mediated device registration.
// POST /device/register
func (h *DeviceHandler) Register(c *fiber.Ctx) error {
	var req dto.DeviceRegistrationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Email == "" || req.PublicKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "email and public_key are required"})
	}

	token, err := h.deviceService.RequestRegistration(c.Context(), req.Email, req.PublicKey, req.DeviceInfo)
	if err != nil {
		// The token survives a failed send so the client can still poll
		// while the player retries by other means.
		if token != "" {
			h.log.Warn("registration email delivery failed", zap.Error(err))
			return c.JSON(dto.RegistrationRequestedResponse{
				Success:    true,
				Message:    "Registration created but the verification email could not be sent. Please try again shortly.",
				EmailSent:  false,
				CheckToken: token,
			})
		}
		code, msg := statusForError(err)
		return c.Status(code).JSON(dto.ErrorResponse{Error: msg})
	}

	return c.JSON(dto.RegistrationRequestedResponse{
		Success:    true,
		Message:    "Verification email sent. Check your inbox to complete registration.",
		EmailSent:  true,
		CheckToken: token,
	})
}

// VerifyRegistration is the mailed-link target.
// POST /device/verify-registration
func (h *DeviceHandler) VerifyRegistration(c *fiber.Ctx) error {
	var req dto.VerifyTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Token == "" {
		req.Token = c.Query("token")
	}
	if req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "token is required"})
	}

	isNew, err := h.deviceService.VerifyRegistration(c.Context(), req.Token)
	if err != nil {
		if errors.Is(err, models.ErrTokenUsed) {
			// Double-click on the mailed link. The device is already
			// attached, report success without re-pairing.
			return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{"message": "Device already registered"}})
		}
		code, msg := statusForError(err)
		return c.Status(code).JSON(dto.ErrorResponse{Error: msg})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{"new_account": isNew}})
}

// CheckRegistration is the game client's polling endpoint.
// GET /device/check-registration?token=...
func (h *DeviceHandler) CheckRegistration(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "token is required"})
	}

	status, err := h.deviceService.CheckRegistration(c.Context(), token)
	if err != nil {
		h.log.Error("registration check failed", zap.Error(err))
		code, msg := statusForError(err)
		return c.Status(code).JSON(dto.ErrorResponse{Error: msg})
	}

	return c.JSON(status)
}
