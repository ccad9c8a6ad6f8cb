package handlers

import (
	"github.com/detomata-com/kamclient/internal/http/dto"
	"github.com/detomata-com/kamclient/internal/middleware"
	"github.com/detomata-com/kamclient/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type PairingHandler struct {
	pairingService *services.PairingService
	log            *zap.Logger
}

func NewPairingHandler(pairingService *services.PairingService, log *zap.Logger) *PairingHandler {
	return &PairingHandler{pairingService: pairingService, log: log}
}

// Request issues a short pairing code for the device to display.
// POST /pairing/request
func (h *PairingHandler) Request(c *fiber.Ctx) error {
	var req dto.PairingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.PublicKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "public_key is required"})
	}

	code, err := h.pairingService.RequestPairing(c.Context(), req.PublicKey, req.DeviceInfo)
	if err != nil {
		h.log.Error("pairing request failed", zap.Error(err))
		status, msg := statusForError(err)
		return c.Status(status).JSON(dto.ErrorResponse{Error: msg})
	}

	return c.JSON(dto.PairingCodeResponse{Code: code})
}

// Status is the device's polling endpoint while the player types the code.
// GET /pairing/status?code=...
func (h *PairingHandler) Status(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "code is required"})
	}

	state, err := h.pairingService.Status(c.Context(), code)
	if err != nil {
		h.log.Error("pairing status check failed", zap.Error(err))
		status, msg := statusForError(err)
		return c.Status(status).JSON(dto.ErrorResponse{Error: msg})
	}

	switch state {
	case services.PairingStateComplete:
		return c.JSON(dto.PairingStatusResponse{Success: true, Complete: true})
	case services.PairingStatePending:
		return c.JSON(dto.PairingStatusResponse{Success: true, Complete: false, Message: "Waiting for pairing"})
	case services.PairingStateExpired:
		return c.JSON(dto.PairingStatusResponse{Success: false, Complete: false, Message: "Pairing code expired"})
	default:
		return c.JSON(dto.PairingStatusResponse{Success: false, Complete: false, Message: "Invalid pairing code"})
	}
}

// Complete attaches the code's device to the signed-in account.
// POST /pairing/complete (requires session)
func (h *PairingHandler) Complete(c *fiber.Ctx) error {
	var req dto.PairingCompleteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "code is required"})
	}

	accountID := middleware.GetAccountID(c)
	if err := h.pairingService.Complete(c.Context(), accountID, req.Code); err != nil {
		h.log.Debug("pairing complete failed", zap.String("account_id", accountID), zap.Error(err))
		status, msg := statusForError(err)
		return c.Status(status).JSON(dto.ErrorResponse{Error: msg})
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}
