package handlers

import (
	"github.com/detomata-com/kamclient/internal/http/dto"
	"github.com/detomata-com/kamclient/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *services.AuthService
	log         *zap.Logger
}

func NewAuthHandler(authService *services.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// RequestMagicLink issues a login token and mails the sign-in link.
// POST /auth/magic-link/request
func (h *AuthHandler) RequestMagicLink(c *fiber.Ctx) error {
	var req dto.MagicLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "email is required"})
	}

	if err := h.authService.RequestLogin(c.Context(), req.Email); err != nil {
		h.log.Error("magic link request failed", zap.Error(err))
		code, msg := statusForError(err)
		return c.Status(code).JSON(dto.ErrorResponse{Error: msg})
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

// VerifyMagicLink consumes a login token and returns a session.
// POST /auth/magic-link/verify
func (h *AuthHandler) VerifyMagicLink(c *fiber.Ctx) error {
	var req dto.VerifyTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "token is required"})
	}

	acct, session, err := h.authService.VerifyLogin(c.Context(), req.Token)
	if err != nil {
		h.log.Debug("magic link verify failed", zap.Error(err))
		code, msg := statusForError(err)
		return c.Status(code).JSON(dto.ErrorResponse{Error: msg})
	}

	return c.JSON(dto.AuthResponse{Token: session, Account: acct})
}
