package handlers

import (
	"github.com/detomata-com/kamclient/internal/http/dto"
	"github.com/detomata-com/kamclient/internal/middleware"
	"github.com/detomata-com/kamclient/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AccountHandler struct {
	purchaseService *services.PurchaseService
	log             *zap.Logger
}

func NewAccountHandler(purchaseService *services.PurchaseService, log *zap.Logger) *AccountHandler {
	return &AccountHandler{purchaseService: purchaseService, log: log}
}

// Me returns the session account with its trusted devices.
// GET /me (requires session)
func (h *AccountHandler) Me(c *fiber.Ctx) error {
	accountID := middleware.GetAccountID(c)

	acct, err := h.purchaseService.AccountWithDevices(c.Context(), accountID)
	if err != nil {
		h.log.Error("account lookup failed", zap.String("account_id", accountID), zap.Error(err))
		status, msg := statusForError(err)
		return c.Status(status).JSON(dto.ErrorResponse{Error: msg})
	}

	return c.JSON(acct)
}
