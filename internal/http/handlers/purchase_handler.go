package handlers

import (
	"time"

	"github.com/detomata-com/kamclient/internal/devicekey"
	"github.com/detomata-com/kamclient/internal/http/dto"
	"github.com/detomata-com/kamclient/internal/middleware"
	"github.com/detomata-com/kamclient/internal/models"
	"github.com/detomata-com/kamclient/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type PurchaseHandler struct {
	purchaseService *services.PurchaseService
	log             *zap.Logger
}

func NewPurchaseHandler(purchaseService *services.PurchaseService, log *zap.Logger) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: purchaseService, log: log}
}

// Capture records a signed purchase against the session account.
// POST /purchases (requires session)
func (h *PurchaseHandler) Capture(c *fiber.Ctx) error {
	var req dto.CapturePurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.NewBalance == nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "new_balance is required"})
	}

	purchasedAt := time.Now()
	if req.Purchase.Timestamp > 0 {
		purchasedAt = time.UnixMilli(req.Purchase.Timestamp)
	}
	rec := &models.PurchaseRecord{
		PurchaseID:    req.Purchase.PurchaseID,
		ItemID:        req.Purchase.ItemID,
		Quantity:      req.Purchase.Quantity,
		Cost:          req.Purchase.Cost,
		PurchasedAt:   purchasedAt,
		Signature:     req.Purchase.Signature,
		DeviceAddress: req.Purchase.DeviceAddress,
	}

	accountID := middleware.GetAccountID(c)
	if err := h.purchaseService.Capture(c.Context(), accountID, rec, *req.NewBalance); err != nil {
		h.log.Warn("purchase capture failed",
			zap.String("account_id", accountID),
			zap.String("purchase_id", rec.PurchaseID),
			zap.Error(err),
		)
		status, msg := statusForError(err)
		return c.Status(status).JSON(dto.ErrorResponse{Error: msg})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true})
}

// ListPending returns unclaimed purchases. The account comes from an explicit
// accountId query parameter or from the session, whichever is present.
// GET /purchases?accountId=... (optional session)
func (h *PurchaseHandler) ListPending(c *fiber.Ctx) error {
	acct, err := h.purchaseService.ResolveAccount(c.Context(), c.Query("accountId"), middleware.GetEmail(c))
	if err != nil {
		if c.Query("accountId") == "" && middleware.GetEmail(c) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "accountId or session required"})
		}
		status, msg := statusForError(err)
		return c.Status(status).JSON(dto.ErrorResponse{Error: msg})
	}

	pending, err := h.purchaseService.ListPending(c.Context(), acct.AccountID)
	if err != nil {
		h.log.Error("pending purchase list failed", zap.String("account_id", acct.AccountID), zap.Error(err))
		status, msg := statusForError(err)
		return c.Status(status).JSON(dto.ErrorResponse{Error: msg})
	}

	return c.JSON(dto.PendingPurchasesResponse{
		Success:   true,
		Purchases: pending,
		Count:     len(pending),
	})
}

// Claim marks purchases as delivered to a device.
// PUT /purchases/claim (optional session, account_id in body as fallback)
func (h *PurchaseHandler) Claim(c *fiber.Ctx) error {
	var req dto.ClaimPurchasesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	accountID := middleware.GetAccountID(c)
	if accountID == "" {
		accountID = req.AccountID
	}
	if accountID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "account_id or session required"})
	}

	count, err := h.purchaseService.Claim(c.Context(), accountID, req.PurchaseIDs, req.DeviceID)
	if err != nil {
		status, msg := statusForError(err)
		return c.Status(status).JSON(dto.ErrorResponse{Error: msg})
	}

	return c.JSON(dto.ClaimResponse{Success: true, ClaimedCount: count})
}

// VerifySignature checks a purchase signature without touching any state.
// POST /purchases/verify-signature
func (h *PurchaseHandler) VerifySignature(c *fiber.Ctx) error {
	var req dto.VerifySignatureRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	valid := h.purchaseService.VerifySignature(devicekey.PurchasePayload{
		AccountID:  req.AccountID,
		Cost:       req.Cost,
		ItemID:     req.ItemID,
		PurchaseID: req.PurchaseID,
		Timestamp:  req.Timestamp,
	}, req.Signature, req.PublicKey)

	return c.JSON(dto.VerifySignatureResponse{Valid: valid})
}
