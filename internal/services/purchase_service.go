package services

import (
	"context"
	"fmt"

	"github.com/detomata-com/kamclient/internal/devicekey"
	"github.com/detomata-com/kamclient/internal/events"
	"github.com/detomata-com/kamclient/internal/models"
	"go.uber.org/zap"
)

// PurchaseService fronts the per-account purchase ledger: capture a signed
// purchase with its balance debit, list what a device has not yet pulled
// down, and mark records claimed.
type PurchaseService struct {
	accounts  AccountStore
	purchases PurchaseStore
	publisher events.Publisher
	log       *zap.Logger
}

func NewPurchaseService(accounts AccountStore, purchases PurchaseStore, publisher events.Publisher, log *zap.Logger) *PurchaseService {
	return &PurchaseService{accounts: accounts, purchases: purchases, publisher: publisher, log: log}
}

// Capture applies a signed purchase: the balance overwrite and the record
// append are a single atomic unit in the store. The caller computed
// newBalance from a fresh read; a stale read surfaces as ErrBalanceConflict
// and is safe to retry. Signatures are not re-verified here — that boundary
// belongs to VerifySignature and the game client.
func (s *PurchaseService) Capture(ctx context.Context, accountID string, rec *models.PurchaseRecord, newBalance int64) error {
	if rec.PurchaseID == "" || rec.ItemID == "" {
		return models.ErrInvalidPurchase
	}
	if rec.Cost <= 0 || newBalance < 0 {
		return models.ErrInvalidPurchase
	}
	if rec.Quantity <= 0 {
		rec.Quantity = 1
	}
	if rec.DeviceAddress != "" {
		addr, ok := models.NormalizeAddress(rec.DeviceAddress)
		if !ok {
			return models.ErrInvalidAddress
		}
		rec.DeviceAddress = addr
	}

	if err := s.purchases.Apply(ctx, accountID, rec, newBalance); err != nil {
		return err
	}

	if perr := s.publisher.Publish(ctx, events.StreamIdentity, events.Event{
		Type:      events.EventPurchaseCaptured,
		AccountID: accountID,
		Payload:   map[string]any{"purchase_id": rec.PurchaseID, "item_id": rec.ItemID, "cost": rec.Cost},
	}); perr != nil {
		s.log.Warn("failed to publish purchase event", zap.Error(perr))
	}

	s.log.Info("purchase captured",
		zap.String("account_id", accountID),
		zap.String("purchase_id", rec.PurchaseID),
		zap.Int64("cost", rec.Cost),
		zap.Int64("new_balance", newBalance),
	)
	return nil
}

// ListPending returns the account's unclaimed purchases with catalog
// expansion.
func (s *PurchaseService) ListPending(ctx context.Context, accountID string) ([]models.PendingPurchase, error) {
	return s.purchases.ListPending(ctx, accountID)
}

// Claim marks purchases as received by a device. Idempotent: the returned
// count covers newly-claimed records only.
func (s *PurchaseService) Claim(ctx context.Context, accountID string, purchaseIDs []string, deviceID string) (int64, error) {
	if len(purchaseIDs) == 0 || deviceID == "" {
		return 0, models.ErrInvalidPurchase
	}

	count, err := s.purchases.Claim(ctx, accountID, purchaseIDs, deviceID)
	if err != nil {
		return 0, err
	}

	s.log.Info("purchases claimed",
		zap.String("account_id", accountID),
		zap.String("device", devicekey.Truncate(deviceID)),
		zap.Int64("claimed", count),
	)
	return count, nil
}

// ResolveAccount maps the two game-client identity paths onto one account:
// an explicit accountId parameter wins, otherwise the session email is used.
// Both must yield identical results for identical account state.
func (s *PurchaseService) ResolveAccount(ctx context.Context, accountID, sessionEmail string) (*models.Account, error) {
	if accountID != "" {
		return s.accounts.GetByAccountID(ctx, accountID)
	}
	if sessionEmail != "" {
		return s.accounts.GetByEmail(ctx, sessionEmail)
	}
	return nil, models.ErrAccountNotFound
}

// VerifySignature checks a purchase signature against a device address.
// Pure passthrough to the crypto layer; false covers every failure mode.
func (s *PurchaseService) VerifySignature(p devicekey.PurchasePayload, signatureHex, publicKeyHex string) bool {
	if !models.IsSigningAddress(publicKeyHex) {
		return false
	}
	return devicekey.Verify(p, signatureHex, publicKeyHex)
}

// AccountWithDevices loads an account plus its trusted devices for /me.
func (s *PurchaseService) AccountWithDevices(ctx context.Context, accountID string) (*models.Account, error) {
	acct, err := s.accounts.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	devices, err := s.accounts.ListDevices(ctx, acct.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	acct.TrustedDevices = devices
	return acct, nil
}
