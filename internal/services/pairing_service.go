package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/detomata-com/kamclient/internal/config"
	"github.com/detomata-com/kamclient/internal/devicekey"
	"github.com/detomata-com/kamclient/internal/events"
	"github.com/detomata-com/kamclient/internal/models"
	"go.uber.org/zap"
)

// PairingService links a device to an already signed-in account with a short
// human-typed code: the game client requests a code and shows it on screen,
// the player types it into the website, the client polls until complete.
type PairingService struct {
	accounts  AccountStore
	tokens    TokenStore
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
}

func NewPairingService(accounts AccountStore, tokens TokenStore, publisher events.Publisher, cfg *config.Config, log *zap.Logger) *PairingService {
	return &PairingService{accounts: accounts, tokens: tokens, publisher: publisher, cfg: cfg, log: log}
}

// maxCodeAttempts bounds redraws when a 4-char code collides with a live one.
const maxCodeAttempts = 5

// RequestPairing issues a pairing code for the device's public key.
func (s *PairingService) RequestPairing(ctx context.Context, publicKey string, info models.DeviceInfo) (string, error) {
	addr, ok := models.NormalizeAddress(publicKey)
	if !ok {
		return "", models.ErrInvalidAddress
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		t := &models.Token{
			Token:      models.NewPairingCode(),
			Purpose:    models.TokenPurposePairing,
			PublicKey:  addr,
			DeviceInfo: info,
		}
		err := s.tokens.Create(ctx, t, s.cfg.PairingCodeTTL)
		if errors.Is(err, models.ErrTokenExists) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to issue pairing code: %w", err)
		}

		s.log.Info("pairing code issued", zap.String("device", devicekey.Truncate(addr)))
		return t.Token, nil
	}
	return "", fmt.Errorf("failed to issue pairing code: %w", models.ErrTokenExists)
}

// normalizeCode maps whatever the player typed onto the stored form. Codes
// are issued uppercase.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// PairingState values returned by Status.
const (
	PairingStatePending  = "pending"
	PairingStateComplete = "complete"
	PairingStateExpired  = "expired"
	PairingStateInvalid  = "invalid"
)

// Status reports where a pairing code is in its lifecycle. A completed code
// is deleted after the client has seen the terminal answer; expired codes are
// cleaned up lazily right here, sweep or no sweep.
func (s *PairingService) Status(ctx context.Context, code string) (string, error) {
	t, err := s.tokens.Get(ctx, normalizeCode(code))
	if errors.Is(err, models.ErrTokenNotFound) {
		return PairingStateInvalid, nil
	}
	if err != nil {
		return "", err
	}
	if t.Purpose != models.TokenPurposePairing {
		return PairingStateInvalid, nil
	}

	switch t.State(time.Now()) {
	case models.TokenStateExpired:
		_ = s.tokens.Delete(ctx, t.Token)
		return PairingStateExpired, nil
	case models.TokenStateUsed:
		_ = s.tokens.Delete(ctx, t.Token)
		return PairingStateComplete, nil
	}
	return PairingStatePending, nil
}

// Complete consumes the code and pairs its device with the session account.
// The consume is the at-most-once gate: two players racing on the same code
// cannot both attach the device.
func (s *PairingService) Complete(ctx context.Context, accountID, code string) error {
	t, err := s.tokens.Consume(ctx, normalizeCode(code))
	if err != nil {
		return err
	}
	if t.Purpose != models.TokenPurposePairing {
		return models.ErrTokenNotFound
	}

	acct, err := s.accounts.GetByAccountID(ctx, accountID)
	if err != nil {
		return err
	}

	now := time.Now()
	if _, err := s.accounts.UpsertDevice(ctx, acct.AccountID, models.Device{
		Address:    t.PublicKey,
		DeviceName: t.DeviceInfo.Name(now),
		PairedAt:   now,
		LastSeen:   now,
	}); err != nil {
		return fmt.Errorf("failed to pair device: %w", err)
	}

	if perr := s.publisher.Publish(ctx, events.StreamIdentity, events.Event{
		Type:      events.EventPairingCompleted,
		AccountID: acct.AccountID,
		Payload:   map[string]any{"device": devicekey.Truncate(t.PublicKey)},
	}); perr != nil {
		s.log.Warn("failed to publish pairing event", zap.Error(perr))
	}

	s.log.Info("device paired",
		zap.String("account_id", acct.AccountID),
		zap.String("device", devicekey.Truncate(t.PublicKey)),
	)
	return nil
}
