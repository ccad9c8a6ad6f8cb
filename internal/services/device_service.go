package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/detomata-com/kamclient/internal/config"
	"github.com/detomata-com/kamclient/internal/devicekey"
	"github.com/detomata-com/kamclient/internal/events"
	"github.com/detomata-com/kamclient/internal/models"
	"go.uber.org/zap"
)

// DeviceService drives email-mediated device registration: a game client
// submits its public key, the account owner proves inbox possession by
// clicking the mailed link, and the device lands in trustedDevices.
type DeviceService struct {
	accounts  AccountStore
	tokens    TokenStore
	mailer    Mailer
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
}

func NewDeviceService(
	accounts AccountStore,
	tokens TokenStore,
	mailer Mailer,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *DeviceService {
	return &DeviceService{
		accounts:  accounts,
		tokens:    tokens,
		mailer:    mailer,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

// RequestRegistration issues a device-registration token carrying the device
// public key and mails the verification link. The returned token doubles as
// the handle the game client polls with. When the send fails the token is
// still returned alongside the error: issuance is never rolled back.
func (s *DeviceService) RequestRegistration(ctx context.Context, email, publicKey string, info models.DeviceInfo) (string, error) {
	normEmail, ok := models.NormalizeEmail(email)
	if !ok {
		return "", models.ErrInvalidEmail
	}
	addr, ok := models.NormalizeAddress(publicKey)
	if !ok {
		return "", models.ErrInvalidAddress
	}

	t := &models.Token{
		Token:      models.NewTokenValue(),
		Purpose:    models.TokenPurposeRegistration,
		Email:      normEmail,
		PublicKey:  addr,
		DeviceInfo: info,
	}
	if err := s.tokens.Create(ctx, t, s.cfg.RegistrationTokenTTL); err != nil {
		return "", fmt.Errorf("failed to issue registration token: %w", err)
	}

	link := fmt.Sprintf("%s/auth/verify-registration?token=%s", s.cfg.BaseURL, t.Token)
	err := s.mailer.Send(ctx, normEmail,
		"Complete Your Kamioza Device Registration",
		VerifyLinkHTML("Welcome to Kamioza!", "complete your device registration", "Complete Registration", link),
		VerifyLinkText("complete your device registration", link),
	)
	if err != nil {
		s.log.Error("failed to send registration email",
			zap.String("email", normEmail),
			zap.String("device", devicekey.Truncate(addr)),
			zap.Error(err),
		)
		return t.Token, fmt.Errorf("failed to send registration email: %w", err)
	}

	s.log.Info("registration link sent",
		zap.String("email", normEmail),
		zap.String("device", devicekey.Truncate(addr)),
	)
	return t.Token, nil
}

// VerifyRegistration pairs the token's device and then consumes the token.
// The account and device writes are idempotent, so they run before the
// consume: a storage failure leaves the token live for a retry click, and the
// consume stays the at-most-once gate for the completion event. A second
// click reports already-used and adds nothing. Re-pairing a known address
// only refreshes last_seen.
func (s *DeviceService) VerifyRegistration(ctx context.Context, token string) (isNewAccount bool, err error) {
	t, err := s.tokens.Get(ctx, token)
	if err != nil {
		return false, err
	}
	if t.Purpose != models.TokenPurposeRegistration {
		return false, models.ErrTokenNotFound
	}
	switch t.State(time.Now()) {
	case models.TokenStateUsed:
		return false, models.ErrTokenUsed
	case models.TokenStateExpired:
		return false, models.ErrTokenExpired
	}

	existing, err := s.accounts.GetByEmail(ctx, t.Email)
	if err != nil && !errors.Is(err, models.ErrAccountNotFound) {
		return false, fmt.Errorf("failed to look up account: %w", err)
	}
	isNewAccount = existing == nil

	acct, err := s.accounts.ResolveOrCreate(ctx, t.Email)
	if err != nil {
		return false, fmt.Errorf("failed to resolve account: %w", err)
	}
	if err := s.accounts.SetEmailValidated(ctx, acct.Email); err != nil {
		s.log.Warn("failed to mark email validated", zap.Error(err))
	}

	now := time.Now()
	inserted, err := s.accounts.UpsertDevice(ctx, acct.AccountID, models.Device{
		Address:    t.PublicKey,
		DeviceName: t.DeviceInfo.Name(now),
		PairedAt:   now,
		LastSeen:   now,
	})
	if err != nil {
		return false, fmt.Errorf("failed to pair device: %w", err)
	}

	if _, err := s.tokens.Consume(ctx, token); err != nil {
		return false, err
	}

	if perr := s.publisher.Publish(ctx, events.StreamIdentity, events.Event{
		Type:      events.EventRegistrationCompleted,
		AccountID: acct.AccountID,
		Payload:   map[string]any{"device": devicekey.Truncate(t.PublicKey), "new_account": isNewAccount},
	}); perr != nil {
		s.log.Warn("failed to publish registration event", zap.Error(perr))
	}

	s.log.Info("device registered",
		zap.String("account_id", acct.AccountID),
		zap.String("device", devicekey.Truncate(t.PublicKey)),
		zap.Bool("new_account", isNewAccount),
		zap.Bool("new_device", inserted),
	)
	return isNewAccount, nil
}

// RegistrationStatus is the poll result for a pending registration.
type RegistrationStatus struct {
	Verified  bool   `json:"verified"`
	Message   string `json:"message"`
	AccountID string `json:"account_id,omitempty"`
	Email     string `json:"email,omitempty"`
}

// CheckRegistration is the game client's polling endpoint. Peeking never
// consumes; a used token means the mailed link was clicked, at which point
// the accountId is handed over and the token is cleaned up.
func (s *DeviceService) CheckRegistration(ctx context.Context, token string) (*RegistrationStatus, error) {
	t, err := s.tokens.Get(ctx, token)
	if errors.Is(err, models.ErrTokenNotFound) {
		return &RegistrationStatus{Verified: false, Message: "Token expired or invalid"}, nil
	}
	if err != nil {
		return nil, err
	}

	switch t.State(time.Now()) {
	case models.TokenStateExpired:
		_ = s.tokens.Delete(ctx, t.Token)
		return &RegistrationStatus{Verified: false, Message: "Token expired"}, nil
	case models.TokenStateActive:
		return &RegistrationStatus{Verified: false, Message: "Waiting for email verification"}, nil
	}

	acct, err := s.accounts.GetByEmail(ctx, t.Email)
	if errors.Is(err, models.ErrAccountNotFound) {
		return &RegistrationStatus{Verified: false, Message: "Account not found - verification may still be processing"}, nil
	}
	if err != nil {
		return nil, err
	}

	_ = s.tokens.Delete(ctx, t.Token)
	return &RegistrationStatus{
		Verified:  true,
		Message:   "Registration complete!",
		AccountID: acct.AccountID,
		Email:     acct.Email,
	}, nil
}
