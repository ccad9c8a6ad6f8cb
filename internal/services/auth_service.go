package services

import (
	"context"
	"fmt"

	"github.com/detomata-com/kamclient/internal/auth"
	"github.com/detomata-com/kamclient/internal/config"
	"github.com/detomata-com/kamclient/internal/devicekey"
	"github.com/detomata-com/kamclient/internal/models"
	"go.uber.org/zap"
)

// AuthService drives the magic-link login flow: issue a single-use token,
// mail the verification link, and on verify resolve the account and mint a
// session JWT.
type AuthService struct {
	accounts AccountStore
	tokens   TokenStore
	mailer   Mailer
	cfg      *config.Config
	log      *zap.Logger
}

func NewAuthService(accounts AccountStore, tokens TokenStore, mailer Mailer, cfg *config.Config, log *zap.Logger) *AuthService {
	return &AuthService{accounts: accounts, tokens: tokens, mailer: mailer, cfg: cfg, log: log}
}

// RequestLogin issues a login token and mails the sign-in link. Issuance and
// delivery are separate steps: a failed send is reported to the caller but
// the token stays issued, so a retry of the send does not mint another one.
func (s *AuthService) RequestLogin(ctx context.Context, email string) error {
	normEmail, ok := models.NormalizeEmail(email)
	if !ok {
		return models.ErrInvalidEmail
	}

	t := &models.Token{
		Token:   models.NewTokenValue(),
		Purpose: models.TokenPurposeLogin,
		Email:   normEmail,
	}
	if err := s.tokens.Create(ctx, t, s.cfg.LoginTokenTTL); err != nil {
		return fmt.Errorf("failed to issue login token: %w", err)
	}

	link := fmt.Sprintf("%s/auth/verify?token=%s", s.cfg.BaseURL, t.Token)
	err := s.mailer.Send(ctx, normEmail,
		"Sign in to Kamioza",
		VerifyLinkHTML("Welcome to Kamioza!", "sign in to your account", "Sign In to Kamioza", link),
		VerifyLinkText("sign in to your account", link),
	)
	if err != nil {
		s.log.Error("failed to send login email",
			zap.String("email", normEmail),
			zap.String("token", devicekey.Truncate(t.Token)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send login email: %w", err)
	}

	s.log.Info("login link sent", zap.String("email", normEmail))
	return nil
}

// VerifyLogin consumes a login token. First contact creates the account; in
// both cases the email is marked validated and a session token is returned.
// The used token stays in the table until the sweep: a second click on the
// same link must classify as already-used, not unknown. Mail clients that
// prefetch links hit this constantly.
func (s *AuthService) VerifyLogin(ctx context.Context, token string) (*models.Account, string, error) {
	t, err := s.tokens.Consume(ctx, token)
	if err != nil {
		return nil, "", err
	}
	if t.Purpose != models.TokenPurposeLogin {
		return nil, "", models.ErrTokenNotFound
	}

	acct, err := s.accounts.ResolveOrCreate(ctx, t.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve account: %w", err)
	}

	if !acct.EmailValidated {
		if err := s.accounts.SetEmailValidated(ctx, acct.Email); err != nil {
			s.log.Warn("failed to mark email validated", zap.Error(err))
		} else {
			acct.EmailValidated = true
		}
	}

	session, err := auth.GenerateJWT(s.cfg.JWTSecret, acct.AccountID, acct.Email, s.cfg.JWTExpiration)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate session token: %w", err)
	}

	s.log.Info("login verified", zap.String("account_id", acct.AccountID))
	return acct, session, nil
}
