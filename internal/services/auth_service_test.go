package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/detomata-com/kamclient/internal/auth"
	"github.com/detomata-com/kamclient/internal/models"
	"go.uber.org/zap"
)

func newAuthService(accounts *fakeAccounts, tokens *fakeTokens, mailer *fakeMailer) *AuthService {
	return NewAuthService(accounts, tokens, mailer, testConfig(), zap.NewNop())
}

func issuedToken(t *testing.T, tokens *fakeTokens) string {
	t.Helper()
	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	var live []string
	for k, tok := range tokens.tokens {
		if !tok.Used {
			live = append(live, k)
		}
	}
	if len(live) != 1 {
		t.Fatalf("expected exactly 1 live token, have %d", len(live))
	}
	return live[0]
}

func TestRequestLogin_InvalidEmail(t *testing.T) {
	svc := newAuthService(newFakeAccounts(), newFakeTokens(), &fakeMailer{})

	err := svc.RequestLogin(context.Background(), "not-an-email")
	if !errors.Is(err, models.ErrInvalidEmail) {
		t.Fatalf("err = %v, want ErrInvalidEmail", err)
	}
}

func TestRequestLogin_SendsLink(t *testing.T) {
	tokens := newFakeTokens()
	mailer := &fakeMailer{}
	svc := newAuthService(newFakeAccounts(), tokens, mailer)

	if err := svc.RequestLogin(context.Background(), "Player@Example.com"); err != nil {
		t.Fatal(err)
	}

	tok := issuedToken(t, tokens)
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(mailer.sent))
	}
	if mailer.sent[0].to != "player@example.com" {
		t.Errorf("mail to %q, want normalized email", mailer.sent[0].to)
	}
	if !strings.Contains(mailer.sent[0].html, tok) {
		t.Error("mail body does not contain the issued token link")
	}
}

func TestRequestLogin_MailFailureKeepsToken(t *testing.T) {
	tokens := newFakeTokens()
	mailer := &fakeMailer{fail: errors.New("smtp down")}
	svc := newAuthService(newFakeAccounts(), tokens, mailer)

	err := svc.RequestLogin(context.Background(), "player@example.com")
	if err == nil {
		t.Fatal("expected delivery error")
	}

	// Issuance is not rolled back: the token is still consumable.
	tok := issuedToken(t, tokens)
	if _, cerr := tokens.Consume(context.Background(), tok); cerr != nil {
		t.Fatalf("token should still be live after failed send, got %v", cerr)
	}
}

func TestVerifyLogin_CreatesAccountAndSession(t *testing.T) {
	accounts := newFakeAccounts()
	tokens := newFakeTokens()
	svc := newAuthService(accounts, tokens, &fakeMailer{})

	if err := svc.RequestLogin(context.Background(), "player@example.com"); err != nil {
		t.Fatal(err)
	}
	tok := issuedToken(t, tokens)

	acct, session, err := svc.VerifyLogin(context.Background(), tok)
	if err != nil {
		t.Fatal(err)
	}
	if acct.Email != "player@example.com" {
		t.Errorf("account email = %q", acct.Email)
	}
	if !acct.EmailValidated {
		t.Error("verification must mark the email validated")
	}
	if acct.Playername != "player" {
		t.Errorf("playername = %q, want email local part", acct.Playername)
	}

	claims, err := auth.ParseJWT(testConfig().JWTSecret, session)
	if err != nil {
		t.Fatalf("session token does not parse: %v", err)
	}
	if claims.AccountID != acct.AccountID || claims.Email != acct.Email {
		t.Errorf("claims = %+v, want account identity", claims)
	}
}

func TestVerifyLogin_SameEmailSameAccount(t *testing.T) {
	accounts := newFakeAccounts()
	tokens := newFakeTokens()
	svc := newAuthService(accounts, tokens, &fakeMailer{})

	var ids []string
	for i := 0; i < 2; i++ {
		if err := svc.RequestLogin(context.Background(), "player@example.com"); err != nil {
			t.Fatal(err)
		}
		tok := issuedToken(t, tokens)
		acct, _, err := svc.VerifyLogin(context.Background(), tok)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, acct.AccountID)
	}

	if ids[0] != ids[1] {
		t.Fatalf("same email resolved to different accounts: %s vs %s", ids[0], ids[1])
	}
}

func TestVerifyLogin_SingleUse(t *testing.T) {
	tokens := newFakeTokens()
	svc := newAuthService(newFakeAccounts(), tokens, &fakeMailer{})

	if err := svc.RequestLogin(context.Background(), "player@example.com"); err != nil {
		t.Fatal(err)
	}
	tok := issuedToken(t, tokens)

	if _, _, err := svc.VerifyLogin(context.Background(), tok); err != nil {
		t.Fatal(err)
	}
	// A prefetched or double-clicked link must read as already used, not as
	// an unknown token.
	if _, _, err := svc.VerifyLogin(context.Background(), tok); !errors.Is(err, models.ErrTokenUsed) {
		t.Fatalf("second verify: err = %v, want ErrTokenUsed", err)
	}
}

func TestVerifyLogin_ExpiredToken(t *testing.T) {
	tokens := newFakeTokens()
	svc := newAuthService(newFakeAccounts(), tokens, &fakeMailer{})

	if err := svc.RequestLogin(context.Background(), "player@example.com"); err != nil {
		t.Fatal(err)
	}
	tok := issuedToken(t, tokens)
	tokens.expire(tok)

	// No sweep has run; expiry must still be enforced at consume time.
	if _, _, err := svc.VerifyLogin(context.Background(), tok); !errors.Is(err, models.ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyLogin_WrongPurpose(t *testing.T) {
	tokens := newFakeTokens()
	svc := newAuthService(newFakeAccounts(), tokens, &fakeMailer{})

	tok := &models.Token{Token: models.NewTokenValue(), Purpose: models.TokenPurposePairing}
	if err := tokens.Create(context.Background(), tok, testConfig().PairingCodeTTL); err != nil {
		t.Fatal(err)
	}

	if _, _, err := svc.VerifyLogin(context.Background(), tok.Token); !errors.Is(err, models.ErrTokenNotFound) {
		t.Fatalf("err = %v, want ErrTokenNotFound for non-login token", err)
	}
}
