package auth

import (
	"testing"
	"time"
)

func TestGenerateParseJWT_RoundTrip(t *testing.T) {
	token, err := GenerateJWT("secret", "acct000000000001", "player@example.com", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ParseJWT("secret", token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.AccountID != "acct000000000001" || claims.Email != "player@example.com" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Issuer != "kamioza" {
		t.Errorf("issuer = %q", claims.Issuer)
	}
}

func TestParseJWT_WrongSecret(t *testing.T) {
	token, err := GenerateJWT("secret", "acct000000000001", "player@example.com", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ParseJWT("other-secret", token); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestParseJWT_Expired(t *testing.T) {
	token, err := GenerateJWT("secret", "acct000000000001", "player@example.com", time.Nanosecond)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := ParseJWT("secret", token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestParseJWT_Garbage(t *testing.T) {
	if _, err := ParseJWT("secret", "not.a.jwt"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
