package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Token purposes. Each purpose shares the same single-use lifecycle; the
// payload columns differ.
const (
	TokenPurposeLogin        = "login"
	TokenPurposeRegistration = "device_registration"
	TokenPurposePairing      = "pairing"
)

// Token lifecycle states. A token is active until it is consumed or its
// expiry passes; used and expired are terminal.
const (
	TokenStateActive  = "active"
	TokenStateUsed    = "used"
	TokenStateExpired = "expired"
)

// Token is a single-use, time-boxed credential. Login tokens prove inbox
// possession; registration and pairing tokens additionally carry the device
// public key they were issued for.
type Token struct {
	Token      string     `json:"token"`
	Purpose    string     `json:"purpose"`
	Email      string     `json:"email"`
	PublicKey  string     `json:"public_key,omitempty"`
	DeviceInfo DeviceInfo `json:"device_info,omitempty"`
	CreatedAt  time.Time  `json:"-"`
	ExpiresAt  time.Time  `json:"-"`
	Used       bool       `json:"-"`
}

// State classifies the token against wall-clock time. Expiry wins over the
// used flag so that a consumed-then-expired token still reads as used by the
// conditional consume but never as active.
func (t *Token) State(now time.Time) string {
	if t.Used {
		return TokenStateUsed
	}
	if !now.Before(t.ExpiresAt) {
		return TokenStateExpired
	}
	return TokenStateActive
}

// NewTokenValue returns a 256-bit random token rendered as 64 hex chars.
func NewTokenValue() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Pairing codes are typed by humans from a TV screen: short, uppercase, and
// drawn from an alphabet without look-alike symbols (no 0/O, 1/I).
const (
	PairingCodeLength   = 4
	pairingCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

func NewPairingCode() string {
	b := make([]byte, PairingCodeLength)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = pairingCodeAlphabet[int(b[i])%len(pairingCodeAlphabet)]
	}
	return string(b)
}
