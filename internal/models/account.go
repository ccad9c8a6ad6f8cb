package models

import (
	"regexp"
	"strings"
	"time"
)

type Account struct {
	AccountID      string    `json:"account_id"`
	Email          string    `json:"email"`
	Playername     string    `json:"playername"`
	Credits        int64     `json:"credits"`
	EmailValidated bool      `json:"email_validated"`
	TrustedDevices []Device  `json:"trusted_devices,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Device is one client installation's signing identity, owned by exactly
// one account. Equality is case-insensitive on Address.
type Device struct {
	Address    string    `json:"address"`
	DeviceName string    `json:"device_name"`
	PairedAt   time.Time `json:"paired_at"`
	LastSeen   time.Time `json:"last_seen"`
}

type DeviceInfo struct {
	Platform   string `json:"platform,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	DeviceName string `json:"device_name,omitempty"`
}

// Name picks a human-readable device name, falling back to the platform
// plus pairing date when the client did not send one.
func (d DeviceInfo) Name(pairedAt time.Time) string {
	if d.DeviceName != "" {
		return d.DeviceName
	}
	platform := d.Platform
	if platform == "" {
		platform = "Game Client"
	}
	return platform + " - " + pairedAt.Format("2006-01-02")
}

var (
	// Canonical device address: 65-byte uncompressed P-256 point, hex.
	ecPointAddressRe = regexp.MustCompile(`^04[0-9a-f]{128}$`)
	// Legacy short address still emitted by game clients in the field.
	legacyAddressRe = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// NormalizeAddress lowercases a device address and reports whether it is one
// of the two accepted encodings. Comparison everywhere else happens on the
// normalized form, so re-pairing with different casing never duplicates a
// device.
func NormalizeAddress(address string) (string, bool) {
	addr := strings.ToLower(strings.TrimSpace(address))
	if ecPointAddressRe.MatchString(addr) || legacyAddressRe.MatchString(addr) {
		return addr, true
	}
	return "", false
}

// IsSigningAddress reports whether the address carries a full public key and
// can therefore verify purchase signatures. Legacy 0x addresses cannot.
func IsSigningAddress(address string) bool {
	return ecPointAddressRe.MatchString(strings.ToLower(address))
}

// NormalizeEmail lowercases an email; the lowercase form is the uniqueness
// key for accounts.
func NormalizeEmail(email string) (string, bool) {
	e := strings.ToLower(strings.TrimSpace(email))
	if !emailRe.MatchString(e) {
		return "", false
	}
	return e, true
}

// DefaultPlayername derives the initial playername from the email local part.
func DefaultPlayername(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return "Player"
}
