package devicekey

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
)

// Signer produces purchase signatures with the device's private key. Obtained
// from KeyStore.GetOrCreateIdentity; the key itself is not exported.
type Signer struct {
	key *ecdsa.PrivateKey
}

// SignPurchase signs the canonical form of the payload with ECDSA over
// SHA-256. The signature is the raw 64-byte r‖s concatenation, hex-encoded,
// matching what Verify expects.
func (s *Signer) SignPurchase(p PurchasePayload) (string, error) {
	hash := sha256.Sum256(CanonicalMessage(p))

	r, sv, err := ecdsa.Sign(rand.Reader, s.key, hash[:])
	if err != nil {
		return "", fmt.Errorf("failed to sign purchase: %w", err)
	}

	return fmt.Sprintf("%064x%064x", r, sv), nil
}

// PublicKeyHex returns the signer's device address.
func (s *Signer) PublicKeyHex() string {
	return PublicKeyHex(&s.key.PublicKey)
}
