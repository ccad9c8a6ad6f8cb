package devicekey

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"strings"
)

// Verify checks an ECDSA purchase signature against a device address. It
// reconstructs the canonical message exactly as SignPurchase does and returns
// false on any malformed input: the caller must treat false and error
// identically, so no error is surfaced. Safe for attacker-controlled input;
// no side effects.
func Verify(p PurchasePayload, signatureHex, publicKeyHex string) bool {
	pub, ok := parsePublicKeyHex(publicKeyHex)
	if !ok {
		return false
	}

	sig, err := hex.DecodeString(strings.TrimSpace(signatureHex))
	if err != nil || len(sig) != 64 {
		return false
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])

	hash := sha256.Sum256(CanonicalMessage(p))
	return ecdsa.Verify(pub, hash[:], r, s)
}

// parsePublicKeyHex decodes an uncompressed P-256 point. The leading 04
// marker is accepted with or without, since older clients omit it.
func parsePublicKeyHex(publicKeyHex string) (*ecdsa.PublicKey, bool) {
	h := strings.ToLower(strings.TrimSpace(publicKeyHex))
	if len(h) == 130 && strings.HasPrefix(h, "04") {
		h = h[2:]
	}
	if len(h) != 128 {
		return nil, false
	}

	raw, err := hex.DecodeString(h)
	if err != nil {
		return nil, false
	}

	curve := elliptic.P256()
	x := new(big.Int).SetBytes(raw[:32])
	y := new(big.Int).SetBytes(raw[32:])
	if !curve.IsOnCurve(x, y) {
		return nil, false
	}

	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, true
}
