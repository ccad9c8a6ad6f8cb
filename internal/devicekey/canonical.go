package devicekey

import (
	"bytes"
	"encoding/json"
)

// PurchasePayload is the exact set of fields covered by a purchase signature.
type PurchasePayload struct {
	// Field order matches the lexicographic key order of the wire format.
	AccountID  string `json:"accountId"`
	Cost       int64  `json:"cost"`
	ItemID     string `json:"itemId"`
	PurchaseID string `json:"purchaseId"`
	Timestamp  int64  `json:"timestamp"`
}

// CanonicalMessage serializes a payload with keys in sorted order. Signing
// and verification must hash byte-identical input across every client, so
// HTML escaping is disabled: '<', '>' and '&' stay raw bytes rather than
// unicode escapes.
func CanonicalMessage(p PurchasePayload) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(p)
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}
