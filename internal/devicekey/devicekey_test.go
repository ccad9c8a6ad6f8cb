package devicekey

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return &Signer{key: key}
}

func testPayload() PurchasePayload {
	return PurchasePayload{
		AccountID:  "a1B2c3D4e5F6g7H8",
		Cost:       150,
		ItemID:     "starter_pack",
		PurchaseID: "purchase-001",
		Timestamp:  1724900000000,
	}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	signer := newTestSigner(t)

	sig, err := signer.SignPurchase(testPayload())
	if err != nil {
		t.Fatal(err)
	}
	if len(sig) != 128 {
		t.Fatalf("signature length = %d, want 128 hex chars", len(sig))
	}

	if !Verify(testPayload(), sig, signer.PublicKeyHex()) {
		t.Fatal("expected signature to verify against signing key")
	}
}

func TestVerify_WrongKey(t *testing.T) {
	signer := newTestSigner(t)
	other := newTestSigner(t)

	sig, err := signer.SignPurchase(testPayload())
	if err != nil {
		t.Fatal(err)
	}

	if Verify(testPayload(), sig, other.PublicKeyHex()) {
		t.Fatal("signature verified against a different key")
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	signer := newTestSigner(t)

	sig, err := signer.SignPurchase(testPayload())
	if err != nil {
		t.Fatal(err)
	}

	tampered := testPayload()
	tampered.Cost = 1

	if Verify(tampered, sig, signer.PublicKeyHex()) {
		t.Fatal("signature verified after payload tampering")
	}
}

func TestVerify_MalformedInputs(t *testing.T) {
	signer := newTestSigner(t)
	sig, err := signer.SignPurchase(testPayload())
	if err != nil {
		t.Fatal(err)
	}
	pub := signer.PublicKeyHex()

	tests := []struct {
		name string
		sig  string
		pub  string
	}{
		{"empty signature", "", pub},
		{"non-hex signature", "zz" + sig[2:], pub},
		{"truncated signature", sig[:64], pub},
		{"empty public key", sig, ""},
		{"non-hex public key", sig, "04zz" + pub[4:]},
		{"truncated public key", sig, pub[:66]},
		{"point not on curve", sig, "04" + string(bytes.Repeat([]byte("f"), 128))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Verify(testPayload(), tt.sig, tt.pub) {
				t.Error("expected verification to fail")
			}
		})
	}
}

func TestVerify_AcceptsBareCoordinates(t *testing.T) {
	signer := newTestSigner(t)
	sig, err := signer.SignPurchase(testPayload())
	if err != nil {
		t.Fatal(err)
	}

	// 128 hex chars without the 04 prefix
	bare := signer.PublicKeyHex()[2:]
	if !Verify(testPayload(), sig, bare) {
		t.Fatal("expected bare-coordinate public key to verify")
	}
}

func TestCanonicalMessage_Deterministic(t *testing.T) {
	a := CanonicalMessage(testPayload())
	b := CanonicalMessage(testPayload())
	if !bytes.Equal(a, b) {
		t.Fatalf("canonical message not deterministic: %s vs %s", a, b)
	}
}

func TestCanonicalMessage_SortedKeys(t *testing.T) {
	want := `{"accountId":"a1B2c3D4e5F6g7H8","cost":150,"itemId":"starter_pack","purchaseId":"purchase-001","timestamp":1724900000000}`
	got := string(CanonicalMessage(testPayload()))
	if got != want {
		t.Fatalf("canonical message = %s, want %s", got, want)
	}
}

func TestCanonicalMessage_NoHTMLEscaping(t *testing.T) {
	p := testPayload()
	p.ItemID = `sword<&>shield`

	want := `{"accountId":"a1B2c3D4e5F6g7H8","cost":150,"itemId":"sword<&>shield","purchaseId":"purchase-001","timestamp":1724900000000}`
	got := string(CanonicalMessage(p))
	if got != want {
		t.Fatalf("canonical message = %s, want raw <&> bytes", got)
	}
}

func TestKeyStore_PersistsIdentity(t *testing.T) {
	dir := t.TempDir()
	ks := NewKeyStore(dir, zap.NewNop())

	addr1, _, err := ks.GetOrCreateIdentity()
	if err != nil {
		t.Fatal(err)
	}
	if len(addr1) != 130 || addr1[:2] != "04" {
		t.Fatalf("address = %q, want 04-prefixed 130 hex chars", addr1)
	}

	addr2, _, err := ks.GetOrCreateIdentity()
	if err != nil {
		t.Fatal(err)
	}
	if addr1 != addr2 {
		t.Fatalf("identity changed across loads: %s vs %s", addr1, addr2)
	}
}

func TestKeyStore_SignaturesSurviveReload(t *testing.T) {
	dir := t.TempDir()

	ks := NewKeyStore(dir, zap.NewNop())
	addr, signer, err := ks.GetOrCreateIdentity()
	if err != nil {
		t.Fatal(err)
	}
	sig, err := signer.SignPurchase(testPayload())
	if err != nil {
		t.Fatal(err)
	}

	_, reloaded, err := NewKeyStore(dir, zap.NewNop()).GetOrCreateIdentity()
	if err != nil {
		t.Fatal(err)
	}
	sig2, err := reloaded.SignPurchase(testPayload())
	if err != nil {
		t.Fatal(err)
	}

	if !Verify(testPayload(), sig, addr) || !Verify(testPayload(), sig2, addr) {
		t.Fatal("signatures from before and after reload must both verify")
	}
}

func TestKeyStore_CorruptFileRegenerates(t *testing.T) {
	dir := t.TempDir()
	ks := NewKeyStore(dir, zap.NewNop())

	addr1, _, err := ks.GetOrCreateIdentity()
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, keyFileName), []byte("not a pem"), 0o600); err != nil {
		t.Fatal(err)
	}

	addr2, signer, err := ks.GetOrCreateIdentity()
	if err != nil {
		t.Fatalf("corrupt key file should fall back to generation, got %v", err)
	}
	if addr2 == addr1 {
		t.Fatal("expected a fresh identity after corruption")
	}

	sig, err := signer.SignPurchase(testPayload())
	if err != nil {
		t.Fatal(err)
	}
	if !Verify(testPayload(), sig, addr2) {
		t.Fatal("regenerated identity must produce valid signatures")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("0123456789abcdef0123"); got != "0123456789abcdef..." {
		t.Errorf("Truncate long = %q", got)
	}
	if got := Truncate("short"); got != "short" {
		t.Errorf("Truncate short = %q", got)
	}
}
