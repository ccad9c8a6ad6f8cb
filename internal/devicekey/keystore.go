package devicekey

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const keyFileName = "device_key.pem"

// KeyStore owns the device's P-256 signing keypair, persisted under a single
// well-known file. The private half never leaves the device.
type KeyStore struct {
	path string
	log  *zap.Logger
}

func NewKeyStore(dir string, log *zap.Logger) *KeyStore {
	return &KeyStore{path: filepath.Join(dir, keyFileName), log: log}
}

// GetOrCreateIdentity loads the persisted keypair, generating and persisting
// a fresh one on first use. An unreadable or corrupt key file also falls back
// to generation: that invalidates every signature this device has produced,
// so it is logged loudly rather than swallowed.
func (ks *KeyStore) GetOrCreateIdentity() (string, *Signer, error) {
	data, err := os.ReadFile(ks.path)
	if err == nil {
		key, perr := parseKeyPEM(data)
		if perr == nil {
			return PublicKeyHex(&key.PublicKey), &Signer{key: key}, nil
		}
		ks.log.Warn("stored device key is unreadable, generating a new identity; all previously issued signatures are now invalid",
			zap.String("path", ks.path),
			zap.Error(perr),
		)
	} else if !os.IsNotExist(err) {
		return "", nil, fmt.Errorf("failed to read device key: %w", err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate device key: %w", err)
	}
	if err := ks.persist(key); err != nil {
		return "", nil, err
	}

	ks.log.Info("generated new device identity",
		zap.String("address", Truncate(PublicKeyHex(&key.PublicKey))),
	)
	return PublicKeyHex(&key.PublicKey), &Signer{key: key}, nil
}

func (ks *KeyStore) persist(key *ecdsa.PrivateKey) error {
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return fmt.Errorf("failed to marshal device key: %w", err)
	}
	block := &pem.Block{Type: "EC PRIVATE KEY", Bytes: der}

	if err := os.MkdirAll(filepath.Dir(ks.path), 0o700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(ks.path, pem.EncodeToMemory(block), 0o600); err != nil {
		return fmt.Errorf("failed to write device key: %w", err)
	}
	return nil
}

func parseKeyPEM(data []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "EC PRIVATE KEY" {
		return nil, fmt.Errorf("no EC private key block")
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("unexpected curve %s", key.Curve.Params().Name)
	}
	return key, nil
}

// PublicKeyHex renders a public key as the 65-byte uncompressed point
// (04 ++ x ++ y), hex-encoded. This is the device's address everywhere.
func PublicKeyHex(pub *ecdsa.PublicKey) string {
	return fmt.Sprintf("04%064x%064x", pub.X, pub.Y)
}

// Truncate shortens a public artifact for logs. Never use on private material.
func Truncate(hexStr string) string {
	if len(hexStr) <= 16 {
		return hexStr
	}
	return hexStr[:16] + "..."
}
