package crypto

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const keySize = 32

var hkdfSalt = []byte("funnelboard/canvas-data/v1")

// DerivedProvider derives a distinct key per owner from one master key with
// HKDF-SHA256, so a leaked owner key does not expose other owners' funnels.
type DerivedProvider struct {
	master []byte
}

// NewDerivedProvider creates a DerivedProvider from a hex-encoded 32-byte master key.
func NewDerivedProvider(hexKey string) (*DerivedProvider, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("crypto/derived: invalid hex key: %w", err)
	}

	if len(key) != keySize {
		return nil, fmt.Errorf("crypto/derived: key must be %d bytes, got %d", keySize, len(key))
	}

	return &DerivedProvider{master: key}, nil
}

// GetKey derives the key for ownerID.
func (p *DerivedProvider) GetKey(_ context.Context, ownerID string) ([]byte, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("crypto/derived: empty owner id")
	}

	out := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, p.master, hkdfSalt, []byte(ownerID)), out); err != nil {
		return nil, fmt.Errorf("crypto/derived: deriving key: %w", err)
	}

	return out, nil
}
