package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
)

// envelopeKey marks an encrypted JSONB document: {"_enc": "<base64>"}.
const envelopeKey = "_enc"

// Service provides owner-bound AES-256-GCM encryption and decryption.
type Service struct {
	keys KeyProvider
}

// NewService creates an encryption service backed by the given key provider.
func NewService(keys KeyProvider) *Service {
	return &Service{keys: keys}
}

func (s *Service) aead(ctx context.Context, ownerID string) (cipher.AEAD, error) {
	key, err := s.keys.GetKey(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("crypto: get key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}

	return gcm, nil
}

// Encrypt seals plaintext for ownerID and returns base64 nonce+ciphertext.
func (s *Service) Encrypt(ctx context.Context, ownerID string, plaintext []byte) (string, error) {
	gcm, err := s.aead(ctx, ownerID)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("crypto: generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, []byte(ownerID))

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt for the same owner.
func (s *Service) Decrypt(ctx context.Context, ownerID, ciphertext string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("crypto: base64 decode: %w", err)
	}

	gcm, err := s.aead(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if len(data) < gcm.NonceSize() {
		return nil, fmt.Errorf("crypto: ciphertext too short")
	}

	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, sealed, []byte(ownerID))
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt failed: %w", err)
	}

	return plaintext, nil
}

// Seal encrypts a JSON document into the {"_enc": ...} envelope stored in
// JSONB columns.
func (s *Service) Seal(ctx context.Context, ownerID string, doc []byte) ([]byte, error) {
	ct, err := s.Encrypt(ctx, ownerID, doc)
	if err != nil {
		return nil, err
	}

	out, err := json.Marshal(map[string]string{envelopeKey: ct})
	if err != nil {
		return nil, fmt.Errorf("crypto: marshal envelope: %w", err)
	}

	return out, nil
}

// Open returns the plaintext JSON inside an envelope. Documents without an
// envelope (written before encryption was enabled, or JSON null) are
// returned unchanged.
func (s *Service) Open(ctx context.Context, ownerID string, stored []byte) ([]byte, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(stored, &env); err != nil {
		return stored, nil //nolint:nilerr // not an object, so not an envelope.
	}

	raw, ok := env[envelopeKey]
	if !ok || len(env) != 1 {
		return stored, nil
	}

	var ct string
	if err := json.Unmarshal(raw, &ct); err != nil {
		return nil, fmt.Errorf("crypto: envelope value is not a string")
	}

	return s.Decrypt(ctx, ownerID, ct)
}
