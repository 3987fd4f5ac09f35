// Package crypto encrypts canvas data at rest with AES-256-GCM. Every
// ciphertext is bound to the funnel owner's id.
package crypto

import "context"

// KeyProvider returns AES-256 encryption keys per owner.
type KeyProvider interface {
	// GetKey returns the 32-byte AES-256 key for the given owner.
	GetKey(ctx context.Context, ownerID string) ([]byte, error)
}
