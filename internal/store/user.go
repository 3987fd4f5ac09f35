package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/funnelboard/funnelboard/internal/dbpool"
	"github.com/funnelboard/funnelboard/internal/models"
)

// UserStore handles user lookups (API key → user ID). The users table has
// no RLS since lookups happen before a user is known.
type UserStore struct {
	Pool *dbpool.Pool
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool *dbpool.Pool) *UserStore {
	return &UserStore{Pool: pool}
}

// HashAPIKey returns the hex SHA-256 digest stored in users.api_key_hash.
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}

// GetUserByAPIKey looks up a user ID by API key hash.
func (s *UserStore) GetUserByAPIKey(ctx context.Context, apiKey string) (string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var userID string

	err := s.Pool.QueryRow(ctx, "SELECT id FROM users WHERE api_key_hash = $1", HashAPIKey(apiKey)).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", models.ErrUserNotFound
		}

		return "", fmt.Errorf("looking up user by API key: %w", err)
	}

	return userID, nil
}

// Create registers a user with the given API key and returns the new ID.
func (s *UserStore) Create(ctx context.Context, email, apiKey string) (string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var userID string

	err := s.Pool.QueryRow(ctx,
		"INSERT INTO users (email, api_key_hash) VALUES ($1, $2) RETURNING id",
		email, HashAPIKey(apiKey),
	).Scan(&userID)
	if err != nil {
		return "", fmt.Errorf("creating user: %w", err)
	}

	return userID, nil
}
