// Package store provides focused, single-concern data access stores
// for funnels and the records kept around them.
//
// Each store owns one table family (funnels, share links, metrics, audit,
// users) and embeds shared helpers (Pool, crypto, logger) via the Base
// struct. Stores never import each other. Shared logic lives in this file
// or in canvas.go.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/crypto"
	"github.com/funnelboard/funnelboard/internal/db"
	"github.com/funnelboard/funnelboard/internal/dbpool"
)

const defaultQueryTimeout = 30 * time.Second

// maxListLimit is a defense-in-depth cap on limit values for list queries.
const maxListLimit = 1000

// Base contains shared dependencies for all stores.
// Embed this in each store struct.
type Base struct {
	Pool   *dbpool.Pool
	Log    *logrus.Logger
	Crypto *crypto.Service
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// setUser sets the owning user for RLS policies within a transaction.
func setUser(ctx context.Context, tx pgx.Tx, userID string) error {
	if _, err := uuid.Parse(userID); err != nil {
		return fmt.Errorf("invalid user ID format: %w", err)
	}

	_, err := tx.Exec(ctx, "SELECT set_config('app.user_id', $1, true)", userID)
	if err != nil {
		return fmt.Errorf("setting user context: %w", err)
	}

	return nil
}

// beginTx starts a read-write transaction and sets the user context.
func (b *Base) beginTx(ctx context.Context, userID string) (pgx.Tx, error) {
	tx, err := b.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	if err := setUser(ctx, tx, userID); err != nil {
		tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on setup failure.

		return nil, err
	}

	return tx, nil
}

// beginReadTx starts a read-only transaction and sets the user context.
func (b *Base) beginReadTx(ctx context.Context, userID string) (pgx.Tx, error) {
	tx, err := b.Pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning read transaction: %w", err)
	}

	if err := setUser(ctx, tx, userID); err != nil {
		tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on setup failure.

		return nil, err
	}

	return tx, nil
}

// beginShareTx starts a read-only transaction scoped to a share token. No
// user is set, so only the funnel behind a live token is visible.
func (b *Base) beginShareTx(ctx context.Context, token string) (pgx.Tx, error) {
	tx, err := b.Pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning share transaction: %w", err)
	}

	if _, err := tx.Exec(ctx, "SELECT set_config('app.share_token', $1, true)", token); err != nil {
		tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on setup failure.

		return nil, fmt.Errorf("setting share context: %w", err)
	}

	return tx, nil
}

// notify sends a pg_notify on the funnel_changes channel (best-effort, post-commit).
func (b *Base) notify(p db.ChangePayload) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(p)
	if err != nil {
		b.Log.WithError(err).Warn("failed to marshal change notification")
		return
	}

	if _, err := b.Pool.Exec(ctx, "SELECT pg_notify($1, $2)", db.ChangesChannel, string(payload)); err != nil {
		b.Log.WithError(err).WithField("type", p.Type).Warn("failed to send change notification")
	}
}

// clampLimit applies the default and maximum page size.
func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}

	return min(limit, maxListLimit)
}
