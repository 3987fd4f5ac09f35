package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/funnelboard/funnelboard/internal/db"
	"github.com/funnelboard/funnelboard/internal/models"
	"github.com/funnelboard/funnelboard/internal/ws"
)

// ShareStore handles share links and the read-only view behind them.
type ShareStore struct {
	Base
}

// NewShareStore creates a new ShareStore.
func NewShareStore(base Base) *ShareStore {
	return &ShareStore{Base: base}
}

// ownsFunnel reports whether the funnel is visible to the transaction's user.
func ownsFunnel(ctx context.Context, tx pgx.Tx, userID, funnelID string) error {
	id, err := parseFunnelID(funnelID)
	if err != nil {
		return err
	}

	var exists bool

	err = tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM funnels WHERE id = $1 AND user_id = $2)", id, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking funnel ownership: %w", err)
	}

	if !exists {
		return models.ErrFunnelNotFound
	}

	return nil
}

// Create stores a new share link for one of the user's funnels.
func (s *ShareStore) Create(
	ctx context.Context,
	userID, funnelID, token string,
	allowDownload bool,
) (*models.ShareLink, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("creating share link: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	if err := ownsFunnel(ctx, tx, userID, funnelID); err != nil {
		return nil, err
	}

	link, err := scanShare(tx.QueryRow(ctx,
		`INSERT INTO share_links (token, funnel_id, user_id, allow_download)
		VALUES ($1, $2, $3, $4)
		RETURNING `+shareColumns,
		token, funnelID, userID, allowDownload,
	).Scan)
	if err != nil {
		return nil, fmt.Errorf("scanning created share link: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing create share link: %w", err)
	}

	return link, nil
}

// Resolve returns the read-only view of the funnel behind a live token.
// Unknown and revoked tokens both yield ErrShareNotFound.
func (s *ShareStore) Resolve(ctx context.Context, token string) (*models.SharedFunnel, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginShareTx(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("resolving share link: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	link, err := scanShare(tx.QueryRow(ctx,
		"SELECT "+shareColumns+" FROM share_links WHERE token = $1 AND revoked_at IS NULL", token,
	).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrShareNotFound
		}

		return nil, fmt.Errorf("scanning share link: %w", err)
	}

	row, err := scanFunnelRow(tx.QueryRow(ctx,
		"SELECT "+funnelColumns+" FROM funnels WHERE id = $1", link.FunnelID,
	).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrShareNotFound
		}

		return nil, fmt.Errorf("scanning shared funnel: %w", err)
	}

	data, err := s.openCanvas(ctx, row.UserID.String(), row.Canvas)
	if err != nil {
		return nil, fmt.Errorf("shared funnel %s: %w", row.ID, err)
	}

	return &models.SharedFunnel{
		FunnelID:      row.ID,
		Name:          row.Name,
		CanvasData:    data,
		ReadOnly:      true,
		AllowDownload: link.AllowDownload,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

// List returns every share link of a funnel, newest first, revoked ones included.
func (s *ShareStore) List(ctx context.Context, userID, funnelID string) ([]models.ShareLink, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing share links: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	if err := ownsFunnel(ctx, tx, userID, funnelID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx,
		"SELECT "+shareColumns+" FROM share_links WHERE funnel_id = $1 ORDER BY created_at DESC", funnelID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying share links: %w", err)
	}
	defer rows.Close()

	links := make([]models.ShareLink, 0)

	for rows.Next() {
		l, err := scanShare(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning share link row: %w", err)
		}

		links = append(links, *l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating share link rows: %w", err)
	}

	return links, nil
}

// Revoke marks a live share link revoked and tells connected viewers.
func (s *ShareStore) Revoke(ctx context.Context, userID, token string) (*models.ShareLink, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("revoking share link: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	link, err := scanShare(tx.QueryRow(ctx,
		`UPDATE share_links SET revoked_at = now()
		WHERE token = $1 AND user_id = $2 AND revoked_at IS NULL
		RETURNING `+shareColumns,
		token, userID,
	).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrShareNotFound
		}

		return nil, fmt.Errorf("scanning revoked share link: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing revoke share link: %w", err)
	}

	s.notify(db.ChangePayload{Type: ws.EventShareRevoked, UserID: link.UserID, FunnelID: link.FunnelID, Token: link.Token})

	return link, nil
}
