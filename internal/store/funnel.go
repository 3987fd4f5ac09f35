package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/funnelboard/funnelboard/internal/db"
	"github.com/funnelboard/funnelboard/internal/models"
	"github.com/funnelboard/funnelboard/internal/ws"
)

// FunnelStore handles funnel CRUD and canvas persistence.
type FunnelStore struct {
	Base
}

// NewFunnelStore creates a new FunnelStore.
func NewFunnelStore(base Base) *FunnelStore {
	return &FunnelStore{Base: base}
}

// parseFunnelID maps a malformed id onto ErrFunnelNotFound.
func parseFunnelID(funnelID string) (uuid.UUID, error) {
	id, err := uuid.Parse(funnelID)
	if err != nil {
		return uuid.Nil, models.ErrFunnelNotFound
	}

	return id, nil
}

// List returns the user's funnels, most recently updated first.
func (s *FunnelStore) List(ctx context.Context, userID string, limit, offset int) ([]models.FunnelSummary, bool, error) {
	limit = clampLimit(limit, 50)
	offset = max(offset, 0)

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("listing funnels: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	rows, err := tx.Query(ctx,
		"SELECT "+summaryColumns+" FROM funnels WHERE user_id = $1 ORDER BY updated_at DESC, id LIMIT $2 OFFSET $3",
		userID, limit+1, offset,
	)
	if err != nil {
		return nil, false, fmt.Errorf("querying funnels: %w", err)
	}
	defer rows.Close()

	funnels := make([]models.FunnelSummary, 0, limit+1)

	for rows.Next() {
		f, err := scanSummary(rows.Scan)
		if err != nil {
			return nil, false, fmt.Errorf("scanning funnel row: %w", err)
		}

		funnels = append(funnels, *f)
	}

	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterating funnel rows: %w", err)
	}

	hasMore := len(funnels) > limit
	if hasMore {
		funnels = funnels[:limit]
	}

	return funnels, hasMore, nil
}

// Get returns a funnel with its decrypted canvas.
func (s *FunnelStore) Get(ctx context.Context, userID, funnelID string) (*models.Funnel, error) {
	id, err := parseFunnelID(funnelID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting funnel: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	row, err := scanFunnelRow(tx.QueryRow(ctx,
		"SELECT "+funnelColumns+" FROM funnels WHERE id = $1 AND user_id = $2", id, userID,
	).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrFunnelNotFound
		}

		return nil, fmt.Errorf("scanning funnel: %w", err)
	}

	return s.toFunnel(ctx, row)
}

// toFunnel decrypts a scanned row into a funnel record.
func (s *FunnelStore) toFunnel(ctx context.Context, row *funnelRow) (*models.Funnel, error) {
	data, err := s.openCanvas(ctx, row.UserID.String(), row.Canvas)
	if err != nil {
		return nil, fmt.Errorf("funnel %s: %w", row.ID, err)
	}

	return &models.Funnel{
		ID:         row.ID,
		UserID:     row.UserID,
		Name:       row.Name,
		CanvasData: data,
		Version:    row.Version,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

// Create inserts a funnel with an initial canvas and returns it.
func (s *FunnelStore) Create(ctx context.Context, userID, name string, data models.CanvasData) (*models.Funnel, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	sealed, err := s.sealCanvas(ctx, userID, data)
	if err != nil {
		return nil, fmt.Errorf("preparing funnel canvas: %w", err)
	}

	tx, err := s.beginTx(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("creating funnel: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	row, err := scanFunnelRow(tx.QueryRow(ctx,
		`INSERT INTO funnels (user_id, name, canvas_data, node_count)
		VALUES ($1, $2, $3, $4)
		RETURNING `+funnelColumns,
		userID, name, sealed, len(data.Nodes),
	).Scan)
	if err != nil {
		return nil, fmt.Errorf("scanning created funnel: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing create funnel: %w", err)
	}

	s.notify(db.ChangePayload{Type: ws.EventFunnelCreated, UserID: row.UserID, FunnelID: row.ID, Version: row.Version})

	return &models.Funnel{
		ID:         row.ID,
		UserID:     row.UserID,
		Name:       row.Name,
		CanvasData: normalize(data),
		Version:    row.Version,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

// normalize replaces nil slices with empty ones, matching what a reload returns.
func normalize(c models.CanvasData) models.CanvasData {
	if c.Nodes == nil {
		c.Nodes = []models.Node{}
	}

	if c.Edges == nil {
		c.Edges = []models.Edge{}
	}

	if c.Drawings == nil {
		c.Drawings = []models.DrawingPath{}
	}

	return c
}

// SaveCanvas replaces the funnel's canvas and bumps its version. With a nil
// expectedVersion the last write wins; otherwise the update only applies
// when the stored version still matches, and ErrVersionConflict is returned
// when it does not.
func (s *FunnelStore) SaveCanvas(
	ctx context.Context,
	userID, funnelID string,
	data models.CanvasData,
	expectedVersion *int64,
) (*models.FunnelSummary, error) {
	id, err := parseFunnelID(funnelID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	sealed, err := s.sealCanvas(ctx, userID, data)
	if err != nil {
		return nil, fmt.Errorf("preparing funnel canvas: %w", err)
	}

	tx, err := s.beginTx(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("saving canvas: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	query := `UPDATE funnels
		SET canvas_data = $1, node_count = $2, version = version + 1, updated_at = now()
		WHERE id = $3 AND user_id = $4`
	args := []any{sealed, len(data.Nodes), id, userID}

	if expectedVersion != nil {
		query += " AND version = $5"
		args = append(args, *expectedVersion)
	}

	f, err := scanSummary(tx.QueryRow(ctx, query+" RETURNING "+summaryColumns, args...).Scan)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("scanning saved funnel: %w", err)
		}

		if expectedVersion == nil {
			return nil, models.ErrFunnelNotFound
		}

		return nil, s.missOrConflict(ctx, tx, id, userID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing canvas save: %w", err)
	}

	s.notify(db.ChangePayload{Type: ws.EventFunnelSaved, UserID: uuid.MustParse(userID), FunnelID: f.ID, Version: f.Version})

	return f, nil
}

// missOrConflict tells a missing funnel apart from a stale expected version
// after a conditional update matched nothing.
func (s *FunnelStore) missOrConflict(ctx context.Context, tx pgx.Tx, id uuid.UUID, userID string) error {
	var exists bool

	err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM funnels WHERE id = $1 AND user_id = $2)", id, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking funnel version: %w", err)
	}

	if !exists {
		return models.ErrFunnelNotFound
	}

	return models.ErrVersionConflict
}

// Rename changes a funnel's name without touching its canvas or version.
func (s *FunnelStore) Rename(ctx context.Context, userID, funnelID, name string) (*models.FunnelSummary, error) {
	id, err := parseFunnelID(funnelID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("renaming funnel: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	f, err := scanSummary(tx.QueryRow(ctx,
		"UPDATE funnels SET name = $1, updated_at = now() WHERE id = $2 AND user_id = $3 RETURNING "+summaryColumns,
		name, id, userID,
	).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrFunnelNotFound
		}

		return nil, fmt.Errorf("scanning renamed funnel: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing rename funnel: %w", err)
	}

	s.notify(db.ChangePayload{Type: ws.EventFunnelRenamed, UserID: uuid.MustParse(userID), FunnelID: f.ID, Version: f.Version})

	return f, nil
}

// Delete removes a funnel. Share links and metrics go with it.
func (s *FunnelStore) Delete(ctx context.Context, userID, funnelID string) error {
	id, err := parseFunnelID(funnelID)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, userID)
	if err != nil {
		return fmt.Errorf("deleting funnel: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	tag, err := tx.Exec(ctx, "DELETE FROM funnels WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("executing funnel delete: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrFunnelNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing delete funnel: %w", err)
	}

	s.notify(db.ChangePayload{Type: ws.EventFunnelDeleted, UserID: uuid.MustParse(userID), FunnelID: id})

	return nil
}

// Clone copies one of the user's funnels into a new funnel. The sealed
// canvas is copied as-is since the owner, and so the key, is unchanged. An
// empty name becomes "<original> (copy)".
func (s *FunnelStore) Clone(ctx context.Context, userID, funnelID, name string) (*models.Funnel, error) {
	id, err := parseFunnelID(funnelID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("cloning funnel: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	row, err := scanFunnelRow(tx.QueryRow(ctx,
		`INSERT INTO funnels (user_id, name, canvas_data, node_count)
		SELECT user_id, COALESCE(NULLIF($3, ''), left(name || ' (copy)', 200)), canvas_data, node_count
		FROM funnels WHERE id = $1 AND user_id = $2
		RETURNING `+funnelColumns,
		id, userID, name,
	).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrFunnelNotFound
		}

		return nil, fmt.Errorf("scanning cloned funnel: %w", err)
	}

	f, err := s.toFunnel(ctx, row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing clone funnel: %w", err)
	}

	s.notify(db.ChangePayload{Type: ws.EventFunnelCreated, UserID: row.UserID, FunnelID: row.ID, Version: row.Version})

	return f, nil
}
