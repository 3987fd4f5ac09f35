package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/funnelboard/funnelboard/internal/db"
	"github.com/funnelboard/funnelboard/internal/models"
	"github.com/funnelboard/funnelboard/internal/ws"
)

// MetricStore handles the timestamped measurements attached to funnel nodes.
type MetricStore struct {
	Base
}

// NewMetricStore creates a new MetricStore.
func NewMetricStore(base Base) *MetricStore {
	return &MetricStore{Base: base}
}

// Create records a metric on a node of one of the user's funnels. A zero
// RecordedAt means now.
func (s *MetricStore) Create(ctx context.Context, userID string, m models.NodeMetric) (*models.NodeMetric, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("creating metric: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	if err := ownsFunnel(ctx, tx, userID, m.FunnelID.String()); err != nil {
		return nil, err
	}

	var recordedAt *time.Time
	if !m.RecordedAt.IsZero() {
		recordedAt = &m.RecordedAt
	}

	out, err := scanMetric(tx.QueryRow(ctx,
		`INSERT INTO node_metrics
			(funnel_id, user_id, node_id, category, value, numerator_node_id, denominator_node_id, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
		RETURNING `+metricColumns,
		m.FunnelID, userID, m.NodeID, string(m.Category), m.Value, m.NumeratorNodeID, m.DenominatorNodeID, recordedAt,
	).Scan)
	if err != nil {
		return nil, fmt.Errorf("scanning created metric: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing create metric: %w", err)
	}

	s.notify(db.ChangePayload{Type: ws.EventMetricRecorded, UserID: uuid.MustParse(userID), FunnelID: out.FunnelID})

	return out, nil
}

// List returns a node's metrics, newest first.
func (s *MetricStore) List(ctx context.Context, userID, funnelID, nodeID string, limit int) ([]models.NodeMetric, error) {
	limit = clampLimit(limit, 100)

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing metrics: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	if err := ownsFunnel(ctx, tx, userID, funnelID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx,
		"SELECT "+metricColumns+` FROM node_metrics
		WHERE funnel_id = $1 AND node_id = $2
		ORDER BY recorded_at DESC, id LIMIT $3`,
		funnelID, nodeID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying metrics: %w", err)
	}
	defer rows.Close()

	metrics := make([]models.NodeMetric, 0)

	for rows.Next() {
		m, err := scanMetric(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning metric row: %w", err)
		}

		metrics = append(metrics, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating metric rows: %w", err)
	}

	return metrics, nil
}

// Latest returns the most recent metric of a node, optionally restricted to
// one category. ErrNoMetrics means the node has none.
func (s *MetricStore) Latest(
	ctx context.Context,
	userID, funnelID, nodeID string,
	category models.MetricCategory,
) (*models.NodeMetric, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reading latest metric: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	if err := ownsFunnel(ctx, tx, userID, funnelID); err != nil {
		return nil, err
	}

	query := "SELECT " + metricColumns + " FROM node_metrics WHERE funnel_id = $1 AND node_id = $2"
	args := []any{funnelID, nodeID}

	if category != "" {
		query += " AND category = $3"
		args = append(args, string(category))
	}

	m, err := scanMetric(tx.QueryRow(ctx, query+" ORDER BY recorded_at DESC, id LIMIT 1", args...).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", models.ErrNoMetrics, nodeID)
		}

		return nil, fmt.Errorf("scanning latest metric: %w", err)
	}

	return m, nil
}

// Delete removes a single metric.
func (s *MetricStore) Delete(ctx context.Context, userID, metricID string) error {
	id, err := uuid.Parse(metricID)
	if err != nil {
		return models.ErrMetricNotFound
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, userID)
	if err != nil {
		return fmt.Errorf("deleting metric: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	tag, err := tx.Exec(ctx, "DELETE FROM node_metrics WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("executing metric delete: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrMetricNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing delete metric: %w", err)
	}

	return nil
}
