package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/funnelboard/funnelboard/internal/models"
)

// funnelColumns lists the columns selected for full funnel reads.
const funnelColumns = `id, user_id, name, canvas_data, version, created_at, updated_at`

// summaryColumns lists the columns selected for funnel list views.
const summaryColumns = `id, name, node_count, version, created_at, updated_at`

// shareColumns lists the columns selected for share link queries.
const shareColumns = `token, funnel_id, user_id, allow_download, created_at, revoked_at`

// metricColumns lists the columns selected for node metric queries.
const metricColumns = `id, funnel_id, node_id, category, value,
	numerator_node_id, denominator_node_id, recorded_at`

// funnelRow is a funnel as read from the table, before canvas_data is decrypted.
type funnelRow struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Canvas    []byte
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// scanFunnelRow scans a single row selected with funnelColumns.
func scanFunnelRow(scan func(dest ...any) error) (*funnelRow, error) {
	var r funnelRow

	if err := scan(&r.ID, &r.UserID, &r.Name, &r.Canvas, &r.Version, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}

	return &r, nil
}

// scanSummary scans a single row selected with summaryColumns.
func scanSummary(scan func(dest ...any) error) (*models.FunnelSummary, error) {
	var f models.FunnelSummary

	if err := scan(&f.ID, &f.Name, &f.NodeCount, &f.Version, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}

	return &f, nil
}

// scanShare scans a single row selected with shareColumns.
func scanShare(scan func(dest ...any) error) (*models.ShareLink, error) {
	var l models.ShareLink

	if err := scan(&l.Token, &l.FunnelID, &l.UserID, &l.AllowDownload, &l.CreatedAt, &l.RevokedAt); err != nil {
		return nil, err
	}

	return &l, nil
}

// scanMetric scans a single row selected with metricColumns.
func scanMetric(scan func(dest ...any) error) (*models.NodeMetric, error) {
	var m models.NodeMetric
	var category string

	err := scan(
		&m.ID,
		&m.FunnelID,
		&m.NodeID,
		&category,
		&m.Value,
		&m.NumeratorNodeID,
		&m.DenominatorNodeID,
		&m.RecordedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Category = models.MetricCategory(category)

	return &m, nil
}
