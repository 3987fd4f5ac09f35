package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/domain"
	"github.com/funnelboard/funnelboard/internal/models"
)

var _ domain.AuditService = (*AuditService)(nil)

// AuditService reads and trims the activity log written by AuditWorker.
type AuditService struct {
	store domain.AuditLog
	log   *logrus.Logger
	now   func() time.Time
}

// NewAuditService creates an AuditService over store.
func NewAuditService(store domain.AuditLog, log *logrus.Logger) *AuditService {
	return &AuditService{store: store, log: log, now: time.Now}
}

// Record writes one event synchronously. AuditWorker calls it.
func (s *AuditService) Record(ctx context.Context, ev models.AuditEvent) error {
	return s.store.Record(ctx, ev)
}

// Query returns the caller's log filtered by q.
func (s *AuditService) Query(ctx context.Context, userID string, q models.AuditQuery) ([]models.AuditEntry, bool, error) {
	if err := q.Validate(); err != nil {
		return nil, false, invalid(err)
	}

	return s.store.Query(ctx, userID, q)
}

// FunnelActivity lists every event tied to one funnel: its own edits plus
// the shares and metrics recorded against it. Entries survive the funnel's
// deletion.
func (s *AuditService) FunnelActivity(
	ctx context.Context, userID, funnelID string, limit int,
) ([]models.AuditEntry, bool, error) {
	if _, err := uuid.Parse(funnelID); err != nil {
		return nil, false, invalid(err)
	}

	return s.Query(ctx, userID, models.AuditQuery{FunnelID: funnelID, Limit: limit})
}

// Purge deletes entries older than retentionDays; zero uses
// models.DefaultAuditRetentionDays.
func (s *AuditService) Purge(ctx context.Context, userID string, retentionDays int) (int, error) {
	req := models.AuditPurgeRequest{RetentionDays: retentionDays}
	if err := req.Validate(); err != nil {
		return 0, invalid(err)
	}

	if retentionDays == 0 {
		retentionDays = models.DefaultAuditRetentionDays
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)

	deleted, err := s.store.Purge(ctx, userID, cutoff)
	if err != nil {
		return deleted, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":        userID,
		"retention_days": retentionDays,
		"cutoff":         cutoff.UTC().Format(time.RFC3339),
		"deleted":        deleted,
	}).Info("audit.purge")

	return deleted, nil
}
