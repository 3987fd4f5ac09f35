package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/domain"
	"github.com/funnelboard/funnelboard/internal/models"
)

// ErrZeroDenominator is returned when the denominator's latest metric is zero.
var ErrZeroDenominator = errors.New("denominator metric is zero")

// ErrRatioOutOfRange is returned when a ratio overflows to a non-finite value.
var ErrRatioOutOfRange = errors.New("ratio is not a finite number")

// MetricStore is the data-access interface MetricService depends on.
type MetricStore interface {
	Create(ctx context.Context, userID string, m models.NodeMetric) (*models.NodeMetric, error)
	List(ctx context.Context, userID, funnelID, nodeID string, limit int) ([]models.NodeMetric, error)
	Latest(ctx context.Context, userID, funnelID, nodeID string, category models.MetricCategory) (*models.NodeMetric, error)
	Delete(ctx context.Context, userID, metricID string) error
}

// FunnelReader loads a funnel with its canvas.
type FunnelReader interface {
	Get(ctx context.Context, userID, funnelID string) (*models.Funnel, error)
}

// Compile-time check: *MetricService must satisfy domain.MetricService.
var _ domain.MetricService = (*MetricService)(nil)

// MetricService records node metrics and derives conversion ratios.
type MetricService struct {
	store       MetricStore
	funnels     FunnelReader
	auditWorker AuditEnqueuer
	log         *logrus.Logger
	now         func() time.Time
}

// NewMetricService creates a MetricService.
func NewMetricService(store MetricStore, funnels FunnelReader, auditWorker AuditEnqueuer, log *logrus.Logger) *MetricService {
	return &MetricService{store: store, funnels: funnels, auditWorker: auditWorker, log: log, now: time.Now}
}

// requireNodes loads the funnel and checks every node id is on its canvas.
func (s *MetricService) requireNodes(ctx context.Context, userID, funnelID string, nodeIDs ...string) (uuid.UUID, error) {
	f, err := s.funnels.Get(ctx, userID, funnelID)
	if err != nil {
		return uuid.Nil, err
	}

	present := make(map[string]struct{}, len(f.CanvasData.Nodes))
	for _, n := range f.CanvasData.Nodes {
		present[n.ID] = struct{}{}
	}

	for _, id := range nodeIDs {
		if _, ok := present[id]; !ok {
			return uuid.Nil, fmt.Errorf("%w: %q", models.ErrNodeNotFound, id)
		}
	}

	return f.ID, nil
}

// RecordMetric stores a measurement for a node on the funnel's canvas.
func (s *MetricService) RecordMetric(
	ctx context.Context, userID, funnelID, nodeID string, req models.CreateMetricRequest,
) (*models.NodeMetric, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	fid, err := s.requireNodes(ctx, userID, funnelID, nodeID)
	if err != nil {
		return nil, err
	}

	m := models.NodeMetric{FunnelID: fid, NodeID: nodeID, Category: req.Category, Value: req.Value}
	if req.RecordedAt != nil {
		m.RecordedAt = req.RecordedAt.UTC()
	}

	created, err := s.store.Create(ctx, userID, m)
	if err != nil {
		return nil, err
	}

	auditAsync(s.auditWorker, models.AuditEvent{
		UserID:   userID,
		Action:   models.ActionMetricRecord,
		FunnelID: funnelID,
		EntityID: created.ID.String(),
		Detail:   map[string]any{"node_id": nodeID, "category": string(req.Category)},
	})

	return created, nil
}

// ListMetrics returns a node's metrics, newest first (pass-through).
func (s *MetricService) ListMetrics(ctx context.Context, userID, funnelID, nodeID string, limit int) ([]models.NodeMetric, error) {
	return s.store.List(ctx, userID, funnelID, nodeID, limit)
}

// CalculateRatio divides the numerator node's latest metric by the
// denominator node's latest metric and stores the percentage on the
// numerator node under req.Category.
func (s *MetricService) CalculateRatio(ctx context.Context, userID, funnelID string, req models.RatioRequest) (*models.NodeMetric, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	fid, err := s.requireNodes(ctx, userID, funnelID, req.NumeratorNodeID, req.DenominatorNodeID)
	if err != nil {
		return nil, err
	}

	num, err := s.store.Latest(ctx, userID, funnelID, req.NumeratorNodeID, req.NumeratorCategory)
	if err != nil {
		return nil, fmt.Errorf("numerator: %w", err)
	}

	den, err := s.store.Latest(ctx, userID, funnelID, req.DenominatorNodeID, req.DenominatorCategory)
	if err != nil {
		return nil, fmt.Errorf("denominator: %w", err)
	}

	if den.Value == 0 {
		return nil, invalid(ErrZeroDenominator)
	}

	ratio := num.Value / den.Value * 100
	if math.IsInf(ratio, 0) || math.IsNaN(ratio) {
		return nil, invalid(ErrRatioOutOfRange)
	}

	numID, denID := req.NumeratorNodeID, req.DenominatorNodeID

	created, err := s.store.Create(ctx, userID, models.NodeMetric{
		FunnelID:          fid,
		NodeID:            numID,
		Category:          req.Category,
		Value:             ratio,
		NumeratorNodeID:   &numID,
		DenominatorNodeID: &denID,
		RecordedAt:        s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":     userID,
		"funnel_id":   funnelID,
		"numerator":   numID,
		"denominator": denID,
		"value":       created.Value,
	}).Debug("metric.ratio")

	auditAsync(s.auditWorker, models.AuditEvent{
		UserID:   userID,
		Action:   models.ActionMetricRatio,
		FunnelID: funnelID,
		EntityID: created.ID.String(),
		Detail: map[string]any{
			"numerator_node_id":   numID,
			"denominator_node_id": denID,
			"category":            string(req.Category),
		},
	})

	return created, nil
}

// DeleteMetric removes a metric.
func (s *MetricService) DeleteMetric(ctx context.Context, userID, metricID string) error {
	if err := s.store.Delete(ctx, userID, metricID); err != nil {
		return err
	}

	auditAsync(s.auditWorker, models.AuditEvent{UserID: userID, Action: models.ActionMetricDelete, EntityID: metricID})

	return nil
}
