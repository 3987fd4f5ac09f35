package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/funnelboard/funnelboard/internal/models"
)

// mockFunnelStore records calls and returns configured responses.
type mockFunnelStore struct {
	mu    sync.Mutex
	calls []string

	list       func(ctx context.Context, userID string, limit, offset int) ([]models.FunnelSummary, bool, error)
	get        func(ctx context.Context, userID, funnelID string) (*models.Funnel, error)
	create     func(ctx context.Context, userID, name string, data models.CanvasData) (*models.Funnel, error)
	saveCanvas func(ctx context.Context, userID, funnelID string, data models.CanvasData, expected *int64) (*models.FunnelSummary, error)
	rename     func(ctx context.Context, userID, funnelID, name string) (*models.FunnelSummary, error)
	del        func(ctx context.Context, userID, funnelID string) error
	clone      func(ctx context.Context, userID, funnelID, name string) (*models.Funnel, error)
}

func (m *mockFunnelStore) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockFunnelStore) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockFunnelStore) List(ctx context.Context, userID string, limit, offset int) ([]models.FunnelSummary, bool, error) {
	m.record("List")
	return m.list(ctx, userID, limit, offset)
}

func (m *mockFunnelStore) Get(ctx context.Context, userID, funnelID string) (*models.Funnel, error) {
	m.record("Get")
	return m.get(ctx, userID, funnelID)
}

func (m *mockFunnelStore) Create(ctx context.Context, userID, name string, data models.CanvasData) (*models.Funnel, error) {
	m.record("Create")
	return m.create(ctx, userID, name, data)
}

func (m *mockFunnelStore) SaveCanvas(
	ctx context.Context, userID, funnelID string, data models.CanvasData, expected *int64,
) (*models.FunnelSummary, error) {
	m.record("SaveCanvas")
	return m.saveCanvas(ctx, userID, funnelID, data, expected)
}

func (m *mockFunnelStore) Rename(ctx context.Context, userID, funnelID, name string) (*models.FunnelSummary, error) {
	m.record("Rename")
	return m.rename(ctx, userID, funnelID, name)
}

func (m *mockFunnelStore) Delete(ctx context.Context, userID, funnelID string) error {
	m.record("Delete")
	return m.del(ctx, userID, funnelID)
}

func (m *mockFunnelStore) Clone(ctx context.Context, userID, funnelID, name string) (*models.Funnel, error) {
	m.record("Clone")
	return m.clone(ctx, userID, funnelID, name)
}

// mockShareStore records calls and returns configured responses.
type mockShareStore struct {
	mu    sync.Mutex
	calls []string

	create  func(ctx context.Context, userID, funnelID, token string, allowDownload bool) (*models.ShareLink, error)
	resolve func(ctx context.Context, token string) (*models.SharedFunnel, error)
	list    func(ctx context.Context, userID, funnelID string) ([]models.ShareLink, error)
	revoke  func(ctx context.Context, userID, token string) (*models.ShareLink, error)
}

func (m *mockShareStore) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockShareStore) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	for _, c := range m.calls {
		if c == name {
			n++
		}
	}

	return n
}

func (m *mockShareStore) Create(ctx context.Context, userID, funnelID, token string, allowDownload bool) (*models.ShareLink, error) {
	m.record("Create")
	return m.create(ctx, userID, funnelID, token, allowDownload)
}

func (m *mockShareStore) Resolve(ctx context.Context, token string) (*models.SharedFunnel, error) {
	m.record("Resolve")
	return m.resolve(ctx, token)
}

func (m *mockShareStore) List(ctx context.Context, userID, funnelID string) ([]models.ShareLink, error) {
	m.record("List")
	return m.list(ctx, userID, funnelID)
}

func (m *mockShareStore) Revoke(ctx context.Context, userID, token string) (*models.ShareLink, error) {
	m.record("Revoke")
	return m.revoke(ctx, userID, token)
}

// mockMetricStore keeps metrics in memory.
type mockMetricStore struct {
	mu      sync.Mutex
	metrics []models.NodeMetric

	err error
}

func (m *mockMetricStore) Create(_ context.Context, _ string, metric models.NodeMetric) (*models.NodeMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	metric.ID = uuid.New()
	m.metrics = append(m.metrics, metric)

	return &metric, nil
}

func (m *mockMetricStore) List(_ context.Context, _, _, nodeID string, _ int) ([]models.NodeMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.NodeMetric
	for i := len(m.metrics) - 1; i >= 0; i-- {
		if m.metrics[i].NodeID == nodeID {
			out = append(out, m.metrics[i])
		}
	}

	return out, nil
}

func (m *mockMetricStore) Latest(
	_ context.Context, _, _, nodeID string, category models.MetricCategory,
) (*models.NodeMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.metrics) - 1; i >= 0; i-- {
		mt := m.metrics[i]
		if mt.NodeID == nodeID && (category == "" || mt.Category == category) {
			return &mt, nil
		}
	}

	return nil, models.ErrNoMetrics
}

func (m *mockMetricStore) Delete(_ context.Context, _, metricID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, mt := range m.metrics {
		if mt.ID.String() == metricID {
			m.metrics = append(m.metrics[:i], m.metrics[i+1:]...)
			return nil
		}
	}

	return models.ErrMetricNotFound
}

// mockViewCache is an in-memory SharedViewCache that also records funnel
// invalidations.
type mockViewCache struct {
	mu          sync.Mutex
	views       map[string]*models.SharedFunnel
	invalidated []string
	getErr      error
}

func newMockViewCache() *mockViewCache {
	return &mockViewCache{views: make(map[string]*models.SharedFunnel)}
}

func (m *mockViewCache) Get(_ context.Context, token string) (*models.SharedFunnel, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, false, m.getErr
	}

	v, ok := m.views[token]

	return v, ok, nil
}

func (m *mockViewCache) Set(_ context.Context, token string, view *models.SharedFunnel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views[token] = view
	return nil
}

func (m *mockViewCache) Invalidate(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.views, token)
	m.invalidated = append(m.invalidated, token)
	return nil
}

func (m *mockViewCache) InvalidateFunnel(_ context.Context, funnelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, funnelID)
	return nil
}

// mockAuditor records audit calls.
type mockAuditor struct {
	mu    sync.Mutex
	calls []models.AuditEvent

	err error
}

func (m *mockAuditor) Record(_ context.Context, ev models.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, ev)
	return m.err
}

func (m *mockAuditor) getCalls() []models.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AuditEvent(nil), m.calls...)
}

// mockEnqueuer captures audit events synchronously.
type mockEnqueuer struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (m *mockEnqueuer) Enqueue(ev models.AuditEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockEnqueuer) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.events))
	for i, ev := range m.events {
		out[i] = string(ev.Action)
	}

	return out
}
