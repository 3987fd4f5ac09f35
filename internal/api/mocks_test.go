package api_test

import (
	"context"

	"github.com/funnelboard/funnelboard/internal/canvas"
	"github.com/funnelboard/funnelboard/internal/models"
	"github.com/funnelboard/funnelboard/internal/session"
)

// mockFunnelService implements api.FunnelService for testing. Unset
// functions panic, which flags calls a test did not expect.
type mockFunnelService struct {
	listFn   func(ctx context.Context, userID string, limit, offset int) ([]models.FunnelSummary, bool, error)
	getFn    func(ctx context.Context, userID, funnelID string) (*models.Funnel, error)
	createFn func(ctx context.Context, userID string, req models.CreateFunnelRequest) (*models.Funnel, error)
	renameFn func(ctx context.Context, userID, funnelID string, req models.RenameFunnelRequest) (*models.FunnelSummary, error)
	deleteFn func(ctx context.Context, userID, funnelID string) error
	cloneFn  func(ctx context.Context, userID, funnelID string, req models.CloneFunnelRequest) (*models.Funnel, error)
	loadFn   func(ctx context.Context, userID, funnelID string) (*models.CanvasDocument, error)
	saveFn   func(ctx context.Context, userID, funnelID string, req models.SaveCanvasRequest) (*models.FunnelSummary, error)
	exportFn func(ctx context.Context, userID, funnelID string) (*models.ExportFormat, error)
	importFn func(ctx context.Context, userID string, data *models.ExportFormat, opts models.ImportOptions) (*models.ImportResult, error)
}

func (m *mockFunnelService) ListFunnels(ctx context.Context, userID string, limit, offset int) ([]models.FunnelSummary, bool, error) {
	return m.listFn(ctx, userID, limit, offset)
}

func (m *mockFunnelService) GetFunnel(ctx context.Context, userID, funnelID string) (*models.Funnel, error) {
	return m.getFn(ctx, userID, funnelID)
}

func (m *mockFunnelService) CreateFunnel(ctx context.Context, userID string, req models.CreateFunnelRequest) (*models.Funnel, error) {
	return m.createFn(ctx, userID, req)
}

func (m *mockFunnelService) RenameFunnel(ctx context.Context, userID, funnelID string, req models.RenameFunnelRequest) (*models.FunnelSummary, error) {
	return m.renameFn(ctx, userID, funnelID, req)
}

func (m *mockFunnelService) DeleteFunnel(ctx context.Context, userID, funnelID string) error {
	return m.deleteFn(ctx, userID, funnelID)
}

func (m *mockFunnelService) CloneFunnel(ctx context.Context, userID, funnelID string, req models.CloneFunnelRequest) (*models.Funnel, error) {
	return m.cloneFn(ctx, userID, funnelID, req)
}

func (m *mockFunnelService) LoadCanvas(ctx context.Context, userID, funnelID string) (*models.CanvasDocument, error) {
	return m.loadFn(ctx, userID, funnelID)
}

func (m *mockFunnelService) SaveCanvas(ctx context.Context, userID, funnelID string, req models.SaveCanvasRequest) (*models.FunnelSummary, error) {
	return m.saveFn(ctx, userID, funnelID, req)
}

func (m *mockFunnelService) ExportFunnel(ctx context.Context, userID, funnelID string) (*models.ExportFormat, error) {
	return m.exportFn(ctx, userID, funnelID)
}

func (m *mockFunnelService) ImportFunnel(ctx context.Context, userID string, data *models.ExportFormat, opts models.ImportOptions) (*models.ImportResult, error) {
	return m.importFn(ctx, userID, data, opts)
}

// mockShareService implements api.ShareService for testing.
type mockShareService struct {
	createFn  func(ctx context.Context, userID, funnelID string, req models.CreateShareLinkRequest) (*models.ShareLink, error)
	listFn    func(ctx context.Context, userID, funnelID string) ([]models.ShareLink, error)
	revokeFn  func(ctx context.Context, userID, token string) error
	resolveFn func(ctx context.Context, token string) (*models.SharedFunnel, error)
	cloneFn   func(ctx context.Context, token, viewerID string, req models.CloneFunnelRequest) (*models.Funnel, error)
}

func (m *mockShareService) CreateShare(ctx context.Context, userID, funnelID string, req models.CreateShareLinkRequest) (*models.ShareLink, error) {
	return m.createFn(ctx, userID, funnelID, req)
}

func (m *mockShareService) ListShares(ctx context.Context, userID, funnelID string) ([]models.ShareLink, error) {
	return m.listFn(ctx, userID, funnelID)
}

func (m *mockShareService) RevokeShare(ctx context.Context, userID, token string) error {
	return m.revokeFn(ctx, userID, token)
}

func (m *mockShareService) ResolveShared(ctx context.Context, token string) (*models.SharedFunnel, error) {
	return m.resolveFn(ctx, token)
}

func (m *mockShareService) CloneShared(ctx context.Context, token, viewerID string, req models.CloneFunnelRequest) (*models.Funnel, error) {
	return m.cloneFn(ctx, token, viewerID, req)
}

// mockMetricService implements api.MetricService for testing.
type mockMetricService struct {
	recordFn func(ctx context.Context, userID, funnelID, nodeID string, req models.CreateMetricRequest) (*models.NodeMetric, error)
	listFn   func(ctx context.Context, userID, funnelID, nodeID string, limit int) ([]models.NodeMetric, error)
	ratioFn  func(ctx context.Context, userID, funnelID string, req models.RatioRequest) (*models.NodeMetric, error)
	deleteFn func(ctx context.Context, userID, metricID string) error
}

func (m *mockMetricService) RecordMetric(ctx context.Context, userID, funnelID, nodeID string, req models.CreateMetricRequest) (*models.NodeMetric, error) {
	return m.recordFn(ctx, userID, funnelID, nodeID, req)
}

func (m *mockMetricService) ListMetrics(ctx context.Context, userID, funnelID, nodeID string, limit int) ([]models.NodeMetric, error) {
	return m.listFn(ctx, userID, funnelID, nodeID, limit)
}

func (m *mockMetricService) CalculateRatio(ctx context.Context, userID, funnelID string, req models.RatioRequest) (*models.NodeMetric, error) {
	return m.ratioFn(ctx, userID, funnelID, req)
}

func (m *mockMetricService) DeleteMetric(ctx context.Context, userID, metricID string) error {
	return m.deleteFn(ctx, userID, metricID)
}

// mockSessionService implements api.SessionService for testing.
type mockSessionService struct {
	openFn     func(ctx context.Context, userID, funnelID string) (*session.Info, error)
	openShFn   func(ctx context.Context, viewerID, token string) (*session.Info, error)
	describeFn func(ctx context.Context, userID, sessionID string) (*session.Info, error)
	applyFn    func(ctx context.Context, userID, sessionID string, op session.Op) (*session.Result, error)
	saveFn     func(ctx context.Context, userID, sessionID string) (*session.Info, error)
	navFn      func(ctx context.Context, userID, sessionID string, d canvas.NavDecision) (bool, error)
	closeFn    func(ctx context.Context, userID, sessionID string) error
}

func (m *mockSessionService) OpenOwned(ctx context.Context, userID, funnelID string) (*session.Info, error) {
	return m.openFn(ctx, userID, funnelID)
}

func (m *mockSessionService) OpenShared(ctx context.Context, viewerID, token string) (*session.Info, error) {
	return m.openShFn(ctx, viewerID, token)
}

func (m *mockSessionService) Describe(ctx context.Context, userID, sessionID string) (*session.Info, error) {
	return m.describeFn(ctx, userID, sessionID)
}

func (m *mockSessionService) Apply(ctx context.Context, userID, sessionID string, op session.Op) (*session.Result, error) {
	return m.applyFn(ctx, userID, sessionID, op)
}

func (m *mockSessionService) Save(ctx context.Context, userID, sessionID string) (*session.Info, error) {
	return m.saveFn(ctx, userID, sessionID)
}

func (m *mockSessionService) Navigate(ctx context.Context, userID, sessionID string, d canvas.NavDecision) (bool, error) {
	return m.navFn(ctx, userID, sessionID, d)
}

func (m *mockSessionService) Close(ctx context.Context, userID, sessionID string) error {
	return m.closeFn(ctx, userID, sessionID)
}

// mockPinger implements api.Pinger.
type mockPinger struct{ err error }

func (m mockPinger) Ping(context.Context) error { return m.err }

// mockAuditService implements api.AuditService for testing.
type mockAuditService struct {
	queryFn    func(ctx context.Context, userID string, q models.AuditQuery) ([]models.AuditEntry, bool, error)
	activityFn func(ctx context.Context, userID, funnelID string, limit int) ([]models.AuditEntry, bool, error)
	purgeFn    func(ctx context.Context, userID string, retentionDays int) (int, error)
}

func (m *mockAuditService) Record(context.Context, models.AuditEvent) error { return nil }

func (m *mockAuditService) Query(ctx context.Context, userID string, q models.AuditQuery) ([]models.AuditEntry, bool, error) {
	return m.queryFn(ctx, userID, q)
}

func (m *mockAuditService) FunnelActivity(ctx context.Context, userID, funnelID string, limit int) ([]models.AuditEntry, bool, error) {
	return m.activityFn(ctx, userID, funnelID, limit)
}

func (m *mockAuditService) Purge(ctx context.Context, userID string, retentionDays int) (int, error) {
	return m.purgeFn(ctx, userID, retentionDays)
}
