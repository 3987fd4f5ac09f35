// Package domain defines the canonical service interfaces shared between the
// HTTP API and the services behind it. Consumers should depend on these
// interfaces rather than re-declaring equivalent ones.
package domain

import (
	"context"
	"time"

	"github.com/funnelboard/funnelboard/internal/canvas"
	"github.com/funnelboard/funnelboard/internal/models"
	"github.com/funnelboard/funnelboard/internal/session"
)

// FunnelService defines funnel CRUD, canvas persistence and bundles.
type FunnelService interface {
	ListFunnels(ctx context.Context, userID string, limit, offset int) ([]models.FunnelSummary, bool, error)
	GetFunnel(ctx context.Context, userID, funnelID string) (*models.Funnel, error)
	CreateFunnel(ctx context.Context, userID string, req models.CreateFunnelRequest) (*models.Funnel, error)
	RenameFunnel(ctx context.Context, userID, funnelID string, req models.RenameFunnelRequest) (*models.FunnelSummary, error)
	DeleteFunnel(ctx context.Context, userID, funnelID string) error
	CloneFunnel(ctx context.Context, userID, funnelID string, req models.CloneFunnelRequest) (*models.Funnel, error)
	LoadCanvas(ctx context.Context, userID, funnelID string) (*models.CanvasDocument, error)
	SaveCanvas(ctx context.Context, userID, funnelID string, req models.SaveCanvasRequest) (*models.FunnelSummary, error)
	ExportFunnel(ctx context.Context, userID, funnelID string) (*models.ExportFormat, error)
	ImportFunnel(ctx context.Context, userID string, data *models.ExportFormat, opts models.ImportOptions) (*models.ImportResult, error)
}

// ShareService defines share link management and read-only resolution.
type ShareService interface {
	CreateShare(ctx context.Context, userID, funnelID string, req models.CreateShareLinkRequest) (*models.ShareLink, error)
	ListShares(ctx context.Context, userID, funnelID string) ([]models.ShareLink, error)
	RevokeShare(ctx context.Context, userID, token string) error
	ResolveShared(ctx context.Context, token string) (*models.SharedFunnel, error)
	CloneShared(ctx context.Context, token, viewerID string, req models.CloneFunnelRequest) (*models.Funnel, error)
}

// MetricService defines node metric recording and ratio calculation.
type MetricService interface {
	RecordMetric(ctx context.Context, userID, funnelID, nodeID string, req models.CreateMetricRequest) (*models.NodeMetric, error)
	ListMetrics(ctx context.Context, userID, funnelID, nodeID string, limit int) ([]models.NodeMetric, error)
	CalculateRatio(ctx context.Context, userID, funnelID string, req models.RatioRequest) (*models.NodeMetric, error)
	DeleteMetric(ctx context.Context, userID, metricID string) error
}

// SessionService defines live editing sessions over the canvas core.
type SessionService interface {
	OpenOwned(ctx context.Context, userID, funnelID string) (*session.Info, error)
	OpenShared(ctx context.Context, viewerID, token string) (*session.Info, error)
	Describe(ctx context.Context, userID, sessionID string) (*session.Info, error)
	Apply(ctx context.Context, userID, sessionID string, op session.Op) (*session.Result, error)
	Save(ctx context.Context, userID, sessionID string) (*session.Info, error)
	Navigate(ctx context.Context, userID, sessionID string, d canvas.NavDecision) (bool, error)
	Close(ctx context.Context, userID, sessionID string) error
}

// AuditService defines audit log query and maintenance operations.
type AuditService interface {
	Auditor
	Query(ctx context.Context, userID string, q models.AuditQuery) ([]models.AuditEntry, bool, error)
	FunnelActivity(ctx context.Context, userID, funnelID string, limit int) ([]models.AuditEntry, bool, error)
	Purge(ctx context.Context, userID string, retentionDays int) (int, error)
}

// AuditLog is the storage behind AuditService. Purge removes entries
// created before the cutoff.
type AuditLog interface {
	Auditor
	Query(ctx context.Context, userID string, q models.AuditQuery) ([]models.AuditEntry, bool, error)
	Purge(ctx context.Context, userID string, before time.Time) (int, error)
}

// Auditor is the minimal interface for recording audit entries.
// Used by services for fire-and-forget audit logging.
type Auditor interface {
	Record(ctx context.Context, ev models.AuditEvent) error
}
