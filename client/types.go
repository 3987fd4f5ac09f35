package client

import (
	"time"

	"github.com/funnelboard/funnelboard/internal/canvas"
	"github.com/funnelboard/funnelboard/internal/models"
	"github.com/funnelboard/funnelboard/internal/session"
)

// Wire types shared with the server.
type (
	Funnel              = models.Funnel
	FunnelSummary       = models.FunnelSummary
	CanvasData          = models.CanvasData
	CanvasDocument      = models.CanvasDocument
	CreateFunnelRequest = models.CreateFunnelRequest
	SaveCanvasRequest   = models.SaveCanvasRequest
	ShareLink           = models.ShareLink
	SharedFunnel        = models.SharedFunnel
	NodeMetric          = models.NodeMetric
	MetricCategory      = models.MetricCategory
	CreateMetricRequest = models.CreateMetricRequest
	RatioRequest        = models.RatioRequest
	ExportFormat        = models.ExportFormat
	ImportOptions       = models.ImportOptions
	ImportResult        = models.ImportResult
	AuditEntry          = models.AuditEntry
	TemplateInfo        = canvas.TemplateInfo
	NavDecision         = canvas.NavDecision
	SessionInfo         = session.Info
	Op                  = session.Op
	OpResult            = session.Result
)

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Database   string `json:"database"`
	ShareCache string `json:"share_cache"`
	Sessions   int    `json:"sessions"`
	Viewers    int    `json:"viewers"`
}

// ListOptions holds pagination parameters.
type ListOptions struct {
	Limit  int
	Offset int
}

// AuditQueryOptions filters the audit log. Zero fields are not sent.
type AuditQueryOptions struct {
	EntityType string // funnel, share or metric
	EntityID   string
	FunnelID   string
	Action     string
	Since      *time.Time
	Limit      int
	Offset     int
}

// AuditPage is one page of audit entries.
type AuditPage struct {
	Data    []AuditEntry `json:"data"`
	HasMore bool         `json:"has_more"`
}

// PurgeResult reports an audit purge.
type PurgeResult struct {
	Deleted       int `json:"deleted"`
	RetentionDays int `json:"retention_days"`
}
