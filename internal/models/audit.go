package models

import (
	"strings"
	"time"
)

// AuditAction names something a user did, as "<entity>.<verb>".
type AuditAction string

// Recorded actions.
const (
	ActionFunnelCreate AuditAction = "funnel.create"
	ActionFunnelRename AuditAction = "funnel.rename"
	ActionFunnelDelete AuditAction = "funnel.delete"
	ActionFunnelClone  AuditAction = "funnel.clone"
	ActionFunnelSave   AuditAction = "funnel.save"
	ActionFunnelExport AuditAction = "funnel.export"
	ActionFunnelImport AuditAction = "funnel.import"
	ActionShareCreate  AuditAction = "share.create"
	ActionShareRevoke  AuditAction = "share.revoke"
	ActionShareClone   AuditAction = "share.clone"
	ActionMetricRecord AuditAction = "metric.record"
	ActionMetricRatio  AuditAction = "metric.ratio"
	ActionMetricDelete AuditAction = "metric.delete"
)

// Entity is the part of the action before the dot.
func (a AuditAction) Entity() string {
	entity, _, _ := strings.Cut(string(a), ".")
	return entity
}

// AuditEvent is one activity record on its way into the log. FunnelID ties
// share and metric events to the funnel they touched; it is empty when the
// caller no longer knows the funnel, as for a metric deleted by id.
type AuditEvent struct {
	UserID   string
	Action   AuditAction
	FunnelID string
	EntityID string
	Actor    string
	Detail   map[string]any
}

// AuditEntry is a stored AuditEvent.
type AuditEntry struct {
	ID         int64          `json:"id"`
	UserID     string         `json:"-"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	FunnelID   string         `json:"funnel_id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// AuditQuery filters a user's audit log. It binds from query parameters.
type AuditQuery struct {
	EntityType string     `form:"entity_type" validate:"omitempty,oneof=funnel share metric"`
	EntityID   string     `form:"entity_id" validate:"max=128"`
	FunnelID   string     `form:"funnel_id" validate:"omitempty,uuid"`
	Action     string     `form:"action" validate:"max=64"`
	Since      *time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit      int        `form:"limit" validate:"min=0,max=200"`
	Offset     int        `form:"offset" validate:"min=0,max=100000"`
}

// Validate checks the filter values.
func (q *AuditQuery) Validate() error {
	return validateStruct(q)
}

// DefaultAuditRetentionDays applies when a purge does not name a window.
const DefaultAuditRetentionDays = 90

// AuditPurgeRequest selects how much history DELETE /audit keeps.
type AuditPurgeRequest struct {
	RetentionDays int `form:"retention_days" validate:"min=0,max=3650"`
}

// Validate checks the retention window.
func (r *AuditPurgeRequest) Validate() error {
	return validateStruct(r)
}
