// Package metrics defines Prometheus metrics for funnelboard.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "funnelboard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnelboard_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnelboard_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	AuditQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "funnelboard_audit_queue_depth",
			Help: "Current audit queue depth",
		},
	)

	AuditDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "funnelboard_audit_dropped_total",
			Help: "Audit events dropped because the queue was full",
		},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "funnelboard_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "funnelboard_editing_sessions",
			Help: "Open canvas editing sessions",
		},
	)

	SessionOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnelboard_session_ops_total",
			Help: "Editing operations by type and whether they changed the canvas",
		},
		[]string{"op", "applied"},
	)

	CanvasSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnelboard_canvas_saves_total",
			Help: "Canvas saves by outcome",
		},
		[]string{"outcome"},
	)

	AuthLockouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "funnelboard_auth_lockouts_total",
			Help: "API keys locked out after repeated authentication failures",
		},
	)

	ShareCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnelboard_share_cache_lookups_total",
			Help: "Share link cache lookups by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		AuditQueueDepth, AuditDropped, WSConnections,
		ActiveSessions, SessionOps, CanvasSaves, ShareCacheLookups, AuthLockouts,
	)
}
