// Package api provides the HTTP handlers and router for funnelboard.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/dbpool"
)

// Counter reports a live count, such as open sessions or websocket clients.
type Counter interface {
	Len() int
}

// CounterFunc adapts a function to Counter.
type CounterFunc func() int

// Len calls f.
func (f CounterFunc) Len() int { return f() }

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	pool      *dbpool.Pool
	cache     Pinger
	sessions  Counter
	clients   Counter
	log       *logrus.Logger
	version   string
	startTime time.Time
}

// HealthDeps lists what the health endpoints report on. Every field except
// Log may be nil.
type HealthDeps struct {
	Pool     *dbpool.Pool
	Cache    Pinger
	Sessions Counter
	Clients  Counter
	Log      *logrus.Logger
	Version  string
}

// NewHealthHandler creates a HealthHandler with the given dependencies.
func NewHealthHandler(d HealthDeps) *HealthHandler {
	return &HealthHandler{
		pool:      d.Pool,
		cache:     d.Cache,
		sessions:  d.Sessions,
		clients:   d.Clients,
		log:       d.Log,
		version:   d.Version,
		startTime: time.Now(),
	}
}

// readinessResponse is the JSON payload returned by the readiness endpoint.
type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// healthResponse is the JSON payload returned by the health/liveness endpoint.
type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	ShareCache    string  `json:"share_cache"`
	Sessions      int     `json:"sessions"`
	Viewers       int     `json:"viewers"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

func count(c Counter) int {
	if c == nil {
		return 0
	}

	return c.Len()
}

// Liveness handles GET /api/v1/health.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		Database:      "connected",
		ShareCache:    "disabled",
		Sessions:      count(h.sessions),
		Viewers:       count(h.clients),
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	// Best-effort pings; liveness never fails on a dependency.
	if h.pool != nil {
		if err := h.pool.HealthCheck(ctx); err != nil {
			resp.Database = "disconnected"
		}
	} else {
		resp.Database = "not_configured"
	}

	if h.cache != nil {
		resp.ShareCache = "connected"
		if err := h.cache.Ping(ctx); err != nil {
			resp.ShareCache = "disconnected"
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Readiness handles GET /api/v1/ready. The share cache is optional, so a
// cache outage degrades readiness without failing it.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := map[string]string{
		"database": "ok",
		"schema":   "ok",
	}
	status := "ready"
	statusCode := http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	notReady := func(check, value string) {
		checks[check] = value
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	switch {
	case h.pool == nil:
		notReady("database", "not_configured")
		checks["schema"] = "unknown"
	case h.pool.HealthCheck(ctx) != nil:
		h.log.Error("readiness: database health check failed")
		notReady("database", "error")
		checks["schema"] = "unknown"
	default:
		if err := h.checkSchema(ctx); err != nil {
			h.log.WithError(err).Error("readiness: schema check failed")
			notReady("schema", "error")
		}
	}

	if h.cache != nil {
		checks["share_cache"] = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			h.log.WithError(err).Warn("readiness: share cache ping failed")
			checks["share_cache"] = "degraded"
		}
	}

	c.JSON(statusCode, readinessResponse{
		Status: status,
		Checks: checks,
	})
}

// checkSchema verifies migrations have run by querying the funnels table.
func (h *HealthHandler) checkSchema(ctx context.Context) error {
	var exists bool
	err := h.pool.QueryRow(ctx, "SELECT to_regclass('public.funnels') IS NOT NULL").Scan(&exists)
	if err != nil {
		return fmt.Errorf("schema check: %w", err)
	}

	if !exists {
		return fmt.Errorf("schema check: funnels table missing")
	}

	return nil
}
