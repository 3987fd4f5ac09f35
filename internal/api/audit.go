package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/models"
)

// AuditHandler serves the caller's activity log.
type AuditHandler struct {
	svc AuditService
	log *logrus.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(svc AuditService, log *logrus.Logger) *AuditHandler {
	return &AuditHandler{svc: svc, log: log}
}

type auditPage struct {
	Data    []models.AuditEntry `json:"data"`
	HasMore bool                `json:"has_more"`
}

// Query handles GET /api/v1/audit. Filters bind from the query string;
// since is RFC3339.
func (h *AuditHandler) Query(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		return
	}

	var q models.AuditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid audit filter: "+err.Error())
		return
	}

	entries, hasMore, err := h.svc.Query(c.Request.Context(), userID, q)
	if err != nil {
		respondServiceError(c, h.log, "audit.query", err)
		return
	}

	c.JSON(http.StatusOK, auditPage{Data: entries, HasMore: hasMore})
}

// FunnelActivity handles GET /api/v1/funnels/:id/activity: every event
// recorded against the funnel, including its shares and metrics.
func (h *AuditHandler) FunnelActivity(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		return
	}

	funnelID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	entries, hasMore, err := h.svc.FunnelActivity(c.Request.Context(), userID, funnelID, parseInt(c.Query("limit"), 50))
	if err != nil {
		respondServiceError(c, h.log, "audit.funnel_activity", err)
		return
	}

	c.JSON(http.StatusOK, auditPage{Data: entries, HasMore: hasMore})
}

// Purge handles DELETE /api/v1/audit?retention_days=N.
func (h *AuditHandler) Purge(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		return
	}

	var req models.AuditPurgeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "retention_days must be an integer")
		return
	}

	deleted, err := h.svc.Purge(c.Request.Context(), userID, req.RetentionDays)
	if err != nil {
		respondServiceError(c, h.log, "audit.purge", err)
		return
	}

	if req.RetentionDays == 0 {
		req.RetentionDays = models.DefaultAuditRetentionDays
	}

	c.JSON(http.StatusOK, gin.H{
		"deleted":        deleted,
		"retention_days": req.RetentionDays,
	})
}
