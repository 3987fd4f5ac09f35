package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/models"
)

// MetricHandler serves per-node funnel metrics.
type MetricHandler struct {
	svc MetricService
	log *logrus.Logger
}

// NewMetricHandler creates a MetricHandler.
func NewMetricHandler(svc MetricService, log *logrus.Logger) *MetricHandler {
	return &MetricHandler{svc: svc, log: log}
}

// List handles GET /api/v1/funnels/:id/nodes/:node/metrics.
func (h *MetricHandler) List(c *gin.Context) {
	funnelID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	nodeID, ok := pathParam(c, "node")
	if !ok {
		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	limit := parseInt(c.DefaultQuery("limit", "100"), 100)

	list, err := h.svc.ListMetrics(c.Request.Context(), userID, funnelID, nodeID, limit)
	if err != nil {
		respondServiceError(c, h.log, "listing metrics", err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"metrics": list})
}

// Record handles POST /api/v1/funnels/:id/nodes/:node/metrics.
func (h *MetricHandler) Record(c *gin.Context) {
	funnelID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	nodeID, ok := pathParam(c, "node")
	if !ok {
		return
	}

	var req models.CreateMetricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	m, err := h.svc.RecordMetric(c.Request.Context(), userID, funnelID, nodeID, req)
	if err != nil {
		respondServiceError(c, h.log, "recording metric", err)

		return
	}

	h.log.WithFields(logrus.Fields{"action": "metric.record", "user_id": userID, "funnel_id": funnelID, "node_id": nodeID, "category": req.Category}).Info("audit")

	c.JSON(http.StatusCreated, m)
}

// Ratio handles POST /api/v1/funnels/:id/metrics/ratio.
func (h *MetricHandler) Ratio(c *gin.Context) {
	funnelID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req models.RatioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	m, err := h.svc.CalculateRatio(c.Request.Context(), userID, funnelID, req)
	if err != nil {
		respondServiceError(c, h.log, "calculating ratio", err)

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":      "metric.ratio",
		"user_id":     userID,
		"funnel_id":   funnelID,
		"numerator":   req.NumeratorNodeID,
		"denominator": req.DenominatorNodeID,
	}).Info("audit")

	c.JSON(http.StatusCreated, m)
}

// Delete handles DELETE /api/v1/metrics/:id.
func (h *MetricHandler) Delete(c *gin.Context) {
	metricID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	if err := h.svc.DeleteMetric(c.Request.Context(), userID, metricID); err != nil {
		respondServiceError(c, h.log, "deleting metric", err)

		return
	}

	h.log.WithFields(logrus.Fields{"action": "metric.delete", "user_id": userID, "metric_id": metricID}).Info("audit")

	c.Status(http.StatusNoContent)
}
