package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/models"
)

// FunnelHandler serves funnel CRUD and canvas endpoints.
type FunnelHandler struct {
	svc FunnelService
	log *logrus.Logger
}

// NewFunnelHandler creates a FunnelHandler with the given service and logger.
func NewFunnelHandler(svc FunnelService, log *logrus.Logger) *FunnelHandler {
	return &FunnelHandler{svc: svc, log: log}
}

// List handles GET /api/v1/funnels.
func (h *FunnelHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		return
	}

	limit := parseInt(c.DefaultQuery("limit", "50"), 50)
	offset := parseOffset(c.DefaultQuery("offset", "0"))

	funnels, hasMore, err := h.svc.ListFunnels(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondServiceError(c, h.log, "listing funnels", err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"funnels": funnels, "has_more": hasMore})
}

// Get handles GET /api/v1/funnels/:id.
func (h *FunnelHandler) Get(c *gin.Context) {
	funnelID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	funnel, err := h.svc.GetFunnel(c.Request.Context(), userID, funnelID)
	if err != nil {
		respondServiceError(c, h.log, "getting funnel", err)

		return
	}

	c.JSON(http.StatusOK, funnel)
}

// Create handles POST /api/v1/funnels.
func (h *FunnelHandler) Create(c *gin.Context) {
	var req models.CreateFunnelRequest
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

	funnel, err := h.svc.CreateFunnel(c.Request.Context(), userID, req)
	if err != nil {
		respondServiceError(c, h.log, "creating funnel", err)

		return
	}

	h.log.WithFields(logrus.Fields{"action": "funnel.create", "user_id": userID, "funnel_id": funnel.ID, "template": req.Template}).Info("audit")

	c.JSON(http.StatusCreated, funnel)
}

// Rename handles PATCH /api/v1/funnels/:id.
func (h *FunnelHandler) Rename(c *gin.Context) {
	funnelID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req models.RenameFunnelRequest
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

	summary, err := h.svc.RenameFunnel(c.Request.Context(), userID, funnelID, req)
	if err != nil {
		respondServiceError(c, h.log, "renaming funnel", err)

		return
	}

	h.log.WithFields(logrus.Fields{"action": "funnel.rename", "user_id": userID, "funnel_id": funnelID}).Info("audit")

	c.JSON(http.StatusOK, summary)
}

// Delete handles DELETE /api/v1/funnels/:id.
func (h *FunnelHandler) Delete(c *gin.Context) {
	funnelID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	if err := h.svc.DeleteFunnel(c.Request.Context(), userID, funnelID); err != nil {
		respondServiceError(c, h.log, "deleting funnel", err)

		return
	}

	h.log.WithFields(logrus.Fields{"action": "funnel.delete", "user_id": userID, "funnel_id": funnelID}).Info("audit")

	c.Status(http.StatusNoContent)
}

// Clone handles POST /api/v1/funnels/:id/clone.
func (h *FunnelHandler) Clone(c *gin.Context) {
	funnelID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req models.CloneFunnelRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

			return
		}
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	funnel, err := h.svc.CloneFunnel(c.Request.Context(), userID, funnelID, req)
	if err != nil {
		respondServiceError(c, h.log, "cloning funnel", err)

		return
	}

	h.log.WithFields(logrus.Fields{"action": "funnel.clone", "user_id": userID, "source_id": funnelID, "funnel_id": funnel.ID}).Info("audit")

	c.JSON(http.StatusCreated, funnel)
}

// LoadCanvas handles GET /api/v1/funnels/:id/canvas.
func (h *FunnelHandler) LoadCanvas(c *gin.Context) {
	funnelID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	doc, err := h.svc.LoadCanvas(c.Request.Context(), userID, funnelID)
	if err != nil {
		respondServiceError(c, h.log, "loading canvas", err)

		return
	}

	c.Header("ETag", strconv.FormatInt(doc.Version, 10))
	c.JSON(http.StatusOK, doc)
}

// SaveCanvas handles PUT /api/v1/funnels/:id/canvas. An If-Match header
// stands in for expected_version when the body omits it.
func (h *FunnelHandler) SaveCanvas(c *gin.Context) {
	funnelID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req models.SaveCanvasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if req.ExpectedVersion == nil {
		if v := strings.Trim(c.GetHeader("If-Match"), `"`); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "If-Match must be a canvas version")

				return
			}
			req.ExpectedVersion = &n
		}
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	summary, err := h.svc.SaveCanvas(c.Request.Context(), userID, funnelID, req)
	if err != nil {
		respondServiceError(c, h.log, "saving canvas", err)

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":     "canvas.save",
		"user_id":    userID,
		"funnel_id":  funnelID,
		"version":    summary.Version,
		"node_count": summary.NodeCount,
	}).Info("audit")

	c.Header("ETag", strconv.FormatInt(summary.Version, 10))
	c.JSON(http.StatusOK, summary)
}
