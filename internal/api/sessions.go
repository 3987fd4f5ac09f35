package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/canvas"
	"github.com/funnelboard/funnelboard/internal/session"
)

// SessionHandler serves live editing sessions over the canvas core.
type SessionHandler struct {
	svc SessionService
	log *logrus.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(svc SessionService, log *logrus.Logger) *SessionHandler {
	return &SessionHandler{svc: svc, log: log}
}

type navigateRequest struct {
	Decision canvas.NavDecision `json:"decision"`
}

// OpenOwned handles POST /api/v1/funnels/:id/sessions.
func (h *SessionHandler) OpenOwned(c *gin.Context) {
	funnelID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	info, err := h.svc.OpenOwned(c.Request.Context(), userID, funnelID)
	if err != nil {
		respondServiceError(c, h.log, "opening session", err)

		return
	}

	h.log.WithFields(logrus.Fields{"action": "session.open", "user_id": userID, "funnel_id": funnelID, "session_id": info.ID}).Info("audit")

	c.JSON(http.StatusCreated, info)
}

// OpenShared handles POST /api/v1/shared/:token/sessions, opening a
// read-only session on a shared funnel.
func (h *SessionHandler) OpenShared(c *gin.Context) {
	token, ok := pathParam(c, "token")
	if !ok {
		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	info, err := h.svc.OpenShared(c.Request.Context(), userID, token)
	if err != nil {
		respondServiceError(c, h.log, "opening shared session", err)

		return
	}

	h.log.WithFields(logrus.Fields{"action": "session.open_shared", "user_id": userID, "funnel_id": info.FunnelID, "session_id": info.ID}).Info("audit")

	c.JSON(http.StatusCreated, info)
}

// Get handles GET /api/v1/sessions/:sid.
func (h *SessionHandler) Get(c *gin.Context) {
	sessionID, ok := uuidParam(c, "sid")
	if !ok {
		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	info, err := h.svc.Describe(c.Request.Context(), userID, sessionID)
	if err != nil {
		respondServiceError(c, h.log, "describing session", err)

		return
	}

	c.JSON(http.StatusOK, info)
}

// Apply handles POST /api/v1/sessions/:sid/ops. A well formed op that
// changes nothing is still a 200 with applied=false.
func (h *SessionHandler) Apply(c *gin.Context) {
	sessionID, ok := uuidParam(c, "sid")
	if !ok {
		return
	}

	var op session.Op
	if err := c.ShouldBindJSON(&op); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if op.Type == "" {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, "type is required")

		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	res, err := h.svc.Apply(c.Request.Context(), userID, sessionID, op)
	if err != nil {
		respondServiceError(c, h.log, "applying op", err)

		return
	}

	h.log.WithFields(logrus.Fields{"session_id": sessionID, "op": op.Type, "applied": res.Applied}).Debug("session op")

	c.JSON(http.StatusOK, res)
}

// Save handles POST /api/v1/sessions/:sid/save.
func (h *SessionHandler) Save(c *gin.Context) {
	sessionID, ok := uuidParam(c, "sid")
	if !ok {
		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	info, err := h.svc.Save(c.Request.Context(), userID, sessionID)
	if err != nil {
		respondServiceError(c, h.log, "saving session", err)

		return
	}

	h.log.WithFields(logrus.Fields{"action": "session.save", "user_id": userID, "session_id": sessionID, "version": info.Version}).Info("audit")

	c.JSON(http.StatusOK, info)
}

// Navigate handles POST /api/v1/sessions/:sid/navigate with the answer to
// the unsaved-changes prompt. proceed=true means the client may leave; the
// session is closed in that case.
func (h *SessionHandler) Navigate(c *gin.Context) {
	sessionID, ok := uuidParam(c, "sid")
	if !ok {
		return
	}

	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if !req.Decision.Valid() {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, "decision must be save, discard or cancel")

		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	proceed, err := h.svc.Navigate(c.Request.Context(), userID, sessionID, req.Decision)
	if err != nil {
		respondServiceError(c, h.log, "navigating away", err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"proceed": proceed})
}

// Close handles DELETE /api/v1/sessions/:sid. Unsaved changes are dropped.
func (h *SessionHandler) Close(c *gin.Context) {
	sessionID, ok := uuidParam(c, "sid")
	if !ok {
		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	if err := h.svc.Close(c.Request.Context(), userID, sessionID); err != nil {
		respondServiceError(c, h.log, "closing session", err)

		return
	}

	c.Status(http.StatusNoContent)
}
