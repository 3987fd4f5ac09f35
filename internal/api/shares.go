package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/models"
)

// ShareHandler serves share link management and the shared read-only view.
type ShareHandler struct {
	svc ShareService
	log *logrus.Logger
}

// NewShareHandler creates a ShareHandler.
func NewShareHandler(svc ShareService, log *logrus.Logger) *ShareHandler {
	return &ShareHandler{svc: svc, log: log}
}

// Create handles POST /api/v1/funnels/:id/shares.
func (h *ShareHandler) Create(c *gin.Context) {
	funnelID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req models.CreateShareLinkRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

			return
		}
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	link, err := h.svc.CreateShare(c.Request.Context(), userID, funnelID, req)
	if err != nil {
		respondServiceError(c, h.log, "creating share link", err)

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":         "share.create",
		"user_id":        userID,
		"funnel_id":      funnelID,
		"allow_download": link.AllowDownload,
	}).Info("audit")

	c.JSON(http.StatusCreated, link)
}

// List handles GET /api/v1/funnels/:id/shares.
func (h *ShareHandler) List(c *gin.Context) {
	funnelID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	links, err := h.svc.ListShares(c.Request.Context(), userID, funnelID)
	if err != nil {
		respondServiceError(c, h.log, "listing share links", err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"shares": links})
}

// Revoke handles DELETE /api/v1/shares/:token.
func (h *ShareHandler) Revoke(c *gin.Context) {
	token, ok := pathParam(c, "token")
	if !ok {
		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	if err := h.svc.RevokeShare(c.Request.Context(), userID, token); err != nil {
		respondServiceError(c, h.log, "revoking share link", err)

		return
	}

	h.log.WithFields(logrus.Fields{"action": "share.revoke", "user_id": userID}).Info("audit")

	c.Status(http.StatusNoContent)
}

// Resolve handles GET /api/v1/shared/:token. It needs no account: the token
// is the credential, and the response is always read-only.
func (h *ShareHandler) Resolve(c *gin.Context) {
	token, ok := pathParam(c, "token")
	if !ok {
		return
	}

	view, err := h.svc.ResolveShared(c.Request.Context(), token)
	if err != nil {
		respondServiceError(c, h.log, "resolving share link", err)

		return
	}

	c.Header("Cache-Control", "private, no-store")
	c.JSON(http.StatusOK, view)
}

// Clone handles POST /api/v1/shared/:token/clone, copying a shared funnel
// into the caller's account when the link allows download.
func (h *ShareHandler) Clone(c *gin.Context) {
	token, ok := pathParam(c, "token")
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

	funnel, err := h.svc.CloneShared(c.Request.Context(), token, userID, req)
	if err != nil {
		respondServiceError(c, h.log, "cloning shared funnel", err)

		return
	}

	h.log.WithFields(logrus.Fields{"action": "share.clone", "user_id": userID, "funnel_id": funnel.ID}).Info("audit")

	c.JSON(http.StatusCreated, funnel)
}
