package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/canvas"
)

// TemplateHandler lists the built-in funnel templates.
type TemplateHandler struct {
	log *logrus.Logger
}

// NewTemplateHandler creates a TemplateHandler.
func NewTemplateHandler(log *logrus.Logger) *TemplateHandler {
	return &TemplateHandler{log: log}
}

// List handles GET /api/v1/templates.
func (h *TemplateHandler) List(c *gin.Context) {
	list, err := canvas.Templates()
	if err != nil {
		h.log.WithError(err).Error("loading templates")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	c.JSON(http.StatusOK, gin.H{"templates": list})
}
