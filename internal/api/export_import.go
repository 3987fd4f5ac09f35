package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/export"
	"github.com/funnelboard/funnelboard/internal/models"
)

// maxImportSize caps an uploaded bundle; it sits under the router-wide body limit.
const maxImportSize = 8 << 20

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ExportImportHandler serves funnel export and import endpoints.
type ExportImportHandler struct {
	svc FunnelService
	log *logrus.Logger
}

// NewExportImportHandler creates an ExportImportHandler.
func NewExportImportHandler(svc FunnelService, log *logrus.Logger) *ExportImportHandler {
	return &ExportImportHandler{svc: svc, log: log}
}

// exportFilename builds a download name from the funnel name and export time.
func exportFilename(name string, at time.Time, ext string) string {
	base := strings.Trim(unsafeFileChars.ReplaceAllString(name, "-"), "-")
	if base == "" {
		base = "funnel"
	}

	return fmt.Sprintf("%s-%s%s", base, at.UTC().Format("20060102T150405Z"), ext)
}

// Export handles GET /api/v1/funnels/:id/export. The default is a compressed
// bundle; ?format=json returns plain JSON.
func (h *ExportImportHandler) Export(c *gin.Context) {
	funnelID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	format := c.DefaultQuery("format", "bundle")
	if format != "bundle" && format != "json" {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "format must be bundle or json")

		return
	}

	data, err := h.svc.ExportFunnel(c.Request.Context(), userID, funnelID)
	if err != nil {
		respondServiceError(c, h.log, "exporting funnel", err)

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":     "funnel.export",
		"user_id":    userID,
		"funnel_id":  funnelID,
		"format":     format,
		"node_count": data.Stats.NodeCount,
		"edge_count": data.Stats.EdgeCount,
	}).Info("audit")

	if format == "json" {
		c.Header("Content-Disposition", "attachment; filename="+exportFilename(data.Name, data.ExportedAt, ".json"))
		c.JSON(http.StatusOK, data)

		return
	}

	bundle, err := export.Marshal(data)
	if err != nil {
		h.log.WithError(err).Error("encoding bundle")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "export failed")

		return
	}

	c.Header("Content-Disposition", "attachment; filename="+exportFilename(data.Name, data.ExportedAt, export.FileExt))
	c.Data(http.StatusOK, export.ContentType, bundle)
}

// Import handles POST /api/v1/funnels/import. The body is a bundle or
// export JSON; ?name= overrides the stored name and ?dry_run=true only
// validates.
func (h *ExportImportHandler) Import(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		return
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "reading request body")

		return
	}

	if len(raw) > maxImportSize {
		respondError(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "import exceeds size limit")

		return
	}

	data, err := export.Unmarshal(raw)
	if err != nil {
		if errors.Is(err, export.ErrBadBundle) {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

			return
		}

		respondServiceError(c, h.log, "decoding import", err)

		return
	}

	opts := models.ImportOptions{
		Name:   c.Query("name"),
		DryRun: c.Query("dry_run") == "true",
	}

	result, err := h.svc.ImportFunnel(c.Request.Context(), userID, data, opts)
	if err != nil {
		respondServiceError(c, h.log, "importing funnel", err)

		return
	}

	fields := logrus.Fields{
		"action":     "funnel.import",
		"user_id":    userID,
		"node_count": result.Stats.NodeCount,
		"dry_run":    result.DryRun,
	}
	if result.Funnel != nil {
		fields["funnel_id"] = result.Funnel.ID
	}
	h.log.WithFields(fields).Info("audit")

	status := http.StatusCreated
	if result.DryRun {
		status = http.StatusOK
	}

	c.JSON(status, result)
}
