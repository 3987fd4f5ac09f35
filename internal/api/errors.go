package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/canvas"
	"github.com/funnelboard/funnelboard/internal/httputil"
	"github.com/funnelboard/funnelboard/internal/metrics"
	"github.com/funnelboard/funnelboard/internal/models"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeNotFound        = "not_found"
	ErrCodeInternalError   = "internal_error"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeValidationError = "validation_error"
	ErrCodeConflict        = "conflict"
	ErrCodeForbidden       = "forbidden"
	ErrCodeNoMetrics       = "no_metrics"
	ErrCodeTooLarge        = "payload_too_large"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// respondServiceError maps a service error onto a status and code. Anything
// unrecognised is logged under op and reported as a 500.
func respondServiceError(c *gin.Context, log *logrus.Logger, op string, err error) {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidOp):
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
	case errors.Is(err, models.ErrVersionConflict):
		respondError(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, models.ErrDownloadNotAllowed), errors.Is(err, canvas.ErrReadOnly):
		respondError(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, models.ErrNoMetrics):
		respondError(c, http.StatusUnprocessableEntity, ErrCodeNoMetrics, err.Error())
	case errors.Is(err, models.ErrFunnelNotFound),
		errors.Is(err, models.ErrShareNotFound),
		errors.Is(err, models.ErrMetricNotFound),
		errors.Is(err, models.ErrNodeNotFound),
		errors.Is(err, models.ErrSessionNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, notFoundMessage(err))
	default:
		log.WithError(err).Error(op)
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}

// notFoundMessage reports the sentinel text only, so wrapped context such as
// ids never leaks into the response.
func notFoundMessage(err error) string {
	for _, s := range []error{
		models.ErrNodeNotFound,
		models.ErrFunnelNotFound,
		models.ErrShareNotFound,
		models.ErrMetricNotFound,
		models.ErrSessionNotFound,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}

	return "not found"
}
