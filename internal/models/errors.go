package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation.
var (
	ErrMissingName     = errors.New("name is required")
	ErrUnknownNodeType = errors.New("unknown node type")
	ErrUnknownCategory = errors.New("unknown metric category")
	ErrDuplicateID     = errors.New("duplicate id")
	ErrDanglingEdge    = errors.New("edge references missing node")
	ErrUnknownTemplate = errors.New("unknown template")
	ErrInvalidOp       = errors.New("invalid editing operation")
	ErrValidation      = errors.New("validation failed")
)

// Sentinel errors for entity lookups.
var (
	ErrFunnelNotFound  = errors.New("funnel not found")
	ErrShareNotFound   = errors.New("share link not found")
	ErrMetricNotFound  = errors.New("metric not found")
	ErrNodeNotFound    = errors.New("node not found on canvas")
	ErrNoMetrics       = errors.New("node has no metrics")
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("editing session not found")
)

// ErrVersionConflict indicates the funnel changed since the caller loaded it (HTTP 409).
var ErrVersionConflict = errors.New("funnel was modified by another session")

// ErrDownloadNotAllowed indicates a clone attempt on a share link without allow_download.
var ErrDownloadNotAllowed = errors.New("share link does not allow download")

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum length of %d", field, maxLen)
}
