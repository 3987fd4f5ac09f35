// Package canvas is the headless editing core behind the funnel canvas: the
// graph state store, the linear undo/redo history, the freehand drawing
// overlay, the viewport, and the read-only permission guard that wraps every
// mutating entry point.
//
// The core is single-threaded. Callers that share an Editor between
// goroutines must serialize access themselves (see internal/session).
package canvas

import (
	"time"

	"github.com/google/uuid"

	"github.com/funnelboard/funnelboard/internal/models"
)

// Defaults applied to zero-valued Config fields.
const (
	DefaultPasteOffset = 50
	DefaultStrokeColor = "#ef4444"
	DefaultStrokeWidth = 3
	DefaultEdgeColor   = "#6366f1"
)

// DrawingStyle is the ambient pen used for new strokes.
type DrawingStyle struct {
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

// EdgeStyle is the ambient style applied to new connections.
type EdgeStyle struct {
	Type     models.EdgeType `json:"type"`
	Animated bool            `json:"animated"`
	Color    string          `json:"color,omitempty"`
}

// Config is fixed for the lifetime of an Editor. It carries everything the
// hosting page resolves before mounting the canvas.
type Config struct {
	// ReadOnly disables every mutation, drawing, template loading and saving.
	// Pan and zoom remain available.
	ReadOnly bool
	// AllowDownload lets a read-only viewer clone the funnel into their own account.
	AllowDownload bool
	Drawing       DrawingStyle
	Edge          EdgeStyle
	// HistoryLimit caps the number of retained snapshots; <= 0 keeps every
	// snapshot back to the initial one.
	HistoryLimit int
	// PasteOffset shifts pasted nodes so they do not cover the originals.
	PasteOffset float64
}

func (c Config) withDefaults() Config {
	if c.Drawing.Color == "" {
		c.Drawing.Color = DefaultStrokeColor
	}

	if c.Drawing.Width <= 0 {
		c.Drawing.Width = DefaultStrokeWidth
	}

	if !c.Edge.Type.Valid() {
		c.Edge.Type = models.EdgeDefault
	}

	if c.Edge.Color == "" {
		c.Edge.Color = DefaultEdgeColor
	}

	if c.PasteOffset == 0 {
		c.PasteOffset = DefaultPasteOffset
	}

	return c
}

// Option customizes an Editor's collaborators.
type Option func(*Editor)

// WithClock overrides the time source used to stamp drawings.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) { e.now = now }
}

// WithIDGenerator overrides how node, edge and drawing ids are minted. The
// prefix is the node type, "edge" or "drawing".
func WithIDGenerator(gen func(prefix string) string) Option {
	return func(e *Editor) { e.newID = gen }
}

func defaultID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
