package canvas

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/funnelboard/funnelboard/internal/models"
)

// Point is a position in graph space sampled from a pointer event.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Control elements that swallow pointer-down instead of starting a stroke.
var controlTargets = map[string]struct{}{
	"button":   {},
	"popover":  {},
	"minimap":  {},
	"toolbar":  {},
	"controls": {},
}

// IsControlTarget reports whether a pointer-down on target must not begin a stroke.
func IsControlTarget(target string) bool {
	_, ok := controlTargets[target]
	return ok
}

// Overlay captures freehand strokes drawn over the canvas. It is independent
// of the graph and its history.
type Overlay struct {
	enabled bool
	style   DrawingStyle
	drawing bool
	points  []Point
	paths   []models.DrawingPath
}

// NewOverlay creates an overlay holding the given committed paths.
func NewOverlay(style DrawingStyle, paths []models.DrawingPath) *Overlay {
	p := slices.Clone(paths)
	if p == nil {
		p = []models.DrawingPath{}
	}

	return &Overlay{style: style, paths: p}
}

// Enabled reports whether drawing mode is on.
func (o *Overlay) Enabled() bool { return o.enabled }

// Style returns the ambient pen.
func (o *Overlay) Style() DrawingStyle { return o.style }

// SetMode toggles drawing mode. Turning it off discards an in-progress stroke.
func (o *Overlay) SetMode(on bool) {
	o.enabled = on
	if !on {
		o.drawing = false
		o.points = nil
	}
}

// SetStyle changes the pen used by subsequent strokes.
func (o *Overlay) SetStyle(s DrawingStyle) { o.style = s }

// Begin starts a stroke at p unless drawing mode is off or the pointer went
// down on a control element.
func (o *Overlay) Begin(p Point, target string) bool {
	if !o.enabled || IsControlTarget(target) {
		return false
	}

	o.drawing = true
	o.points = []Point{p}

	return true
}

// Extend appends a sample to the in-progress stroke.
func (o *Overlay) Extend(p Point) bool {
	if !o.drawing {
		return false
	}

	o.points = append(o.points, p)

	return true
}

// End finishes the stroke. Strokes with fewer than two samples are dropped.
func (o *Overlay) End(id string, at time.Time) (models.DrawingPath, bool) {
	if !o.drawing {
		return models.DrawingPath{}, false
	}

	points := o.points
	o.drawing = false
	o.points = nil

	if len(points) < 2 {
		return models.DrawingPath{}, false
	}

	dp := models.DrawingPath{
		ID:          id,
		Path:        PathData(points),
		Color:       o.style.Color,
		StrokeWidth: o.style.Width,
		CreatedAt:   at,
	}

	paths := make([]models.DrawingPath, len(o.paths), len(o.paths)+1)
	copy(paths, o.paths)
	o.paths = append(paths, dp)

	return dp, true
}

// Clear removes every committed stroke.
func (o *Overlay) Clear() bool {
	if len(o.paths) == 0 {
		return false
	}

	o.paths = []models.DrawingPath{}

	return true
}

// Paths returns the committed strokes. The slice must not be modified.
func (o *Overlay) Paths() []models.DrawingPath { return o.paths }

// PathData renders samples as SVG path commands: a move-to the first point
// followed by a line-to each subsequent point.
func PathData(points []Point) string {
	var b strings.Builder

	for i, p := range points {
		if i == 0 {
			b.WriteString("M ")
		} else {
			b.WriteString(" L ")
		}

		b.WriteString(strconv.FormatFloat(p.X, 'f', -1, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(p.Y, 'f', -1, 64))
	}

	return b.String()
}
