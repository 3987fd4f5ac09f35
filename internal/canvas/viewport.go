package canvas

import (
	"math"

	"github.com/funnelboard/funnelboard/internal/models"
)

// Zoom bounds.
const (
	MinZoom = 0.1
	MaxZoom = 4.0
)

// Viewport maps graph space to screen space: screen = graph*Zoom + (X, Y).
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// DefaultViewport is the identity transform.
func DefaultViewport() Viewport { return Viewport{Zoom: 1} }

// ScreenToGraph converts a screen coordinate into graph space.
func (v Viewport) ScreenToGraph(p Point) models.Position {
	z := v.Zoom
	if z == 0 {
		z = 1
	}

	return models.Position{X: (p.X - v.X) / z, Y: (p.Y - v.Y) / z}
}

// Pan shifts the viewport by a screen-space delta.
func (v Viewport) Pan(dx, dy float64) Viewport {
	v.X += dx
	v.Y += dy

	return v
}

// ZoomAt scales by factor while keeping the graph point under center fixed.
func (v Viewport) ZoomAt(factor float64, center Point) Viewport {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return v
	}

	anchor := v.ScreenToGraph(center)
	zoom := math.Min(MaxZoom, math.Max(MinZoom, v.Zoom*factor))

	return Viewport{
		X:    center.X - anchor.X*zoom,
		Y:    center.Y - anchor.Y*zoom,
		Zoom: zoom,
	}
}
