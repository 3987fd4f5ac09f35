package models

import "time"

// DrawingPath is a committed freehand stroke on the drawing overlay.
// Path holds SVG path commands ("M x y L x y ...").
type DrawingPath struct {
	ID          string    `json:"id" validate:"required,max=255"`
	Path        string    `json:"path" validate:"required"`
	Color       string    `json:"color" validate:"max=32"`
	StrokeWidth float64   `json:"strokeWidth" validate:"gte=0,lte=100"`
	CreatedAt   time.Time `json:"createdAt"`
}
