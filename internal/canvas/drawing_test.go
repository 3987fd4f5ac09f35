package canvas_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelboard/funnelboard/internal/canvas"
	"github.com/funnelboard/funnelboard/internal/models"
)

func TestPathData(t *testing.T) {
	tests := []struct {
		name   string
		points []canvas.Point
		want   string
	}{
		{"empty", nil, ""},
		{"single", []canvas.Point{{X: 1, Y: 2}}, "M 1 2"},
		{"line", []canvas.Point{{X: 1, Y: 2}, {X: 3.5, Y: -4}}, "M 1 2 L 3.5 -4"},
		{"polyline", []canvas.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0}}, "M 0 0 L 1 1 L 2 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, canvas.PathData(tt.points))
		})
	}
}

func TestEditor_SinglePointStrokeIsDropped(t *testing.T) {
	e := newEditor(t, canvas.Config{}, models.EmptyCanvas())
	require.True(t, e.SetDrawingMode(true))

	require.True(t, e.BeginStroke(canvas.Point{X: 5, Y: 5}, "pane"))

	_, ok := e.EndStroke()
	assert.False(t, ok)
	assert.Empty(t, e.Bundle().Drawings)
	assert.False(t, e.Dirty())
}

func TestEditor_StrokeCommitsOnePath(t *testing.T) {
	e := newEditor(t, canvas.Config{Drawing: canvas.DrawingStyle{Color: "#111", Width: 4}}, models.EmptyCanvas())
	require.True(t, e.SetDrawingMode(true))

	require.True(t, e.BeginStroke(canvas.Point{X: 5, Y: 6}, "pane"))
	require.True(t, e.ExtendStroke(canvas.Point{X: 7, Y: 8}))
	require.True(t, e.ExtendStroke(canvas.Point{X: 9, Y: 10}))

	dp, ok := e.EndStroke()
	require.True(t, ok)

	drawings := e.Bundle().Drawings
	require.Len(t, drawings, 1)
	assert.Equal(t, dp, drawings[0])
	assert.True(t, strings.HasPrefix(dp.Path, "M 5 6"))
	assert.Equal(t, "M 5 6 L 7 8 L 9 10", dp.Path)
	assert.Equal(t, "#111", dp.Color)
	assert.Equal(t, 4.0, dp.StrokeWidth)
	assert.Equal(t, fixedTime, dp.CreatedAt)
	assert.True(t, e.Dirty())
	assert.Equal(t, 1, e.History().Len(), "strokes are not in graph history")
}

func TestEditor_StrokeIgnoresControls(t *testing.T) {
	e := newEditor(t, canvas.Config{}, models.EmptyCanvas())
	require.True(t, e.SetDrawingMode(true))

	for _, target := range []string{"button", "popover", "minimap", "toolbar", "controls"} {
		assert.False(t, e.BeginStroke(canvas.Point{}, target), target)
	}

	assert.False(t, e.ExtendStroke(canvas.Point{X: 1}))
}

func TestEditor_StrokeNeedsDrawingMode(t *testing.T) {
	e := newEditor(t, canvas.Config{}, models.EmptyCanvas())

	assert.False(t, e.BeginStroke(canvas.Point{}, "pane"))

	require.True(t, e.SetDrawingMode(true))
	require.True(t, e.BeginStroke(canvas.Point{}, "pane"))
	require.True(t, e.SetDrawingMode(false))
	assert.False(t, e.ExtendStroke(canvas.Point{X: 1}), "leaving drawing mode discards the stroke")
}

func TestEditor_StrokeFollowsViewport(t *testing.T) {
	e := newEditor(t, canvas.Config{}, models.EmptyCanvas())
	e.Pan(10, 10)
	require.True(t, e.SetDrawingMode(true))

	require.True(t, e.BeginStroke(canvas.Point{X: 10, Y: 10}, ""))
	require.True(t, e.ExtendStroke(canvas.Point{X: 20, Y: 30}))

	dp, ok := e.EndStroke()
	require.True(t, ok)
	assert.Equal(t, "M 0 0 L 10 20", dp.Path)
}

func TestEditor_ClearDrawings(t *testing.T) {
	data := models.EmptyCanvas()
	data.Drawings = []models.DrawingPath{{ID: "d1", Path: "M 0 0 L 1 1"}}
	e := newEditor(t, canvas.Config{}, data)

	require.True(t, e.ClearDrawings())
	assert.Empty(t, e.Bundle().Drawings)
	assert.True(t, e.Dirty())
	assert.False(t, e.ClearDrawings())
}

func TestEditor_SetDrawingStyle(t *testing.T) {
	e := newEditor(t, canvas.Config{}, models.EmptyCanvas())

	assert.Equal(t, canvas.DrawingStyle{Color: canvas.DefaultStrokeColor, Width: canvas.DefaultStrokeWidth}, e.State().DrawingStyle)
	assert.False(t, e.SetDrawingStyle(canvas.DrawingStyle{Color: "", Width: 2}))
	require.True(t, e.SetDrawingStyle(canvas.DrawingStyle{Color: "#0f0", Width: 8}))
	assert.Equal(t, "#0f0", e.State().DrawingStyle.Color)
}
