package canvas

import (
	"context"
	"errors"
	"fmt"

	"github.com/funnelboard/funnelboard/internal/models"
)

// ErrReadOnly is returned when saving from a read-only editor.
var ErrReadOnly = errors.New("canvas is read-only")

// Persister stores a canvas bundle on explicit save.
type Persister interface {
	Persist(ctx context.Context, data models.CanvasData) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, data models.CanvasData) error

// Persist calls f.
func (f PersisterFunc) Persist(ctx context.Context, data models.CanvasData) error {
	return f(ctx, data)
}

// Save hands the current bundle to p. On failure the canvas and its dirty
// flag are left untouched so nothing is lost; there is no retry.
func (e *Editor) Save(ctx context.Context, p Persister) error {
	if e.cfg.ReadOnly {
		return ErrReadOnly
	}

	if err := p.Persist(ctx, e.Bundle()); err != nil {
		return fmt.Errorf("persisting canvas: %w", err)
	}

	e.dirty = false

	return nil
}

// NavDecision is the answer to the unsaved-changes dialog.
type NavDecision string

// Navigation decisions.
const (
	SaveThenNavigate   NavDecision = "save"
	DiscardAndNavigate NavDecision = "discard"
	CancelNavigation   NavDecision = "cancel"
)

// Valid reports whether d is a known decision.
func (d NavDecision) Valid() bool {
	switch d {
	case SaveThenNavigate, DiscardAndNavigate, CancelNavigation:
		return true
	}

	return false
}

// Navigate decides whether the host may leave the canvas. A clean editor
// always proceeds. A dirty one follows d; a failed save keeps the user here.
func (e *Editor) Navigate(ctx context.Context, d NavDecision, p Persister) (bool, error) {
	if !e.dirty {
		return true, nil
	}

	switch d {
	case SaveThenNavigate:
		if err := e.Save(ctx, p); err != nil {
			return false, err
		}

		return true, nil
	case DiscardAndNavigate:
		return true, nil
	default:
		return false, nil
	}
}
