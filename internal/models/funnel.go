package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CanvasData is the opaque bundle the canvas core loads and emits on save.
type CanvasData struct {
	Nodes    []Node        `json:"nodes" validate:"max=2000,dive"`
	Edges    []Edge        `json:"edges" validate:"max=10000,dive"`
	Drawings []DrawingPath `json:"drawings" validate:"max=5000,dive"`
}

// EmptyCanvas returns a canvas with non-nil empty slices.
func EmptyCanvas() CanvasData {
	return CanvasData{Nodes: []Node{}, Edges: []Edge{}, Drawings: []DrawingPath{}}
}

// Validate checks field limits plus the graph invariants: node ids are
// unique, every edge references existing nodes, and content item ids are
// unique within each node.
func (c *CanvasData) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}

	nodeIDs := make(map[string]struct{}, len(c.Nodes))
	for _, n := range c.Nodes {
		if !n.Type.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownNodeType, n.Type)
		}

		if _, dup := nodeIDs[n.ID]; dup {
			return fmt.Errorf("%w: node %q", ErrDuplicateID, n.ID)
		}

		nodeIDs[n.ID] = struct{}{}

		if n.Data.Content != nil {
			if err := n.Data.Content.CheckItemIDs(); err != nil {
				return err
			}
		}
	}

	edgeIDs := make(map[string]struct{}, len(c.Edges))
	for _, e := range c.Edges {
		if _, dup := edgeIDs[e.ID]; dup {
			return fmt.Errorf("%w: edge %q", ErrDuplicateID, e.ID)
		}

		edgeIDs[e.ID] = struct{}{}

		if _, ok := nodeIDs[e.Source]; !ok {
			return fmt.Errorf("%w: edge %q source %q", ErrDanglingEdge, e.ID, e.Source)
		}

		if _, ok := nodeIDs[e.Target]; !ok {
			return fmt.Errorf("%w: edge %q target %q", ErrDanglingEdge, e.ID, e.Target)
		}

		if !e.SourceHandle.Valid() || !e.TargetHandle.Valid() {
			return fmt.Errorf("edge %q: invalid handle", e.ID)
		}
	}

	return nil
}

// Funnel is the persisted funnel record.
type Funnel struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Name       string     `json:"name"`
	CanvasData CanvasData `json:"canvas_data"`
	Version    int64      `json:"version"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// FunnelSummary is the list view of a funnel without its canvas.
type FunnelSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	NodeCount int       `json:"node_count"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanvasDocument is a funnel's canvas together with the version it was read at.
type CanvasDocument struct {
	FunnelID   uuid.UUID  `json:"funnel_id"`
	CanvasData CanvasData `json:"canvas_data"`
	Version    int64      `json:"version"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CreateFunnelRequest is the payload for creating a funnel. Template and
// CanvasData are mutually exclusive; with neither the canvas starts empty.
type CreateFunnelRequest struct {
	Name       string      `json:"name" validate:"required,max=200"`
	Template   string      `json:"template,omitempty" validate:"max=100"`
	CanvasData *CanvasData `json:"canvas_data,omitempty"`
}

// Validate checks CreateFunnelRequest fields.
func (r *CreateFunnelRequest) Validate() error {
	if r.Name == "" {
		return ErrMissingName
	}

	if err := validateStruct(r); err != nil {
		return err
	}

	if r.Template != "" && r.CanvasData != nil {
		return fmt.Errorf("template and canvas_data are mutually exclusive")
	}

	if r.CanvasData != nil {
		return r.CanvasData.Validate()
	}

	return nil
}

// CloneFunnelRequest is the payload for copying a funnel. An empty name
// derives one from the source.
type CloneFunnelRequest struct {
	Name string `json:"name,omitempty" validate:"max=200"`
}

// Validate checks CloneFunnelRequest fields.
func (r *CloneFunnelRequest) Validate() error {
	return validateStruct(r)
}

// RenameFunnelRequest is the payload for renaming a funnel.
type RenameFunnelRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// Validate checks RenameFunnelRequest fields.
func (r *RenameFunnelRequest) Validate() error {
	if r.Name == "" {
		return ErrMissingName
	}

	return validateStruct(r)
}

// SaveCanvasRequest is the payload of an explicit save. When ExpectedVersion
// is set the save only succeeds if the stored version still matches;
// otherwise the last write wins.
type SaveCanvasRequest struct {
	CanvasData      CanvasData `json:"canvas_data"`
	ExpectedVersion *int64     `json:"expected_version,omitempty"`
}

// Validate checks SaveCanvasRequest fields.
func (r *SaveCanvasRequest) Validate() error {
	if r.ExpectedVersion != nil && *r.ExpectedVersion < 0 {
		return fmt.Errorf("expected_version must not be negative")
	}

	return r.CanvasData.Validate()
}
