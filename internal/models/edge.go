package models

// Handle is one of the eight directional anchors a connection attaches to.
type Handle string

// Connection anchors.
const (
	HandleTopSource    Handle = "top-source"
	HandleLeftSource   Handle = "left-source"
	HandleRightSource  Handle = "right-source"
	HandleBottomSource Handle = "bottom-source"
	HandleTopTarget    Handle = "top-target"
	HandleLeftTarget   Handle = "left-target"
	HandleRightTarget  Handle = "right-target"
	HandleBottomTarget Handle = "bottom-target"
)

// Valid reports whether h is a known anchor. The empty handle means "node default".
func (h Handle) Valid() bool {
	switch h {
	case "", HandleTopSource, HandleLeftSource, HandleRightSource, HandleBottomSource,
		HandleTopTarget, HandleLeftTarget, HandleRightTarget, HandleBottomTarget:
		return true
	}

	return false
}

// EdgeType is how an edge is rendered.
type EdgeType string

// Edge render styles.
const (
	EdgeDefault  EdgeType = "default"
	EdgeStraight EdgeType = "straight"
)

// Valid reports whether t is a known edge type.
func (t EdgeType) Valid() bool {
	return t == EdgeDefault || t == EdgeStraight
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID           string   `json:"id" validate:"required,max=255"`
	Source       string   `json:"source" validate:"required,max=255"`
	SourceHandle Handle   `json:"sourceHandle,omitempty"`
	Target       string   `json:"target" validate:"required,max=255"`
	TargetHandle Handle   `json:"targetHandle,omitempty"`
	Type         EdgeType `json:"type" validate:"omitempty,oneof=default straight"`
	Animated     bool     `json:"animated,omitempty"`
	Color        string   `json:"color,omitempty" validate:"max=32"`
}

// Touches reports whether the edge has nodeID as either endpoint.
func (e Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// SameConnection reports whether two edges join the same handles.
func (e Edge) SameConnection(o Edge) bool {
	return e.Source == o.Source && e.Target == o.Target &&
		e.SourceHandle == o.SourceHandle && e.TargetHandle == o.TargetHandle
}
