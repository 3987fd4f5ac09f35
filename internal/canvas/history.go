package canvas

import (
	"slices"

	"github.com/funnelboard/funnelboard/internal/models"
)

// Snapshot is a point-in-time copy of the graph.
type Snapshot struct {
	Nodes []models.Node `json:"nodes"`
	Edges []models.Edge `json:"edges"`
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		Nodes: make([]models.Node, len(s.Nodes)),
		Edges: slices.Clone(s.Edges),
	}

	for i, n := range s.Nodes {
		out.Nodes[i] = n.Clone()
	}

	if out.Edges == nil {
		out.Edges = []models.Edge{}
	}

	return out
}

// History is a linear undo/redo stack of full graph snapshots. The index
// always points at the snapshot matching the current graph and stays within
// [0, Len()-1] once initialized.
type History struct {
	snapshots []Snapshot
	index     int
	limit     int
}

// NewHistory creates an empty history retaining at most limit snapshots
// (unbounded when limit <= 0).
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Initialize resets the stack to a single snapshot.
func (h *History) Initialize(s Snapshot) {
	h.snapshots = []Snapshot{s.clone()}
	h.index = 0
}

// Push records s as the newest state, discarding any redo tail beyond the
// current index.
func (h *History) Push(s Snapshot) {
	if len(h.snapshots) == 0 {
		h.Initialize(s)
		return
	}

	h.snapshots = append(h.snapshots[:h.index+1:h.index+1], s.clone())
	h.index = len(h.snapshots) - 1

	if h.limit > 0 && len(h.snapshots) > h.limit {
		drop := len(h.snapshots) - h.limit
		h.snapshots = slices.Clone(h.snapshots[drop:])
		h.index -= drop
	}
}

// Undo steps back one snapshot. It reports false at the oldest snapshot.
func (h *History) Undo() (Snapshot, bool) {
	if h.index <= 0 || len(h.snapshots) == 0 {
		return Snapshot{}, false
	}

	h.index--

	return h.snapshots[h.index].clone(), true
}

// Redo steps forward one snapshot. It reports false at the newest snapshot.
func (h *History) Redo() (Snapshot, bool) {
	if h.index >= len(h.snapshots)-1 {
		return Snapshot{}, false
	}

	h.index++

	return h.snapshots[h.index].clone(), true
}

// CanUndo reports whether Undo would succeed.
func (h *History) CanUndo() bool { return h.index > 0 }

// CanRedo reports whether Redo would succeed.
func (h *History) CanRedo() bool { return h.index < len(h.snapshots)-1 }

// Len returns the number of retained snapshots.
func (h *History) Len() int { return len(h.snapshots) }

// Index returns the position of the current snapshot.
func (h *History) Index() int { return h.index }
