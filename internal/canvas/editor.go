package canvas

import (
	"maps"
	"slices"
	"time"

	"github.com/funnelboard/funnelboard/internal/models"
)

// Connection describes a drag-connect gesture between two handles.
type Connection struct {
	Source       string        `json:"source"`
	SourceHandle models.Handle `json:"sourceHandle,omitempty"`
	Target       string        `json:"target"`
	TargetHandle models.Handle `json:"targetHandle,omitempty"`
}

// State is a read-only view of everything an Editor renders.
type State struct {
	Nodes         []models.Node        `json:"nodes"`
	Edges         []models.Edge        `json:"edges"`
	Drawings      []models.DrawingPath `json:"drawings"`
	Viewport      Viewport             `json:"viewport"`
	SelectedNodes []string             `json:"selected_nodes"`
	SelectedEdges []string             `json:"selected_edges"`
	EdgeStyle     EdgeStyle            `json:"edge_style"`
	DrawingMode   bool                 `json:"drawing_mode"`
	DrawingStyle  DrawingStyle         `json:"drawing_style"`
	CanUndo       bool                 `json:"can_undo"`
	CanRedo       bool                 `json:"can_redo"`
	Dirty         bool                 `json:"dirty"`
	ReadOnly      bool                 `json:"read_only"`
	CanClone      bool                 `json:"can_clone"`
}

// Editor is one mounted canvas. Every mutating method goes through guard,
// which turns it into a no-op in read-only mode, and every successful graph
// mutation pushes exactly one history snapshot.
type Editor struct {
	cfg       Config
	graph     Graph
	history   *History
	overlay   *Overlay
	viewport  Viewport
	edgeStyle EdgeStyle

	selNodes  map[string]struct{}
	selEdges  map[string]struct{}
	clipboard *Snapshot

	dirty bool

	now   func() time.Time
	newID func(prefix string) string
}

// New mounts an editor over data.
func New(cfg Config, data models.CanvasData, opts ...Option) *Editor {
	cfg = cfg.withDefaults()

	e := &Editor{
		cfg:       cfg,
		history:   NewHistory(cfg.HistoryLimit),
		overlay:   NewOverlay(cfg.Drawing, nil),
		viewport:  DefaultViewport(),
		edgeStyle: cfg.Edge,
		now:       time.Now,
		newID:     defaultID,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.Load(data)

	return e
}

// Load replaces the whole canvas with data and resets history, selection
// and the dirty flag. It is how the host mounts initial data, so it is
// allowed in read-only mode.
func (e *Editor) Load(data models.CanvasData) {
	e.graph = NewGraph(data.Nodes, data.Edges)
	e.history.Initialize(e.graph.snapshot())
	e.overlay = NewOverlay(e.overlay.Style(), data.Drawings)
	e.selNodes = map[string]struct{}{}
	e.selEdges = map[string]struct{}{}
	e.dirty = false
}

// Config returns the editor's configuration.
func (e *Editor) Config() Config { return e.cfg }

// ReadOnly reports whether mutations are disabled.
func (e *Editor) ReadOnly() bool { return e.cfg.ReadOnly }

// CanClone reports whether a read-only viewer may copy the funnel.
func (e *Editor) CanClone() bool { return e.cfg.ReadOnly && e.cfg.AllowDownload }

// Dirty reports whether there are changes since the last load or save.
func (e *Editor) Dirty() bool { return e.dirty }

// Graph returns the current graph value.
func (e *Editor) Graph() Graph { return e.graph }

// History exposes the undo stack for inspection.
func (e *Editor) History() *History { return e.history }

// Viewport returns the current pan/zoom transform.
func (e *Editor) Viewport() Viewport { return e.viewport }

// Bundle emits the {nodes, edges, drawings} shape the host persists.
func (e *Editor) Bundle() models.CanvasData {
	s := e.graph.snapshot()

	return models.CanvasData{
		Nodes:    s.Nodes,
		Edges:    s.Edges,
		Drawings: slices.Clone(e.overlay.Paths()),
	}
}

// State returns a copy of the render state.
func (e *Editor) State() State {
	b := e.Bundle()

	return State{
		Nodes:         b.Nodes,
		Edges:         b.Edges,
		Drawings:      b.Drawings,
		Viewport:      e.viewport,
		SelectedNodes: sortedKeys(e.selNodes),
		SelectedEdges: sortedKeys(e.selEdges),
		EdgeStyle:     e.edgeStyle,
		DrawingMode:   e.overlay.Enabled(),
		DrawingStyle:  e.overlay.Style(),
		CanUndo:       !e.cfg.ReadOnly && e.history.CanUndo(),
		CanRedo:       !e.cfg.ReadOnly && e.history.CanRedo(),
		Dirty:         e.dirty,
		ReadOnly:      e.cfg.ReadOnly,
		CanClone:      e.CanClone(),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(m))
}

// guard runs fn only when the editor is editable.
func (e *Editor) guard(fn func() bool) bool {
	if e.cfg.ReadOnly {
		return false
	}

	return fn()
}

// commit installs g, records it in history and drops selections that no
// longer exist.
func (e *Editor) commit(g Graph) {
	e.graph = g
	e.history.Push(g.snapshot())
	e.dirty = true
	e.pruneSelection()
}

// restore installs a snapshot taken from history without pushing a new one.
func (e *Editor) restore(s Snapshot) {
	e.graph = graphFromSnapshot(s)
	e.dirty = true
	e.pruneSelection()
}

func (e *Editor) pruneSelection() {
	maps.DeleteFunc(e.selNodes, func(id string, _ struct{}) bool { return !e.graph.HasNode(id) })
	maps.DeleteFunc(e.selEdges, func(id string, _ struct{}) bool {
		return !slices.ContainsFunc(e.graph.Edges(), func(ed models.Edge) bool { return ed.ID == id })
	})
}

// AddNode places a new node of type t at pos with the type's default label.
// It returns the new node id.
func (e *Editor) AddNode(t models.NodeType, pos models.Position) (string, bool) {
	var id string

	ok := e.guard(func() bool {
		if !t.Valid() {
			return false
		}

		n := models.Node{
			ID:       e.newID(string(t)),
			Type:     t,
			Position: pos,
			Data:     models.NodeData{Label: t.DefaultLabel()},
		}

		g, added := e.graph.WithNode(n)
		if !added {
			return false
		}

		id = n.ID
		e.commit(g)

		return true
	})

	return id, ok
}

// Drop handles a sidebar drag-and-drop: payload is the node type string and
// screen is the drop point before the viewport transform.
func (e *Editor) Drop(payload string, screen Point) (string, bool) {
	t, err := models.ParseNodeType(payload)
	if err != nil {
		return "", false
	}

	return e.AddNode(t, e.viewport.ScreenToGraph(screen))
}

// UpdateNodeData shallow-merges patch into the node's data. Unknown keys or
// mistyped values leave the node untouched.
func (e *Editor) UpdateNodeData(id string, patch map[string]any) bool {
	return e.guard(func() bool {
		if len(patch) == 0 {
			return false
		}

		g, found, err := e.graph.WithUpdatedNode(id, func(n *models.Node) error {
			data, err := mergeNodeData(n.Data, patch)
			if err != nil {
				return err
			}

			n.Data = data

			return nil
		})
		if err != nil || !found {
			return false
		}

		e.commit(g)

		return true
	})
}

// MoveNode sets a node's position at the end of a drag.
func (e *Editor) MoveNode(id string, pos models.Position) bool {
	return e.guard(func() bool {
		cur, ok := e.graph.Node(id)
		if !ok || cur.Position == pos {
			return false
		}

		g, _, _ := e.graph.WithUpdatedNode(id, func(n *models.Node) error {
			n.Position = pos
			return nil
		})
		e.commit(g)

		return true
	})
}

// CustomizeNode sets the icon and color of an "other" node.
func (e *Editor) CustomizeNode(id, icon, color string) bool {
	return e.guard(func() bool {
		cur, ok := e.graph.Node(id)
		if !ok || cur.Type != models.NodeOther {
			return false
		}

		g, _, _ := e.graph.WithUpdatedNode(id, func(n *models.Node) error {
			n.Data.Icon = icon
			n.Data.Color = color

			return nil
		})
		e.commit(g)

		return true
	})
}

// DeleteNode removes a node and every edge attached to it.
func (e *Editor) DeleteNode(id string) bool {
	return e.guard(func() bool {
		g, ok := e.graph.WithoutNode(id)
		if !ok {
			return false
		}

		e.commit(g)

		return true
	})
}

// Connect appends an edge in the current edge style. Connecting handles that
// are already joined is a no-op.
func (e *Editor) Connect(c Connection) (string, bool) {
	var id string

	ok := e.guard(func() bool {
		if c.Source == c.Target || !c.SourceHandle.Valid() || !c.TargetHandle.Valid() {
			return false
		}

		edge := models.Edge{
			ID:           e.newID("edge"),
			Source:       c.Source,
			SourceHandle: c.SourceHandle,
			Target:       c.Target,
			TargetHandle: c.TargetHandle,
			Type:         e.edgeStyle.Type,
			Animated:     e.edgeStyle.Animated,
			Color:        e.edgeStyle.Color,
		}

		g, added := e.graph.WithEdge(edge)
		if !added {
			return false
		}

		id = edge.ID
		e.commit(g)

		return true
	})

	return id, ok
}

// DeleteEdge removes a single edge.
func (e *Editor) DeleteEdge(id string) bool {
	return e.guard(func() bool {
		g, ok := e.graph.WithoutEdges([]string{id})
		if !ok {
			return false
		}

		e.commit(g)

		return true
	})
}

// ApplyEdgeTypeToAll rewrites the type of every edge and makes t the style
// for new connections. The rewrite is one history step. With no edges only
// the style changes, and it reports whether the style was different.
func (e *Editor) ApplyEdgeTypeToAll(t models.EdgeType) bool {
	return e.guard(func() bool {
		if !t.Valid() {
			return false
		}

		prev := e.edgeStyle.Type
		e.edgeStyle.Type = t

		g, ok := e.graph.WithEdgeType(t)
		if !ok {
			return prev != t
		}

		e.commit(g)

		return true
	})
}

// SetEdgeStyle changes the style used by subsequent connections.
func (e *Editor) SetEdgeStyle(s EdgeStyle) bool {
	return e.guard(func() bool {
		if !s.Type.Valid() {
			return false
		}

		e.edgeStyle = s

		return true
	})
}

// Select replaces the current selection. Unknown ids are ignored.
func (e *Editor) Select(nodeIDs, edgeIDs []string) {
	e.selNodes = map[string]struct{}{}
	e.selEdges = map[string]struct{}{}

	for _, id := range nodeIDs {
		e.selNodes[id] = struct{}{}
	}

	for _, id := range edgeIDs {
		e.selEdges[id] = struct{}{}
	}

	e.pruneSelection()
}

// Copy stores the selected nodes and the edges between them.
func (e *Editor) Copy() bool {
	return e.guard(func() bool {
		if len(e.selNodes) == 0 {
			return false
		}

		var clip Snapshot

		for _, n := range e.graph.Nodes() {
			if _, ok := e.selNodes[n.ID]; ok {
				clip.Nodes = append(clip.Nodes, n)
			}
		}

		for _, ed := range e.graph.Edges() {
			_, src := e.selNodes[ed.Source]
			_, dst := e.selNodes[ed.Target]

			if src && dst {
				clip.Edges = append(clip.Edges, ed)
			}
		}

		clip = clip.clone()
		e.clipboard = &clip

		return true
	})
}

// Paste inserts the clipboard with fresh ids, offset from the originals,
// and selects the pasted nodes.
func (e *Editor) Paste() bool {
	return e.guard(func() bool {
		if e.clipboard == nil || len(e.clipboard.Nodes) == 0 {
			return false
		}

		g := e.graph
		remap := make(map[string]string, len(e.clipboard.Nodes))
		pasted := make([]string, 0, len(e.clipboard.Nodes))

		for _, n := range e.clipboard.Nodes {
			c := n.Clone()
			c.ID = e.newID(string(n.Type))
			c.Position.X += e.cfg.PasteOffset
			c.Position.Y += e.cfg.PasteOffset

			var ok bool
			if g, ok = g.WithNode(c); !ok {
				continue
			}

			remap[n.ID] = c.ID
			pasted = append(pasted, c.ID)
		}

		for _, ed := range e.clipboard.Edges {
			src, okSrc := remap[ed.Source]
			dst, okDst := remap[ed.Target]

			if !okSrc || !okDst {
				continue
			}

			ed.ID = e.newID("edge")
			ed.Source, ed.Target = src, dst
			g, _ = g.WithEdge(ed)
		}

		if len(pasted) == 0 {
			return false
		}

		e.commit(g)
		e.Select(pasted, nil)

		return true
	})
}

// DeleteSelection removes the selected nodes (with their edges) and the
// selected edges in one history step.
func (e *Editor) DeleteSelection() bool {
	return e.guard(func() bool {
		g := e.graph
		changed := false

		if ids := sortedKeys(e.selEdges); len(ids) > 0 {
			var ok bool
			g, ok = g.WithoutEdges(ids)
			changed = changed || ok
		}

		if ids := sortedKeys(e.selNodes); len(ids) > 0 {
			var ok bool
			g, ok = g.WithoutNodes(ids)
			changed = changed || ok
		}

		if !changed {
			return false
		}

		e.commit(g)

		return true
	})
}

// LoadTemplate replaces the graph with a fresh copy of the named template.
// Only an unknown name returns an error.
func (e *Editor) LoadTemplate(name string) (bool, error) {
	var err error

	applied := e.guard(func() bool {
		var g Graph

		g, err = instantiateTemplate(name, e.newID, e.edgeStyle)
		if err != nil {
			return false
		}

		e.commit(g)

		return true
	})

	return applied, err
}

// ClearAll removes every node and edge. Drawings are kept.
func (e *Editor) ClearAll() bool {
	return e.guard(func() bool {
		if e.graph.Empty() {
			return false
		}

		e.commit(Graph{nodes: []models.Node{}, edges: []models.Edge{}})

		return true
	})
}

// Undo restores the previous snapshot.
func (e *Editor) Undo() bool {
	return e.guard(func() bool {
		s, ok := e.history.Undo()
		if ok {
			e.restore(s)
		}

		return ok
	})
}

// Redo restores the next snapshot.
func (e *Editor) Redo() bool {
	return e.guard(func() bool {
		s, ok := e.history.Redo()
		if ok {
			e.restore(s)
		}

		return ok
	})
}

// SetDrawingMode toggles freehand drawing.
func (e *Editor) SetDrawingMode(on bool) bool {
	return e.guard(func() bool {
		if e.overlay.Enabled() == on {
			return false
		}

		e.overlay.SetMode(on)

		return true
	})
}

// SetDrawingStyle changes the pen for subsequent strokes.
func (e *Editor) SetDrawingStyle(s DrawingStyle) bool {
	return e.guard(func() bool {
		if s.Color == "" || s.Width <= 0 {
			return false
		}

		e.overlay.SetStyle(s)

		return true
	})
}

// BeginStroke starts a stroke at a screen point. target names the element
// under the pointer; control elements never start a stroke.
func (e *Editor) BeginStroke(screen Point, target string) bool {
	return e.guard(func() bool {
		return e.overlay.Begin(e.graphPoint(screen), target)
	})
}

// ExtendStroke samples another screen point into the current stroke.
func (e *Editor) ExtendStroke(screen Point) bool {
	return e.guard(func() bool {
		return e.overlay.Extend(e.graphPoint(screen))
	})
}

// EndStroke commits the current stroke if it has at least two samples.
func (e *Editor) EndStroke() (models.DrawingPath, bool) {
	var dp models.DrawingPath

	ok := e.guard(func() bool {
		var committed bool

		dp, committed = e.overlay.End(e.newID("drawing"), e.now().UTC())
		if committed {
			e.dirty = true
		}

		return committed
	})

	return dp, ok
}

// ClearDrawings removes every stroke.
func (e *Editor) ClearDrawings() bool {
	return e.guard(func() bool {
		if !e.overlay.Clear() {
			return false
		}

		e.dirty = true

		return true
	})
}

func (e *Editor) graphPoint(screen Point) Point {
	p := e.viewport.ScreenToGraph(screen)
	return Point{X: p.X, Y: p.Y}
}

// Pan moves the viewport. It is allowed in read-only mode.
func (e *Editor) Pan(dx, dy float64) {
	e.viewport = e.viewport.Pan(dx, dy)
}

// Zoom scales the viewport around a screen point. It is allowed in
// read-only mode.
func (e *Editor) Zoom(factor float64, center Point) {
	e.viewport = e.viewport.ZoomAt(factor, center)
}
