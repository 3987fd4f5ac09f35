package canvas

import (
	"fmt"
	"slices"

	"github.com/mitchellh/mapstructure"

	"github.com/funnelboard/funnelboard/internal/models"
)

// Graph is an immutable set of nodes and edges. Every mutating method
// returns a new Graph backed by new slices so callers can detect changes by
// comparing slice identity; the receiver is never modified.
type Graph struct {
	nodes []models.Node
	edges []models.Edge
}

// NewGraph copies nodes and edges into a Graph.
func NewGraph(nodes []models.Node, edges []models.Edge) Graph {
	return graphFromSnapshot(Snapshot{Nodes: nodes, Edges: edges})
}

func graphFromSnapshot(s Snapshot) Graph {
	c := s.clone()
	return Graph{nodes: c.Nodes, edges: c.Edges}
}

// Nodes returns the node slice. It must not be modified.
func (g Graph) Nodes() []models.Node { return g.nodes }

// Edges returns the edge slice. It must not be modified.
func (g Graph) Edges() []models.Edge { return g.edges }

func (g Graph) snapshot() Snapshot {
	return Snapshot{Nodes: g.nodes, Edges: g.edges}.clone()
}

func (g Graph) nodeIndex(id string) int {
	return slices.IndexFunc(g.nodes, func(n models.Node) bool { return n.ID == id })
}

// Node looks up a node by id.
func (g Graph) Node(id string) (models.Node, bool) {
	i := g.nodeIndex(id)
	if i < 0 {
		return models.Node{}, false
	}

	return g.nodes[i].Clone(), true
}

// HasNode reports whether id exists.
func (g Graph) HasNode(id string) bool { return g.nodeIndex(id) >= 0 }

// WithNode appends n. It reports false if the id is already taken.
func (g Graph) WithNode(n models.Node) (Graph, bool) {
	if n.ID == "" || g.HasNode(n.ID) {
		return g, false
	}

	nodes := make([]models.Node, len(g.nodes), len(g.nodes)+1)
	copy(nodes, g.nodes)

	return Graph{nodes: append(nodes, n.Clone()), edges: g.edges}, true
}

// WithUpdatedNode applies fn to a copy of node id.
func (g Graph) WithUpdatedNode(id string, fn func(*models.Node) error) (Graph, bool, error) {
	i := g.nodeIndex(id)
	if i < 0 {
		return g, false, nil
	}

	n := g.nodes[i].Clone()
	if err := fn(&n); err != nil {
		return g, false, err
	}

	nodes := slices.Clone(g.nodes)
	nodes[i] = n

	return Graph{nodes: nodes, edges: g.edges}, true, nil
}

// WithoutNode removes node id and every edge that touches it.
func (g Graph) WithoutNode(id string) (Graph, bool) {
	return g.WithoutNodes([]string{id})
}

// WithoutNodes removes the given nodes and their edges in one step.
func (g Graph) WithoutNodes(ids []string) (Graph, bool) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if g.HasNode(id) {
			drop[id] = struct{}{}
		}
	}

	if len(drop) == 0 {
		return g, false
	}

	nodes := make([]models.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		if _, gone := drop[n.ID]; !gone {
			nodes = append(nodes, n)
		}
	}

	edges := make([]models.Edge, 0, len(g.edges))
	for _, e := range g.edges {
		_, src := drop[e.Source]
		_, dst := drop[e.Target]

		if !src && !dst {
			edges = append(edges, e)
		}
	}

	return Graph{nodes: nodes, edges: edges}, true
}

// WithEdge appends e. It reports false when an endpoint is missing, the id
// is taken, or an edge already joins the same handles.
func (g Graph) WithEdge(e models.Edge) (Graph, bool) {
	if !g.HasNode(e.Source) || !g.HasNode(e.Target) || e.ID == "" {
		return g, false
	}

	for _, existing := range g.edges {
		if existing.ID == e.ID || existing.SameConnection(e) {
			return g, false
		}
	}

	edges := make([]models.Edge, len(g.edges), len(g.edges)+1)
	copy(edges, g.edges)

	return Graph{nodes: g.nodes, edges: append(edges, e)}, true
}

// WithoutEdges removes the edges with the given ids.
func (g Graph) WithoutEdges(ids []string) (Graph, bool) {
	edges := slices.DeleteFunc(slices.Clone(g.edges), func(e models.Edge) bool {
		return slices.Contains(ids, e.ID)
	})

	if len(edges) == len(g.edges) {
		return g, false
	}

	return Graph{nodes: g.nodes, edges: edges}, true
}

// WithEdgeType rewrites the render type of every edge. It reports false on
// a graph without edges.
func (g Graph) WithEdgeType(t models.EdgeType) (Graph, bool) {
	if len(g.edges) == 0 || !t.Valid() {
		return g, false
	}

	edges := slices.Clone(g.edges)
	for i := range edges {
		edges[i].Type = t
	}

	return Graph{nodes: g.nodes, edges: edges}, true
}

// Empty reports whether the graph has neither nodes nor edges.
func (g Graph) Empty() bool { return len(g.nodes) == 0 && len(g.edges) == 0 }

// mergeNodeData shallow-merges patch into cur. Only top-level keys present
// in patch are replaced; "content" replaces the whole content block.
func mergeNodeData(cur models.NodeData, patch map[string]any) (models.NodeData, error) {
	var upd models.NodeData

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &upd,
		TagName:     "mapstructure",
		ErrorUnused: true,
	})
	if err != nil {
		return cur, fmt.Errorf("building node data decoder: %w", err)
	}

	if err := dec.Decode(patch); err != nil {
		return cur, fmt.Errorf("decoding node data patch: %w", err)
	}

	out := cur
	for key := range patch {
		switch key {
		case "label":
			out.Label = upd.Label
		case "icon":
			out.Icon = upd.Icon
		case "color":
			out.Color = upd.Color
		case "content":
			out.Content = upd.Content
		}
	}

	if out.Content != nil {
		if err := out.Content.CheckItemIDs(); err != nil {
			return cur, err
		}
	}

	return out, nil
}
