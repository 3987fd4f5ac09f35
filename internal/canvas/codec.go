package canvas

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/funnelboard/funnelboard/internal/models"
)

// Decode turns stored canvas_data into a bundle without ever failing: null,
// garbage, or missing/non-array nodes, edges and drawings become empty
// slices. Entries that cannot be decoded or would break graph invariants
// (unknown type, duplicate id, edge to a missing node) are skipped.
func Decode(raw []byte) models.CanvasData {
	out := models.EmptyCanvas()

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return out
	}

	nodeIDs := make(map[string]struct{})

	for _, item := range rawArray(doc["nodes"]) {
		var n models.Node
		if err := json.Unmarshal(item, &n); err != nil {
			continue
		}

		if _, dup := nodeIDs[n.ID]; dup || n.ID == "" || !n.Type.Valid() {
			continue
		}

		nodeIDs[n.ID] = struct{}{}
		out.Nodes = append(out.Nodes, n)
	}

	g := NewGraph(out.Nodes, nil)

	for _, item := range rawArray(doc["edges"]) {
		var e models.Edge
		if err := json.Unmarshal(item, &e); err != nil {
			continue
		}

		if !e.SourceHandle.Valid() || !e.TargetHandle.Valid() || (e.Type != "" && !e.Type.Valid()) {
			continue
		}

		g, _ = g.WithEdge(e)
	}

	out.Edges = g.Edges()

	drawingIDs := make(map[string]struct{})

	for _, item := range rawArray(doc["drawings"]) {
		var d models.DrawingPath
		if err := json.Unmarshal(item, &d); err != nil {
			continue
		}

		if _, dup := drawingIDs[d.ID]; dup || d.ID == "" || d.Path == "" {
			continue
		}

		drawingIDs[d.ID] = struct{}{}
		out.Drawings = append(out.Drawings, d)
	}

	return out
}

func rawArray(raw json.RawMessage) []json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	return items
}

// Encode serializes a bundle with empty slices in place of nil ones so the
// stored document always carries arrays.
func Encode(c models.CanvasData) ([]byte, error) {
	if c.Nodes == nil {
		c.Nodes = []models.Node{}
	}

	if c.Edges == nil {
		c.Edges = []models.Edge{}
	}

	if c.Drawings == nil {
		c.Drawings = []models.DrawingPath{}
	}

	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding canvas: %w", err)
	}

	return b, nil
}
