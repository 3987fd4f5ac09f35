package canvas_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelboard/funnelboard/internal/canvas"
	"github.com/funnelboard/funnelboard/internal/models"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seqIDs() func(string) string {
	n := 0

	return func(prefix string) string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newEditor(t *testing.T, cfg canvas.Config, data models.CanvasData) *canvas.Editor {
	t.Helper()

	return canvas.New(cfg, data,
		canvas.WithClock(func() time.Time { return fixedTime }),
		canvas.WithIDGenerator(seqIDs()),
	)
}

func node(id string, typ models.NodeType) models.Node {
	return models.Node{ID: id, Type: typ, Data: models.NodeData{Label: id}}
}

func edge(id, src, dst string) models.Edge {
	return models.Edge{
		ID: id, Source: src, Target: dst,
		SourceHandle: models.HandleBottomSource, TargetHandle: models.HandleTopTarget,
		Type: models.EdgeDefault,
	}
}

func abcCanvas() models.CanvasData {
	return models.CanvasData{
		Nodes: []models.Node{node("A", models.NodeCapture), node("B", models.NodeSales), node("C", models.NodeThankYou)},
		Edges: []models.Edge{edge("ab", "A", "B"), edge("bc", "B", "C")},
	}
}

func TestEditor_AddNodeUsesDefaultLabel(t *testing.T) {
	e := newEditor(t, canvas.Config{}, models.EmptyCanvas())

	id, ok := e.AddNode(models.NodeCapture, models.Position{X: 10, Y: 20})
	require.True(t, ok)
	assert.Equal(t, "capture-1", id)

	n, found := e.Graph().Node(id)
	require.True(t, found)
	assert.Equal(t, "Capture Page", n.Data.Label)
	assert.Equal(t, models.Position{X: 10, Y: 20}, n.Position)
	assert.True(t, e.Dirty())
	assert.Equal(t, 2, e.History().Len())
}

func TestEditor_AddNodeRejectsUnknownType(t *testing.T) {
	e := newEditor(t, canvas.Config{}, models.EmptyCanvas())

	_, ok := e.AddNode("billboard", models.Position{})
	assert.False(t, ok)
	assert.Empty(t, e.Graph().Nodes())
	assert.False(t, e.Dirty())
}

func TestEditor_MutationsReplaceSlices(t *testing.T) {
	e := newEditor(t, canvas.Config{}, abcCanvas())

	before := e.Graph().Nodes()
	beforeEdges := e.Graph().Edges()

	require.True(t, e.MoveNode("A", models.Position{X: 99, Y: 1}))

	after := e.Graph().Nodes()
	assert.NotSame(t, &before[0], &after[0])
	assert.Equal(t, 0.0, before[0].Position.X, "previous slice must not change")
	assert.Equal(t, 99.0, after[0].Position.X)
	assert.Same(t, &beforeEdges[0], &e.Graph().Edges()[0], "untouched edges are shared")
}

func TestEditor_DeleteNodeCascadesEdges(t *testing.T) {
	e := newEditor(t, canvas.Config{}, abcCanvas())

	require.True(t, e.DeleteNode("B"))

	assert.Len(t, e.Graph().Nodes(), 2)
	assert.Empty(t, e.Graph().Edges())
}

func TestEditor_DeleteNodeKeepsUnrelatedEdges(t *testing.T) {
	data := abcCanvas()
	data.Nodes = append(data.Nodes, node("D", models.NodeEmail))
	data.Edges = append(data.Edges, edge("cd", "C", "D"))
	e := newEditor(t, canvas.Config{}, data)

	require.True(t, e.DeleteNode("A"))

	ids := make([]string, 0)
	for _, ed := range e.Graph().Edges() {
		ids = append(ids, ed.ID)
	}

	assert.Equal(t, []string{"bc", "cd"}, ids)
}

func TestEditor_ConnectUsesEdgeStyle(t *testing.T) {
	e := newEditor(t, canvas.Config{Edge: canvas.EdgeStyle{Type: models.EdgeStraight, Animated: true, Color: "#000"}}, abcCanvas())

	id, ok := e.Connect(canvas.Connection{Source: "A", SourceHandle: models.HandleRightSource, Target: "C", TargetHandle: models.HandleLeftTarget})
	require.True(t, ok)

	edges := e.Graph().Edges()
	got := edges[len(edges)-1]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, models.EdgeStraight, got.Type)
	assert.True(t, got.Animated)
	assert.Equal(t, "#000", got.Color)
}

func TestEditor_ConnectRejectsDuplicateAndMissingNodes(t *testing.T) {
	e := newEditor(t, canvas.Config{}, abcCanvas())

	_, ok := e.Connect(canvas.Connection{Source: "A", SourceHandle: models.HandleBottomSource, Target: "B", TargetHandle: models.HandleTopTarget})
	assert.False(t, ok, "identical connection exists")

	_, ok = e.Connect(canvas.Connection{Source: "A", Target: "ghost"})
	assert.False(t, ok)

	_, ok = e.Connect(canvas.Connection{Source: "A", Target: "A"})
	assert.False(t, ok)

	assert.Equal(t, 1, e.History().Len())
}

func TestEditor_UpdateNodeDataShallowMerge(t *testing.T) {
	e := newEditor(t, canvas.Config{}, abcCanvas())

	ok := e.UpdateNodeData("A", map[string]any{
		"content": map[string]any{
			"title": "Opt-in",
			"items": []any{
				map[string]any{"id": "i1", "kind": "checklist", "entries": []any{
					map[string]any{"id": "e1", "text": "Headline", "checked": true},
				}},
			},
		},
	})
	require.True(t, ok)

	n, _ := e.Graph().Node("A")
	assert.Equal(t, "A", n.Data.Label, "label untouched")
	require.NotNil(t, n.Data.Content)
	assert.Equal(t, "Opt-in", n.Data.Content.Title)
	require.Len(t, n.Data.Content.Items, 1)
	assert.True(t, n.Data.Content.Items[0].Entries[0].Checked)

	require.True(t, e.UpdateNodeData("A", map[string]any{"label": "Squeeze"}))

	n, _ = e.Graph().Node("A")
	assert.Equal(t, "Squeeze", n.Data.Label)
	assert.NotNil(t, n.Data.Content, "content untouched")
}

func TestEditor_UpdateNodeDataRejectsBadPatch(t *testing.T) {
	e := newEditor(t, canvas.Config{}, abcCanvas())

	assert.False(t, e.UpdateNodeData("A", map[string]any{"nope": 1}))
	assert.False(t, e.UpdateNodeData("A", map[string]any{"label": []int{1}}))
	assert.False(t, e.UpdateNodeData("missing", map[string]any{"label": "x"}))
	assert.False(t, e.UpdateNodeData("A", map[string]any{
		"content": map[string]any{"items": []any{
			map[string]any{"id": "dup", "kind": "paragraph"},
			map[string]any{"id": "dup", "kind": "paragraph"},
		}},
	}))
	assert.False(t, e.Dirty())
}

func TestEditor_CustomizeOnlyOther(t *testing.T) {
	data := abcCanvas()
	data.Nodes = append(data.Nodes, node("X", models.NodeOther))
	e := newEditor(t, canvas.Config{}, data)

	assert.False(t, e.CustomizeNode("A", "star", "#fff"))
	require.True(t, e.CustomizeNode("X", "star", "#fff"))

	n, _ := e.Graph().Node("X")
	assert.Equal(t, "star", n.Data.Icon)
	assert.Equal(t, "#fff", n.Data.Color)
}

func TestEditor_ApplyEdgeTypeToAllPushesOneSnapshot(t *testing.T) {
	data := models.CanvasData{
		Nodes: []models.Node{node("A", models.NodeCapture), node("B", models.NodeSales)},
		Edges: []models.Edge{{
			ID: "e1", Source: "A", SourceHandle: models.HandleTopSource,
			Target: "B", TargetHandle: models.HandleBottomTarget, Type: models.EdgeDefault,
		}},
	}
	e := newEditor(t, canvas.Config{}, data)

	require.True(t, e.ApplyEdgeTypeToAll(models.EdgeStraight))

	assert.Equal(t, models.EdgeStraight, e.Graph().Edges()[0].Type)
	assert.Equal(t, 2, e.History().Len())
	assert.Equal(t, models.EdgeStraight, e.State().EdgeStyle.Type)
}

func TestEditor_ApplyEdgeTypeWithoutEdges(t *testing.T) {
	e := newEditor(t, canvas.Config{}, models.EmptyCanvas())

	assert.True(t, e.ApplyEdgeTypeToAll(models.EdgeStraight))
	assert.Equal(t, 1, e.History().Len())
	assert.False(t, e.Dirty())
	assert.Equal(t, models.EdgeStraight, e.State().EdgeStyle.Type)

	assert.False(t, e.ApplyEdgeTypeToAll(models.EdgeStraight), "same style is not a change")
}

func TestEditor_UndoRedoRestoresGraph(t *testing.T) {
	e := newEditor(t, canvas.Config{}, abcCanvas())

	require.True(t, e.DeleteNode("B"))
	require.True(t, e.Undo())
	assert.Len(t, e.Graph().Nodes(), 3)
	assert.Len(t, e.Graph().Edges(), 2)

	require.True(t, e.Redo())
	assert.Len(t, e.Graph().Nodes(), 2)
	assert.False(t, e.Redo())

	require.True(t, e.Undo())
	_, ok := e.AddNode(models.NodeEmail, models.Position{})
	require.True(t, ok)
	assert.False(t, e.Redo(), "new edit invalidates redo")
}

func TestEditor_ReadOnlyLeavesGraphUnchanged(t *testing.T) {
	e := newEditor(t, canvas.Config{ReadOnly: true}, abcCanvas())

	nodes := e.Graph().Nodes()
	edges := e.Graph().Edges()

	_, ok := e.AddNode(models.NodeCapture, models.Position{})
	assert.False(t, ok)

	_, ok = e.Connect(canvas.Connection{Source: "A", Target: "C"})
	assert.False(t, ok)

	assert.False(t, e.DeleteNode("A"))
	assert.False(t, e.UpdateNodeData("A", map[string]any{"label": "x"}))
	assert.False(t, e.MoveNode("A", models.Position{X: 5}))
	assert.False(t, e.DeleteEdge("ab"))
	assert.False(t, e.ApplyEdgeTypeToAll(models.EdgeStraight))
	assert.False(t, e.ClearAll())
	assert.False(t, e.Undo())
	assert.False(t, e.SetDrawingMode(true))
	assert.False(t, e.BeginStroke(canvas.Point{}, ""))

	loaded, err := e.LoadTemplate("sales-funnel")
	require.NoError(t, err)
	assert.False(t, loaded)

	e.Select([]string{"A"}, nil)
	assert.False(t, e.Copy())
	assert.False(t, e.DeleteSelection())

	assert.Same(t, &nodes[0], &e.Graph().Nodes()[0])
	assert.Same(t, &edges[0], &e.Graph().Edges()[0])
	assert.Equal(t, abcCanvas().Nodes, e.Graph().Nodes())
	assert.False(t, e.Dirty())
	assert.Equal(t, 1, e.History().Len())
}

func TestEditor_ReadOnlyAllowsPanZoom(t *testing.T) {
	e := newEditor(t, canvas.Config{ReadOnly: true, AllowDownload: true}, abcCanvas())

	e.Pan(10, 20)
	e.Zoom(2, canvas.Point{})

	assert.Equal(t, canvas.Viewport{X: 20, Y: 40, Zoom: 2}, e.Viewport())
	assert.True(t, e.CanClone())
	assert.False(t, e.Dirty())
}

func TestEditor_CanCloneRequiresReadOnly(t *testing.T) {
	e := newEditor(t, canvas.Config{AllowDownload: true}, abcCanvas())
	assert.False(t, e.CanClone())
}

func TestEditor_DropTranslatesThroughViewport(t *testing.T) {
	e := newEditor(t, canvas.Config{}, models.EmptyCanvas())
	e.Pan(100, 50)
	e.Zoom(2, canvas.Point{X: 100, Y: 50})

	id, ok := e.Drop("sales", canvas.Point{X: 300, Y: 250})
	require.True(t, ok)

	n, _ := e.Graph().Node(id)
	assert.Equal(t, models.Position{X: 100, Y: 100}, n.Position)

	_, ok = e.Drop("not-a-type", canvas.Point{})
	assert.False(t, ok)
}

func TestEditor_CopyPaste(t *testing.T) {
	e := newEditor(t, canvas.Config{}, abcCanvas())

	e.Select([]string{"A", "B"}, nil)
	require.True(t, e.Copy())
	require.True(t, e.Paste())

	g := e.Graph()
	require.Len(t, g.Nodes(), 5)
	require.Len(t, g.Edges(), 3, "only the edge between copied nodes is pasted")

	pasted := g.Edges()[2]
	src, _ := g.Node(pasted.Source)
	dst, _ := g.Node(pasted.Target)
	assert.Equal(t, models.NodeCapture, src.Type)
	assert.Equal(t, models.NodeSales, dst.Type)
	assert.Equal(t, float64(canvas.DefaultPasteOffset), src.Position.X)

	st := e.State()
	assert.ElementsMatch(t, []string{pasted.Source, pasted.Target}, st.SelectedNodes)
	assert.Equal(t, 2, e.History().Len())
}

func TestEditor_PasteEmptyClipboard(t *testing.T) {
	e := newEditor(t, canvas.Config{}, abcCanvas())
	assert.False(t, e.Paste())
}

func TestEditor_DeleteSelectionIsOneStep(t *testing.T) {
	data := abcCanvas()
	data.Nodes = append(data.Nodes, node("D", models.NodeEmail))
	data.Edges = append(data.Edges, edge("cd", "C", "D"))
	e := newEditor(t, canvas.Config{}, data)

	e.Select([]string{"A"}, []string{"cd"})
	require.True(t, e.DeleteSelection())

	assert.Len(t, e.Graph().Nodes(), 3)
	require.Len(t, e.Graph().Edges(), 1)
	assert.Equal(t, "bc", e.Graph().Edges()[0].ID)
	assert.Equal(t, 2, e.History().Len())
	assert.Empty(t, e.State().SelectedNodes)
}

func TestEditor_ClearAllKeepsDrawings(t *testing.T) {
	data := abcCanvas()
	data.Drawings = []models.DrawingPath{{ID: "d1", Path: "M 0 0 L 1 1", Color: "#000", StrokeWidth: 2}}
	e := newEditor(t, canvas.Config{}, data)

	require.True(t, e.ClearAll())
	assert.True(t, e.Graph().Empty())
	assert.Len(t, e.Bundle().Drawings, 1)
	assert.False(t, e.ClearAll(), "already empty")
}

func TestEditor_LoadTemplate(t *testing.T) {
	e := newEditor(t, canvas.Config{}, abcCanvas())

	ok, err := e.LoadTemplate("lead-magnet")
	require.NoError(t, err)
	require.True(t, ok)

	b := e.Bundle()
	require.NoError(t, b.Validate())
	assert.Len(t, b.Nodes, 4)
	assert.Len(t, b.Edges, 3)
	assert.Equal(t, 2, e.History().Len())

	_, err = e.LoadTemplate("nope")
	require.ErrorIs(t, err, models.ErrUnknownTemplate)
}

func TestEditor_LoadResetsHistoryAndDirty(t *testing.T) {
	e := newEditor(t, canvas.Config{}, abcCanvas())
	require.True(t, e.DeleteNode("A"))

	e.Load(models.EmptyCanvas())

	assert.False(t, e.Dirty())
	assert.Equal(t, 1, e.History().Len())
	assert.False(t, e.Undo())
}

func TestEditor_HistoryLimit(t *testing.T) {
	e := newEditor(t, canvas.Config{HistoryLimit: 3}, models.EmptyCanvas())

	for range 5 {
		_, ok := e.AddNode(models.NodeText, models.Position{})
		require.True(t, ok)
	}

	assert.Equal(t, 3, e.History().Len())
	assert.True(t, e.Undo())
	assert.True(t, e.Undo())
	assert.False(t, e.Undo())
	assert.Len(t, e.Graph().Nodes(), 3)
}

func TestEditor_ZeroHistoryLimitReachesInitialSnapshot(t *testing.T) {
	e := newEditor(t, canvas.Config{}, models.EmptyCanvas())

	for range 150 {
		_, ok := e.AddNode(models.NodeText, models.Position{})
		require.True(t, ok)
	}

	assert.Equal(t, 151, e.History().Len())

	for e.History().CanUndo() {
		require.True(t, e.Undo())
	}

	assert.Zero(t, e.History().Index())
	assert.Empty(t, e.Graph().Nodes())
}

func TestEditor_LoadTemplateReadOnly(t *testing.T) {
	e := newEditor(t, canvas.Config{ReadOnly: true}, abcCanvas())

	for _, name := range []string{"webinar", "nope"} {
		ok, err := e.LoadTemplate(name)
		require.NoError(t, err, name)
		assert.False(t, ok, name)
	}

	assert.Len(t, e.Graph().Nodes(), 3)
	assert.Equal(t, 1, e.History().Len())
}
