package session

import (
	"fmt"

	"github.com/funnelboard/funnelboard/internal/canvas"
	"github.com/funnelboard/funnelboard/internal/models"
)

// OpType names an editing command.
type OpType string

// Editing commands accepted by Apply.
const (
	OpAddNode         OpType = "add_node"
	OpDrop            OpType = "drop"
	OpUpdateNode      OpType = "update_node"
	OpMoveNode        OpType = "move_node"
	OpCustomizeNode   OpType = "customize_node"
	OpDeleteNode      OpType = "delete_node"
	OpConnect         OpType = "connect"
	OpDeleteEdge      OpType = "delete_edge"
	OpApplyEdgeType   OpType = "apply_edge_type"
	OpSetEdgeStyle    OpType = "set_edge_style"
	OpSelect          OpType = "select"
	OpCopy            OpType = "copy"
	OpPaste           OpType = "paste"
	OpDeleteSelection OpType = "delete_selection"
	OpLoadTemplate    OpType = "load_template"
	OpClearAll        OpType = "clear_all"
	OpUndo            OpType = "undo"
	OpRedo            OpType = "redo"
	OpSetDrawingMode  OpType = "set_drawing_mode"
	OpSetDrawingStyle OpType = "set_drawing_style"
	OpStroke          OpType = "stroke"
	OpClearDrawings   OpType = "clear_drawings"
	OpPan             OpType = "pan"
	OpZoom            OpType = "zoom"
	OpKey             OpType = "key"
)

// Op is one editing command sent by a client. Only the fields relevant to
// Type are read.
type Op struct {
	Type OpType `json:"type"`

	NodeType models.NodeType  `json:"node_type,omitempty"`
	NodeID   string           `json:"node_id,omitempty"`
	EdgeID   string           `json:"edge_id,omitempty"`
	Position *models.Position `json:"position,omitempty"`
	Payload  string           `json:"payload,omitempty"`
	Patch    map[string]any   `json:"patch,omitempty"`
	Icon     string           `json:"icon,omitempty"`
	Color    string           `json:"color,omitempty"`

	Connection   *canvas.Connection   `json:"connection,omitempty"`
	EdgeType     models.EdgeType      `json:"edge_type,omitempty"`
	EdgeStyle    *canvas.EdgeStyle    `json:"edge_style,omitempty"`
	DrawingStyle *canvas.DrawingStyle `json:"drawing_style,omitempty"`

	NodeIDs  []string `json:"node_ids,omitempty"`
	EdgeIDs  []string `json:"edge_ids,omitempty"`
	Template string   `json:"template,omitempty"`
	Enabled  *bool    `json:"enabled,omitempty"`

	// Point is a screen coordinate for drop and zoom.
	Point *canvas.Point `json:"point,omitempty"`
	// Points is a sampled stroke in screen coordinates; Target is the
	// element under the first sample.
	Points []canvas.Point `json:"points,omitempty"`
	Target string         `json:"target,omitempty"`

	DX     float64 `json:"dx,omitempty"`
	DY     float64 `json:"dy,omitempty"`
	Factor float64 `json:"factor,omitempty"`

	Key *canvas.KeyEvent `json:"key,omitempty"`
}

// Result reports what an op did. ID carries the id of a created node, edge
// or drawing.
type Result struct {
	Applied bool          `json:"applied"`
	Action  canvas.Action `json:"action,omitempty"`
	ID      string        `json:"id,omitempty"`
	State   canvas.State  `json:"state"`
}

func invalid(op OpType, field string) error {
	return fmt.Errorf("%w: %s requires %s", models.ErrInvalidOp, op, field)
}

// apply runs op against e. Errors are reserved for malformed ops; a well
// formed op that changes nothing returns Applied == false.
func apply(e *canvas.Editor, op Op) (Result, error) { //nolint:gocyclo,cyclop // one branch per op type.
	var (
		res Result
		err error
	)

	switch op.Type {
	case OpAddNode:
		if op.Position == nil {
			return res, invalid(op.Type, "position")
		}

		res.ID, res.Applied = e.AddNode(op.NodeType, *op.Position)
	case OpDrop:
		if op.Point == nil {
			return res, invalid(op.Type, "point")
		}

		res.ID, res.Applied = e.Drop(op.Payload, *op.Point)
	case OpUpdateNode:
		if op.NodeID == "" {
			return res, invalid(op.Type, "node_id")
		}

		res.Applied = e.UpdateNodeData(op.NodeID, op.Patch)
	case OpMoveNode:
		if op.NodeID == "" || op.Position == nil {
			return res, invalid(op.Type, "node_id and position")
		}

		res.Applied = e.MoveNode(op.NodeID, *op.Position)
	case OpCustomizeNode:
		res.Applied = e.CustomizeNode(op.NodeID, op.Icon, op.Color)
	case OpDeleteNode:
		res.Applied = e.DeleteNode(op.NodeID)
	case OpConnect:
		if op.Connection == nil {
			return res, invalid(op.Type, "connection")
		}

		res.ID, res.Applied = e.Connect(*op.Connection)
	case OpDeleteEdge:
		res.Applied = e.DeleteEdge(op.EdgeID)
	case OpApplyEdgeType:
		if !op.EdgeType.Valid() {
			return res, invalid(op.Type, "edge_type")
		}

		res.Applied = e.ApplyEdgeTypeToAll(op.EdgeType)
	case OpSetEdgeStyle:
		if op.EdgeStyle == nil {
			return res, invalid(op.Type, "edge_style")
		}

		res.Applied = e.SetEdgeStyle(*op.EdgeStyle)
	case OpSelect:
		e.Select(op.NodeIDs, op.EdgeIDs)
		res.Applied = true
	case OpCopy:
		res.Applied = e.Copy()
	case OpPaste:
		res.Applied = e.Paste()
	case OpDeleteSelection:
		res.Applied = e.DeleteSelection()
	case OpLoadTemplate:
		res.Applied, err = e.LoadTemplate(op.Template)
		if err != nil {
			return res, fmt.Errorf("%w: %w", models.ErrInvalidOp, err)
		}
	case OpClearAll:
		res.Applied = e.ClearAll()
	case OpUndo:
		res.Applied = e.Undo()
	case OpRedo:
		res.Applied = e.Redo()
	case OpSetDrawingMode:
		if op.Enabled == nil {
			return res, invalid(op.Type, "enabled")
		}

		res.Applied = e.SetDrawingMode(*op.Enabled)
	case OpSetDrawingStyle:
		if op.DrawingStyle == nil {
			return res, invalid(op.Type, "drawing_style")
		}

		res.Applied = e.SetDrawingStyle(*op.DrawingStyle)
	case OpStroke:
		res.ID, res.Applied = stroke(e, op)
	case OpClearDrawings:
		res.Applied = e.ClearDrawings()
	case OpPan:
		e.Pan(op.DX, op.DY)
		res.Applied = true
	case OpZoom:
		if op.Point == nil || op.Factor <= 0 {
			return res, invalid(op.Type, "point and a positive factor")
		}

		e.Zoom(op.Factor, *op.Point)
		res.Applied = true
	case OpKey:
		if op.Key == nil {
			return res, invalid(op.Type, "key")
		}

		res.Action, res.Applied = e.HandleKey(*op.Key)
	default:
		return res, fmt.Errorf("%w: unknown type %q", models.ErrInvalidOp, op.Type)
	}

	res.State = e.State()

	return res, nil
}

// stroke replays a whole pointer gesture: down on the first sample, move for
// the rest, up at the end.
func stroke(e *canvas.Editor, op Op) (string, bool) {
	if len(op.Points) == 0 || !e.BeginStroke(op.Points[0], op.Target) {
		return "", false
	}

	for _, p := range op.Points[1:] {
		e.ExtendStroke(p)
	}

	dp, ok := e.EndStroke()

	return dp.ID, ok
}
