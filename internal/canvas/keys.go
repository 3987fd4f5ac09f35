package canvas

import "strings"

// KeyEvent is a keyboard event as delivered by the host page.
type KeyEvent struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Meta  bool   `json:"meta,omitempty"`
	Shift bool   `json:"shift,omitempty"`
}

// Action is what a key combination resolves to.
type Action string

// Shortcut actions.
const (
	ActionNone   Action = ""
	ActionUndo   Action = "undo"
	ActionRedo   Action = "redo"
	ActionCopy   Action = "copy"
	ActionPaste  Action = "paste"
	ActionDelete Action = "delete"
	ActionSave   Action = "save"
)

// ResolveKey maps a key event to its shortcut. Ctrl and Cmd are equivalent.
func ResolveKey(ev KeyEvent) Action {
	switch ev.Key {
	case "Delete", "Backspace":
		return ActionDelete
	}

	if !ev.Ctrl && !ev.Meta {
		return ActionNone
	}

	switch strings.ToLower(ev.Key) {
	case "z":
		if ev.Shift {
			return ActionRedo
		}

		return ActionUndo
	case "y":
		return ActionRedo
	case "c":
		return ActionCopy
	case "v":
		return ActionPaste
	case "s":
		return ActionSave
	}

	return ActionNone
}

// HandleKey resolves ev and runs the matching editor operation. ActionSave
// changes nothing here; it tells the host to call Save. Every shortcut is a
// no-op in read-only mode.
func (e *Editor) HandleKey(ev KeyEvent) (Action, bool) {
	action := ResolveKey(ev)
	if action == ActionNone || e.cfg.ReadOnly {
		return action, false
	}

	switch action {
	case ActionUndo:
		return action, e.Undo()
	case ActionRedo:
		return action, e.Redo()
	case ActionCopy:
		return action, e.Copy()
	case ActionPaste:
		return action, e.Paste()
	case ActionDelete:
		return action, e.DeleteSelection()
	case ActionSave:
		return action, e.dirty
	}

	return action, false
}
