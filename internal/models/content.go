package models

import "fmt"

// ContentKind is the layout of a content item inside a node's content editor.
type ContentKind string

// Content item kinds.
const (
	ContentParagraph ContentKind = "paragraph"
	ContentList      ContentKind = "list"
	ContentChecklist ContentKind = "checklist"
)

// NodeContent is the structured content attached to a node.
type NodeContent struct {
	Title       string        `json:"title,omitempty" mapstructure:"title" validate:"max=500"`
	Description string        `json:"description,omitempty" mapstructure:"description" validate:"max=10000"`
	Metrics     string        `json:"metrics,omitempty" mapstructure:"metrics" validate:"max=10000"`
	Items       []ContentItem `json:"items,omitempty" mapstructure:"items" validate:"dive"`
}

// ContentItem is one block of node content.
type ContentItem struct {
	ID      string      `json:"id" mapstructure:"id" validate:"required,max=255"`
	Kind    ContentKind `json:"kind" mapstructure:"kind" validate:"oneof=paragraph list checklist"`
	Text    string      `json:"text,omitempty" mapstructure:"text" validate:"max=10000"`
	Entries []ListEntry `json:"entries,omitempty" mapstructure:"entries" validate:"dive"`
}

// ListEntry is a line of a list or checklist item. Checked is only used by checklists.
type ListEntry struct {
	ID      string `json:"id" mapstructure:"id" validate:"required,max=255"`
	Text    string `json:"text" mapstructure:"text" validate:"max=2000"`
	Checked bool   `json:"checked,omitempty" mapstructure:"checked"`
}

// Clone returns a deep copy of the content.
func (c NodeContent) Clone() NodeContent {
	out := c
	if c.Items != nil {
		out.Items = make([]ContentItem, len(c.Items))
		for i, item := range c.Items {
			out.Items[i] = item
			if item.Entries != nil {
				out.Items[i].Entries = append([]ListEntry(nil), item.Entries...)
			}
		}
	}

	return out
}

// CheckItemIDs returns an error if two items share an id.
func (c NodeContent) CheckItemIDs() error {
	seen := make(map[string]struct{}, len(c.Items))
	for _, item := range c.Items {
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("%w: content item %q", ErrDuplicateID, item.ID)
		}

		seen[item.ID] = struct{}{}
	}

	return nil
}
