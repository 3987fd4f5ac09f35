package canvas

import (
	"embed"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/funnelboard/funnelboard/internal/models"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// TemplateInfo describes a built-in funnel template.
type TemplateInfo struct {
	Name        string `json:"name" yaml:"name"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	NodeCount   int    `json:"node_count" yaml:"-"`
}

type templateNode struct {
	Key   string          `yaml:"key"`
	Type  models.NodeType `yaml:"type"`
	X     float64         `yaml:"x"`
	Y     float64         `yaml:"y"`
	Label string          `yaml:"label"`
}

type templateEdge struct {
	From       string        `yaml:"from"`
	To         string        `yaml:"to"`
	FromHandle models.Handle `yaml:"from_handle"`
	ToHandle   models.Handle `yaml:"to_handle"`
}

type template struct {
	TemplateInfo `yaml:",inline"`
	Nodes        []templateNode `yaml:"nodes"`
	Edges        []templateEdge `yaml:"edges"`
}

var (
	templatesOnce sync.Once
	templatesByID map[string]template
	templatesErr  error
)

func loadTemplates() (map[string]template, error) {
	templatesOnce.Do(func() {
		templatesByID, templatesErr = parseTemplates()
	})

	return templatesByID, templatesErr
}

func parseTemplates() (map[string]template, error) {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("reading templates: %w", err)
	}

	out := make(map[string]template, len(entries))

	for _, entry := range entries {
		raw, err := templateFS.ReadFile(path.Join("templates", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", entry.Name(), err)
		}

		var t template
		if err := yaml.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", entry.Name(), err)
		}

		if t.Name == "" {
			t.Name = strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		}

		if err := t.check(); err != nil {
			return nil, fmt.Errorf("template %s: %w", t.Name, err)
		}

		t.NodeCount = len(t.Nodes)
		out[t.Name] = t
	}

	return out, nil
}

func (t template) check() error {
	keys := make(map[string]struct{}, len(t.Nodes))

	for _, n := range t.Nodes {
		if !n.Type.Valid() {
			return fmt.Errorf("%w: %q", models.ErrUnknownNodeType, n.Type)
		}

		if _, dup := keys[n.Key]; dup || n.Key == "" {
			return fmt.Errorf("%w: node key %q", models.ErrDuplicateID, n.Key)
		}

		keys[n.Key] = struct{}{}
	}

	for _, e := range t.Edges {
		_, src := keys[e.From]
		_, dst := keys[e.To]

		if !src || !dst {
			return fmt.Errorf("%w: %s -> %s", models.ErrDanglingEdge, e.From, e.To)
		}
	}

	return nil
}

// Templates lists the built-in templates sorted by name.
func Templates() ([]TemplateInfo, error) {
	byID, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	out := make([]TemplateInfo, 0, len(byID))
	for _, t := range byID {
		out = append(out, t.TemplateInfo)
	}

	slices.SortFunc(out, func(a, b TemplateInfo) int { return strings.Compare(a.Name, b.Name) })

	return out, nil
}

// TemplateCanvas instantiates a template as a standalone bundle with fresh ids.
func TemplateCanvas(name string, newID func(prefix string) string) (models.CanvasData, error) {
	if newID == nil {
		newID = defaultID
	}

	g, err := instantiateTemplate(name, newID, Config{}.withDefaults().Edge)
	if err != nil {
		return models.CanvasData{}, err
	}

	s := g.snapshot()

	return models.CanvasData{Nodes: s.Nodes, Edges: s.Edges, Drawings: []models.DrawingPath{}}, nil
}

func instantiateTemplate(name string, newID func(string) string, style EdgeStyle) (Graph, error) {
	byID, err := loadTemplates()
	if err != nil {
		return Graph{}, err
	}

	t, ok := byID[name]
	if !ok {
		return Graph{}, fmt.Errorf("%w: %q", models.ErrUnknownTemplate, name)
	}

	ids := make(map[string]string, len(t.Nodes))
	nodes := make([]models.Node, 0, len(t.Nodes))

	for _, tn := range t.Nodes {
		label := tn.Label
		if label == "" {
			label = tn.Type.DefaultLabel()
		}

		id := newID(string(tn.Type))
		ids[tn.Key] = id
		nodes = append(nodes, models.Node{
			ID:       id,
			Type:     tn.Type,
			Position: models.Position{X: tn.X, Y: tn.Y},
			Data:     models.NodeData{Label: label},
		})
	}

	edges := make([]models.Edge, 0, len(t.Edges))
	for _, te := range t.Edges {
		src, dst := te.FromHandle, te.ToHandle
		if src == "" {
			src = models.HandleRightSource
		}

		if dst == "" {
			dst = models.HandleLeftTarget
		}

		edges = append(edges, models.Edge{
			ID:           newID("edge"),
			Source:       ids[te.From],
			SourceHandle: src,
			Target:       ids[te.To],
			TargetHandle: dst,
			Type:         style.Type,
			Animated:     style.Animated,
			Color:        style.Color,
		})
	}

	return Graph{nodes: nodes, edges: edges}, nil
}
