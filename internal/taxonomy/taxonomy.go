// Package taxonomy classifies research tools into a two-level hierarchy:
// Research Act → Research Category → Tools.
//
// A Registry is built once from a list of acts and is immutable afterwards,
// so it can be shared across concurrent callers without locking. All of its
// query functions are pure: they take the caller's list of used tools and
// never touch storage.
//
// # Completion Weighting
//
// Act completion weighs category breadth higher than raw tool count:
//
//	percentage = round(100 * (0.6*categoryCoverage + 0.4*toolCoverage))
//
// A user who touched every category of an act once is considered further
// along than one who used many tools from a single category.
package taxonomy

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidTaxonomy is returned when a taxonomy definition is malformed.
var ErrInvalidTaxonomy = errors.New("invalid taxonomy")

//go:embed default_taxonomy.yaml
var defaultTaxonomy []byte

// Act is a top-level research phase.
type Act struct {
	ID          string     `yaml:"id" json:"id"`
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Categories  []Category `yaml:"categories" json:"categories"`
}

// Category is a named group of tools within one act.
type Category struct {
	ID    string   `yaml:"id" json:"id"`
	Name  string   `yaml:"name" json:"name"`
	Act   string   `yaml:"-" json:"act"`
	Tools []string `yaml:"tools" json:"tools"`
}

// ToolContext locates a tool within the hierarchy.
type ToolContext struct {
	Tool     string `json:"tool"`
	Act      string `json:"act"`
	Category string `json:"category"`
}

// document is the on-disk YAML shape.
type document struct {
	Acts []Act `yaml:"acts"`
}

// Registry is an immutable research taxonomy.
type Registry struct {
	acts       []Act
	actIndex   map[string]int
	categories map[string]Category
	tools      map[string]ToolContext
	totalTools int
}

// New builds a Registry from acts given in progression order.
// Act, category and tool identifiers must be unique across the taxonomy,
// and every category must contain at least one tool.
func New(acts []Act) (*Registry, error) {
	if len(acts) == 0 {
		return nil, fmt.Errorf("%w: no acts defined", ErrInvalidTaxonomy)
	}

	r := &Registry{
		acts:       make([]Act, 0, len(acts)),
		actIndex:   make(map[string]int, len(acts)),
		categories: make(map[string]Category),
		tools:      make(map[string]ToolContext),
	}

	for i, a := range acts {
		if a.ID == "" {
			return nil, fmt.Errorf("%w: act at position %d has no id", ErrInvalidTaxonomy, i)
		}
		if _, dup := r.actIndex[a.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate act %q", ErrInvalidTaxonomy, a.ID)
		}
		if len(a.Categories) == 0 {
			return nil, fmt.Errorf("%w: act %q has no categories", ErrInvalidTaxonomy, a.ID)
		}

		act := Act{ID: a.ID, Name: a.Name, Description: a.Description}
		if act.Name == "" {
			act.Name = a.ID
		}

		for _, c := range a.Categories {
			if c.ID == "" {
				return nil, fmt.Errorf("%w: category without id in act %q", ErrInvalidTaxonomy, a.ID)
			}
			if _, dup := r.categories[c.ID]; dup {
				return nil, fmt.Errorf("%w: duplicate category %q", ErrInvalidTaxonomy, c.ID)
			}
			if len(c.Tools) == 0 {
				return nil, fmt.Errorf("%w: category %q has no tools", ErrInvalidTaxonomy, c.ID)
			}

			cat := Category{ID: c.ID, Name: c.Name, Act: a.ID, Tools: make([]string, 0, len(c.Tools))}
			if cat.Name == "" {
				cat.Name = c.ID
			}
			for _, tool := range c.Tools {
				if existing, dup := r.tools[tool]; dup {
					return nil, fmt.Errorf("%w: tool %q listed in both %s/%s and %s/%s",
						ErrInvalidTaxonomy, tool, existing.Act, existing.Category, a.ID, c.ID)
				}
				r.tools[tool] = ToolContext{Tool: tool, Act: a.ID, Category: c.ID}
				cat.Tools = append(cat.Tools, tool)
			}

			r.categories[c.ID] = cat
			act.Categories = append(act.Categories, cat)
			r.totalTools += len(cat.Tools)
		}

		r.actIndex[a.ID] = i
		r.acts = append(r.acts, act)
	}

	return r, nil
}

// Load parses a YAML taxonomy document.
func Load(rd io.Reader) (*Registry, error) {
	var doc document
	if err := yaml.NewDecoder(rd).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decoding yaml: %v", ErrInvalidTaxonomy, err)
	}
	return New(doc.Acts)
}

// LoadFile parses the YAML taxonomy at path.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Default returns the built-in six-act research taxonomy.
func Default() (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(defaultTaxonomy, &doc); err != nil {
		return nil, fmt.Errorf("%w: embedded taxonomy: %v", ErrInvalidTaxonomy, err)
	}
	return New(doc.Acts)
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Acts returns the acts in progression order.
func (r *Registry) Acts() []Act {
	out := make([]Act, len(r.acts))
	for i, a := range r.acts {
		out[i] = copyAct(a)
	}
	return out
}

// ActIDs returns act identifiers in progression order.
func (r *Registry) ActIDs() []string {
	ids := make([]string, len(r.acts))
	for i, a := range r.acts {
		ids[i] = a.ID
	}
	return ids
}

// Act looks up an act by id.
func (r *Registry) Act(id string) (Act, bool) {
	i, ok := r.actIndex[id]
	if !ok {
		return Act{}, false
	}
	return copyAct(r.acts[i]), true
}

// ActIndex returns the position of an act in progression order, or -1.
func (r *Registry) ActIndex(id string) int {
	if i, ok := r.actIndex[id]; ok {
		return i
	}
	return -1
}

// NextAct returns the act following id in progression order.
func (r *Registry) NextAct(id string) (string, bool) {
	i, ok := r.actIndex[id]
	if !ok || i+1 >= len(r.acts) {
		return "", false
	}
	return r.acts[i+1].ID, true
}

// Category looks up a category by id.
func (r *Registry) Category(id string) (Category, bool) {
	c, ok := r.categories[id]
	if !ok {
		return Category{}, false
	}
	return copyCategory(c), true
}

// Categories returns every category, grouped by act in progression order.
func (r *Registry) Categories() []Category {
	var out []Category
	for _, a := range r.acts {
		for _, c := range a.Categories {
			out = append(out, copyCategory(c))
		}
	}
	return out
}

// TotalTools returns the number of distinct tools in the taxonomy.
func (r *Registry) TotalTools() int {
	return r.totalTools
}

// ToolContext returns the act and category of tool. The boolean is false
// when the tool is not part of the taxonomy.
func (r *Registry) ToolContext(tool string) (ToolContext, bool) {
	tc, ok := r.tools[tool]
	return tc, ok
}

// ToolsForAct returns all tools of an act. Unknown acts yield nil.
func (r *Registry) ToolsForAct(act string) []string {
	i, ok := r.actIndex[act]
	if !ok {
		return nil
	}
	var out []string
	for _, c := range r.acts[i].Categories {
		out = append(out, c.Tools...)
	}
	return out
}

// ToolsForCategory returns all tools of a category. Unknown categories yield nil.
func (r *Registry) ToolsForCategory(category string) []string {
	c, ok := r.categories[category]
	if !ok {
		return nil
	}
	out := make([]string, len(c.Tools))
	copy(out, c.Tools)
	return out
}

func copyAct(a Act) Act {
	out := a
	out.Categories = make([]Category, len(a.Categories))
	for i, c := range a.Categories {
		out.Categories[i] = copyCategory(c)
	}
	return out
}

func copyCategory(c Category) Category {
	out := c
	out.Tools = make([]string, len(c.Tools))
	copy(out.Tools, c.Tools)
	return out
}

// toolSet deduplicates a list of tool names.
func toolSet(tools []string) map[string]bool {
	set := make(map[string]bool, len(tools))
	for _, t := range tools {
		set[t] = true
	}
	return set
}
