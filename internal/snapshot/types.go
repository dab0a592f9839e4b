// Package snapshot holds the current {links, modules, options} triple and the
// tree and graph derived from it.
package snapshot

import (
	"encoding/json"
	"errors"
	"sort"

	"depflow/internal/graph"
	"depflow/internal/tree"
)

// ErrInvalidSnapshot is returned when a document is neither the object form
// nor the relation table form.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Link is a dependency edge: Source imports Target. It is encoded as a
// two-element array.
type Link struct {
	Source string
	Target string
}

// Module is the metadata supplied for one module id.
type Module struct {
	Size *float64
	Meta map[string]any
}

// Relation is one row of the flat table form: [source, target, targetSize?].
type Relation struct {
	Source string
	Target string
	Size   *float64
}

// Snapshot is the object form {links, modules}. Order keeps the module ids in
// document order so the tree is built deterministically.
type Snapshot struct {
	Links   []Link
	Modules map[string]Module
	Order   []string
}

// ModuleIDs returns the module ids in document order. Ids missing from Order
// follow in lexical order.
func (s *Snapshot) ModuleIDs() []string {
	ids := make([]string, 0, len(s.Modules))
	seen := make(map[string]bool, len(s.Modules))
	for _, id := range s.Order {
		if _, ok := s.Modules[id]; ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	var rest []string
	for id := range s.Modules {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

// Document is a decoded input: exactly one of Snapshot and Table is set.
type Document struct {
	Snapshot *Snapshot
	Table    []Relation
}

// IsTable reports whether the document uses the flat table form.
func (d *Document) IsTable() bool {
	return d.Table != nil
}

func (d *Document) MarshalJSON() ([]byte, error) {
	if d.IsTable() {
		return json.Marshal(d.Table)
	}
	if d.Snapshot == nil {
		return json.Marshal(&Snapshot{})
	}
	return json.Marshal(d.Snapshot)
}

func (d *Document) MarshalYAML() (interface{}, error) {
	if d.IsTable() {
		return d.Table, nil
	}
	if d.Snapshot == nil {
		return &Snapshot{}, nil
	}
	return d.Snapshot, nil
}

// Options are the display options. Only Collapse is interpreted here; the
// rest is forwarded to the rendering layer untouched.
type Options struct {
	Collapse bool    `json:"collapse" yaml:"collapse"`
	Padding  float64 `json:"padding" yaml:"padding"`
	Animate  bool    `json:"animate" yaml:"animate"`
	Tension  float64 `json:"tension" yaml:"tension"`
}

// DefaultOptions mirrors the renderer defaults.
func DefaultOptions() Options {
	return Options{
		Animate: true,
		Tension: 0.8,
	}
}

// OptionsPatch changes the fields that are set.
type OptionsPatch struct {
	Collapse *bool    `json:"collapse,omitempty" yaml:"collapse,omitempty"`
	Padding  *float64 `json:"padding,omitempty" yaml:"padding,omitempty"`
	Animate  *bool    `json:"animate,omitempty" yaml:"animate,omitempty"`
	Tension  *float64 `json:"tension,omitempty" yaml:"tension,omitempty"`
}

// Apply returns o with the set fields of p applied.
func (o Options) Apply(p OptionsPatch) Options {
	if p.Collapse != nil {
		o.Collapse = *p.Collapse
	}
	if p.Padding != nil {
		o.Padding = *p.Padding
	}
	if p.Animate != nil {
		o.Animate = *p.Animate
	}
	if p.Tension != nil {
		o.Tension = *p.Tension
	}
	return o
}

// Partial carries the fields to merge into the current state. Nil fields are
// left unchanged. Setting Table switches to the table form; setting Links or
// Modules switches back to the object form.
type Partial struct {
	Links   []Link
	Modules map[string]Module
	Order   []string
	Table   []Relation
	Options *OptionsPatch

	// Source labels where the update came from (api, file, watch).
	Source string
}

// PartialFromDocument replaces the whole snapshot with doc.
func PartialFromDocument(doc *Document, source string) Partial {
	if doc.IsTable() {
		return Partial{Table: doc.Table, Source: source}
	}
	s := doc.Snapshot
	if s == nil {
		s = &Snapshot{}
	}
	p := Partial{
		Links:   s.Links,
		Modules: s.Modules,
		Order:   s.Order,
		Source:  source,
	}
	if p.Links == nil {
		p.Links = []Link{}
	}
	if p.Modules == nil {
		p.Modules = map[string]Module{}
	}
	return p
}

func linkEdges(links []Link) []graph.Edge {
	edges := make([]graph.Edge, 0, len(links))
	for _, l := range links {
		edges = append(edges, graph.Edge{From: l.Source, To: l.Target})
	}
	return edges
}

func relationEdges(table []Relation) []graph.Edge {
	edges := make([]graph.Edge, 0, len(table))
	for _, r := range table {
		edges = append(edges, graph.Edge{From: rootAlias(r.Source), To: rootAlias(r.Target)})
	}
	return edges
}

func rootAlias(id string) string {
	if id == tree.TableRootAlias {
		return tree.RootID
	}
	return id
}

func treeRelations(table []Relation) []tree.Relation {
	out := make([]tree.Relation, 0, len(table))
	for _, r := range table {
		out = append(out, tree.Relation{Source: r.Source, Target: r.Target, Size: r.Size})
	}
	return out
}
