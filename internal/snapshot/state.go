package snapshot

import (
	"log/slog"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"depflow/internal/graph"
	"depflow/internal/metrics"
	"depflow/internal/tree"
)

// State is one fully built snapshot. It is never modified after the
// controller publishes it, so readers may keep it as long as they like.
type State struct {
	Version uint64

	// Raw input. Table is non-nil when the table form was supplied, in which
	// case Links and Modules are empty.
	Links   []Link
	Modules map[string]Module
	Order   []string
	Table   []Relation
	Options Options

	// Derived structures.
	Tree         *tree.Tree
	Graph        *graph.Graph
	Children     tree.Accessor
	DisplayLinks []DisplayLink
	MaxDistance  int
	Skipped      int
	BuiltAt      time.Time

	cache *lru.Cache[queryKey, []string]
}

type queryKey struct {
	dir graph.Direction
	id  string
}

// next merges p into a copy of s and rebuilds every derived structure.
func (s *State) next(p Partial, cacheSize int, logger *slog.Logger) *State {
	n := &State{
		Version: s.Version + 1,
		Links:   s.Links,
		Modules: s.Modules,
		Order:   s.Order,
		Table:   s.Table,
		Options: s.Options,
	}

	if p.Table != nil {
		n.Table = p.Table
		n.Links, n.Modules, n.Order = nil, nil, nil
	}
	if p.Links != nil {
		n.Links = p.Links
		n.Table = nil
	}
	if p.Modules != nil {
		n.Modules = p.Modules
		n.Order = p.Order
		n.Table = nil
	}
	if p.Options != nil {
		n.Options = n.Options.Apply(*p.Options)
	}

	n.derive(cacheSize, logger)
	return n
}

func (s *State) derive(cacheSize int, logger *slog.Logger) {
	var edges []graph.Edge
	if s.Table != nil {
		s.Tree = tree.FromTable(treeRelations(s.Table))
		edges = relationEdges(s.Table)
	} else {
		s.Tree = tree.Build(s.entries())
		edges = linkEdges(s.Links)
	}

	s.Graph = graph.New(edges)
	s.Children = tree.AccessorFor(s.Options.Collapse)
	s.DisplayLinks, s.MaxDistance, s.Skipped = buildDisplayLinks(s.Tree, edges, logger)
	s.BuiltAt = time.Now()

	if cacheSize > 0 {
		// lru.New only fails for a non-positive size.
		s.cache, _ = lru.New[queryKey, []string](cacheSize)
	}
}

func (s *State) entries() []tree.Entry {
	snap := Snapshot{Modules: s.Modules, Order: s.Order}
	ids := snap.ModuleIDs()
	entries := make([]tree.Entry, 0, len(ids))
	for _, id := range ids {
		m := s.Modules[id]
		entries = append(entries, tree.Entry{ID: id, Size: m.Size, Meta: m.Meta})
	}
	return entries
}

// Document returns the raw input in the form it was supplied.
func (s *State) Document() *Document {
	if s.Table != nil {
		return &Document{Table: s.Table}
	}
	return &Document{Snapshot: &Snapshot{Links: s.Links, Modules: s.Modules, Order: s.Order}}
}

// Query runs a reachability query through the per-state cache.
func (s *State) Query(dir graph.Direction, id string) ([]string, error) {
	key := queryKey{dir: dir, id: id}
	if s.cache != nil {
		if hit, ok := s.cache.Get(key); ok {
			metrics.Query(string(dir), true)
			return slices.Clone(hit), nil
		}
	}

	res, err := s.Graph.Query(dir, id)
	if err != nil {
		return nil, err
	}
	metrics.Query(string(dir), false)
	if s.cache != nil {
		s.cache.Add(key, res)
	}
	return slices.Clone(res), nil
}

// Forward lists id and everything it depends on.
func (s *State) Forward(id string) []string {
	res, _ := s.Query(graph.DirectionForward, id)
	return res
}

// Reverse lists id and everything depending on it.
func (s *State) Reverse(id string) []string {
	res, _ := s.Query(graph.DirectionReverse, id)
	return res
}

// Affected lists the blast radius of a change to id.
func (s *State) Affected(id string) []string {
	res, _ := s.Query(graph.DirectionAffected, id)
	return res
}

// View renders the tree through the active children accessor.
func (s *State) View() *tree.View {
	return tree.Render(s.Tree.Root, s.Children)
}
