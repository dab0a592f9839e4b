package graph

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownDirection is returned for a query direction other than
// forward, reverse or affected.
var ErrUnknownDirection = errors.New("unknown direction")

// Edge represents a directed relationship: From depends on To.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Direction selects which reachability query to run.
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionReverse  Direction = "reverse"
	DirectionAffected Direction = "affected"
)

// ParseDirection validates a direction name.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case DirectionForward, DirectionReverse, DirectionAffected:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// Graph holds forward and reverse adjacency built once from an edge list.
// It is never modified after New returns, so it is safe for concurrent reads.
type Graph struct {
	forward map[string][]string
	reverse map[string][]string
	edges   int
}

// New builds the adjacency lists. Duplicate edges are kept; neighbour order
// follows edge order.
func New(edges []Edge) *Graph {
	g := &Graph{
		forward: make(map[string][]string),
		reverse: make(map[string][]string),
		edges:   len(edges),
	}
	for _, e := range edges {
		g.forward[e.From] = append(g.forward[e.From], e.To)
		g.reverse[e.To] = append(g.reverse[e.To], e.From)
	}
	return g
}

// EdgeCount returns the number of edges the graph was built from.
func (g *Graph) EdgeCount() int {
	return g.edges
}

// IDs returns every id that appears in an edge, sorted.
func (g *Graph) IDs() []string {
	seen := make(map[string]struct{}, len(g.forward)+len(g.reverse))
	for id := range g.forward {
		seen[id] = struct{}{}
	}
	for id := range g.reverse {
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DependenciesOf returns the direct targets of id in edge order.
func (g *Graph) DependenciesOf(id string) []string {
	return g.forward[id]
}

// DependentsOf returns the direct sources pointing at id in edge order.
func (g *Graph) DependentsOf(id string) []string {
	return g.reverse[id]
}

// Forward returns id followed by everything reachable from it along edges.
func (g *Graph) Forward(id string) []string {
	return traverse(g.forward, id, []string{id}, map[string]struct{}{id: {}})
}

// Reverse returns id followed by everything that reaches it.
func (g *Graph) Reverse(id string) []string {
	return traverse(g.reverse, id, []string{id}, map[string]struct{}{id: {}})
}

// Affected returns the union of Forward and Reverse: forward results first,
// then the dependents not already listed.
func (g *Graph) Affected(id string) []string {
	out := g.Forward(id)
	seen := make(map[string]struct{}, len(out))
	for _, n := range out {
		seen[n] = struct{}{}
	}
	for _, n := range g.Reverse(id)[1:] {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Query dispatches to Forward, Reverse or Affected.
func (g *Graph) Query(dir Direction, id string) ([]string, error) {
	switch dir {
	case DirectionForward:
		return g.Forward(id), nil
	case DirectionReverse:
		return g.Reverse(id), nil
	case DirectionAffected:
		return g.Affected(id), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDirection, dir)
}

// traverse is a depth-first walk over adj. A neighbour is appended the first
// time it is reached and expanded right away, so each node is expanded at most
// once. The walk keeps its own stack.
func traverse(adj map[string][]string, start string, out []string, seen map[string]struct{}) []string {
	type frame struct {
		id   string
		next int
	}
	stack := []frame{{id: start}}
	for len(stack) > 0 {
		top := len(stack) - 1
		targets := adj[stack[top].id]
		if stack[top].next >= len(targets) {
			stack = stack[:top]
			continue
		}
		next := targets[stack[top].next]
		stack[top].next++

		if _, ok := seen[next]; ok {
			continue
		}
		seen[next] = struct{}{}
		out = append(out, next)
		stack = append(stack, frame{id: next})
	}
	return out
}
