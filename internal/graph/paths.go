package graph

import "strings"

// DefaultPathLimit caps how many chains Paths returns when no limit is set.
const DefaultPathLimit = 1000

// PathOptions bounds path enumeration.
type PathOptions struct {
	// MaxDepth is the maximum number of edges per chain; 0 means unbounded.
	MaxDepth int
	// Limit is the maximum number of chains returned.
	Limit int
}

// Paths enumerates the distinct simple dependency chains from `from` to `to`
// in edge order. Unlike Forward it reports every chain, not just membership,
// so its cost grows with the number of chains; Limit keeps it bounded.
func (g *Graph) Paths(from, to string, opts PathOptions) [][]string {
	if from == to {
		return [][]string{{from}}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPathLimit
	}

	type frame struct {
		id   string
		next int
	}
	stack := []frame{{id: from}}
	onPath := map[string]bool{from: true}
	emitted := make(map[string]bool)

	var out [][]string
	for len(stack) > 0 && len(out) < limit {
		top := len(stack) - 1
		targets := g.forward[stack[top].id]
		if stack[top].next >= len(targets) || (opts.MaxDepth > 0 && top >= opts.MaxDepth) {
			delete(onPath, stack[top].id)
			stack = stack[:top]
			continue
		}
		next := targets[stack[top].next]
		stack[top].next++

		if onPath[next] {
			continue
		}
		if next == to {
			chain := make([]string, 0, len(stack)+1)
			for _, f := range stack {
				chain = append(chain, f.id)
			}
			chain = append(chain, to)

			key := strings.Join(chain, "\x00")
			if !emitted[key] {
				emitted[key] = true
				out = append(out, chain)
			}
			continue
		}
		onPath[next] = true
		stack = append(stack, frame{id: next})
	}
	return out
}

// Depths returns the hop distance from id to every node reachable forward.
func (g *Graph) Depths(id string) map[string]int {
	depth := map[string]int{id: 0}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.forward[cur] {
			if _, seen := depth[next]; seen {
				continue
			}
			depth[next] = depth[cur] + 1
			queue = append(queue, next)
		}
	}
	return depth
}
