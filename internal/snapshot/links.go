package snapshot

import (
	"log/slog"
	"strings"

	"depflow/internal/graph"
	"depflow/internal/tree"
)

// DisplayLink is an edge whose endpoints both have tree nodes. Chain lists
// the node ids from the source up to their common ancestor and down to the
// target; the renderer bundles the drawn curve along it.
type DisplayLink struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Chain  []string `json:"chain"`
}

// buildDisplayLinks resolves every edge against the tree. Edges with a missing
// endpoint are skipped with a warning.
func buildDisplayLinks(t *tree.Tree, edges []graph.Edge, logger *slog.Logger) (links []DisplayLink, maxDistance, skipped int) {
	links = make([]DisplayLink, 0, len(edges))
	for _, e := range edges {
		src, okSrc := t.Node(e.From)
		dst, okDst := t.Node(e.To)
		if !okSrc || !okDst {
			skipped++
			logger.Warn("skipping link with unknown module",
				"source", e.From,
				"target", e.To,
				"source_found", okSrc,
				"target_found", okDst,
			)
			continue
		}

		path := tree.Path(src, dst)
		chain := make([]string, 0, len(path))
		for _, n := range path {
			chain = append(chain, n.ID)
		}
		if len(chain) > maxDistance {
			maxDistance = len(chain)
		}
		links = append(links, DisplayLink{Source: src.ID, Target: dst.ID, Chain: chain})
	}
	return links, maxDistance, skipped
}

// FocusResult is the subset of links touching a focused subtree and the node
// ids those links pass through.
type FocusResult struct {
	Focus     string        `json:"focus"`
	Links     []DisplayLink `json:"links"`
	Highlight []string      `json:"highlight"`
}

// Focus keeps the links whose source or target lies inside the subtree rooted
// at id. Focusing the root, or nothing, keeps every link and highlights none.
func (s *State) Focus(id string) FocusResult {
	if id == tree.RootID || id == tree.TableRootAlias {
		return FocusResult{Links: s.DisplayLinks, Highlight: []string{}}
	}

	res := FocusResult{Focus: id, Links: []DisplayLink{}, Highlight: []string{}}
	seen := make(map[string]bool)
	for _, l := range s.DisplayLinks {
		if !withinSubtree(l.Source, id) && !withinSubtree(l.Target, id) {
			continue
		}
		res.Links = append(res.Links, l)
		for _, n := range l.Chain {
			if !seen[n] {
				seen[n] = true
				res.Highlight = append(res.Highlight, n)
			}
		}
	}
	return res
}

func withinSubtree(id, root string) bool {
	if id == root {
		return true
	}
	if root == tree.Separator {
		return strings.HasPrefix(id, tree.Separator)
	}
	return strings.HasPrefix(id, root+tree.Separator)
}
