package tree

// Accessor decides which nodes a traversal visits as the children of n.
// Accessors never modify the tree, so several views can share one tree.
type Accessor interface {
	ChildrenOf(n *Node) []*Node
}

// AccessorFunc adapts a function to Accessor.
type AccessorFunc func(n *Node) []*Node

func (f AccessorFunc) ChildrenOf(n *Node) []*Node {
	return f(n)
}

var (
	// Direct visits the children exactly as built.
	Direct Accessor = AccessorFunc(func(n *Node) []*Node { return n.Children })

	// Collapsed skips chains of single-child directories: each child is
	// replaced by the first descendant that has zero or several children.
	Collapsed Accessor = AccessorFunc(collapsedChildren)
)

// AccessorFor returns Collapsed when collapse is set and Direct otherwise.
func AccessorFor(collapse bool) Accessor {
	if collapse {
		return Collapsed
	}
	return Direct
}

func collapsedChildren(n *Node) []*Node {
	switch len(n.Children) {
	case 0:
		return n.Children
	case 1:
		return []*Node{skipSingleChild(n.Children[0])}
	default:
		out := make([]*Node, 0, len(n.Children))
		for _, c := range n.Children {
			out = append(out, skipSingleChild(c))
		}
		return out
	}
}

func skipSingleChild(n *Node) *Node {
	for len(n.Children) == 1 {
		n = n.Children[0]
	}
	return n
}
