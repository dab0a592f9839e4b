package tree

import "strings"

// EachBefore visits root and its descendants in pre-order, asking acc for the
// children of every node. Returning false from fn skips the node's subtree.
func EachBefore(root *Node, acc Accessor, fn func(n *Node, depth int) bool) {
	if root == nil {
		return
	}
	type item struct {
		node  *Node
		depth int
	}
	stack := []item{{node: root}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur.node, cur.depth) {
			continue
		}
		children := acc.ChildrenOf(cur.node)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, item{node: children[i], depth: cur.depth + 1})
		}
	}
}

// Descendants returns root and every node below it in pre-order under acc.
func Descendants(root *Node, acc Accessor) []*Node {
	var out []*Node
	EachBefore(root, acc, func(n *Node, _ int) bool {
		out = append(out, n)
		return true
	})
	return out
}

// AssignDisplayNames derives the label shown for every node. A directory with
// a single child hands its label down, so the child shows "dir/child" and the
// directory itself shows nothing.
func AssignDisplayNames(root *Node) {
	EachBefore(root, Direct, func(n *Node, _ int) bool {
		if n.DisplayName == "" {
			n.DisplayName = n.Name
		}
		if len(n.Children) == 1 {
			child := n.Children[0]
			if n.IsRoot() {
				child.DisplayName = child.Name
			} else {
				child.DisplayName = n.DisplayName + Separator + child.Name
			}
			n.DisplayName = ""
		}
		return true
	})
}

// Path returns the nodes from `from` up to the lowest common ancestor and back
// down to `to`, both ends included. It returns nil when the nodes do not share
// a root.
func Path(from, to *Node) []*Node {
	up := from.Ancestors()
	pos := make(map[*Node]int, len(up))
	for i, n := range up {
		pos[n] = i
	}

	var down []*Node
	cur := to
	for cur != nil {
		if i, ok := pos[cur]; ok {
			out := make([]*Node, 0, i+1+len(down))
			out = append(out, up[:i+1]...)
			for j := len(down) - 1; j >= 0; j-- {
				out = append(out, down[j])
			}
			return out
		}
		down = append(down, cur)
		cur = cur.Parent
	}
	return nil
}

// View is a rendered node as seen through an Accessor.
type View struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	DisplayName string   `json:"displayName,omitempty"`
	Size        *float64 `json:"size,omitempty"`
	Imports     []string `json:"imports,omitempty"`
	Children    []*View  `json:"children,omitempty"`
}

// Render materializes the hierarchy below root as visited through acc. Labels
// are the node id relative to the visited parent, so a collapsed chain shows
// its concatenated segment names.
func Render(root *Node, acc Accessor) *View {
	if root == nil {
		return nil
	}
	rootView := newView(root, root.Name)

	type item struct {
		node *Node
		view *View
	}
	stack := []item{{node: root, view: rootView}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, c := range acc.ChildrenOf(cur.node) {
			v := newView(c, relativeLabel(cur.node, c))
			cur.view.Children = append(cur.view.Children, v)
			stack = append(stack, item{node: c, view: v})
		}
	}
	return rootView
}

func newView(n *Node, label string) *View {
	return &View{
		ID:          n.ID,
		Label:       label,
		DisplayName: n.DisplayName,
		Size:        n.Size,
		Imports:     n.Imports,
	}
}

func relativeLabel(parent, child *Node) string {
	switch {
	case parent.ID == RootID:
		return child.ID
	case parent.ID == Separator:
		return strings.TrimPrefix(child.ID, Separator)
	case strings.HasPrefix(child.ID, parent.ID+Separator):
		return child.ID[len(parent.ID)+1:]
	default:
		return child.Name
	}
}
