// Package tree reconstructs the directory hierarchy implied by flat module
// paths and provides traversal helpers for the rendering layer.
package tree

import "strings"

// RootID is the id of the implicit root node.
const RootID = ""

// TableRootAlias is accepted as an alias of the root in relation tables.
const TableRootAlias = "__root__"

// Separator splits module ids into path segments.
const Separator = "/"

// Node is either a synthetic directory or a leaf module.
type Node struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	DisplayName string         `json:"displayName,omitempty"`
	Size        *float64       `json:"size,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
	Imports     []string       `json:"imports,omitempty"`
	Children    []*Node        `json:"children,omitempty"`

	// Parent is nil for the root only.
	Parent *Node `json:"-"`
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// IsRoot reports whether the node is the tree root.
func (n *Node) IsRoot() bool {
	return n.Parent == nil
}

// Depth returns the number of edges between the node and the root.
func (n *Node) Depth() int {
	d := 0
	for p := n.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

// Ancestors returns the node followed by its parents up to the root.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for cur := n; cur != nil; cur = cur.Parent {
		out = append(out, cur)
	}
	return out
}

func (n *Node) addChild(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// Entry is a single module handed to Build.
type Entry struct {
	ID   string
	Size *float64
	Meta map[string]any
}

// Tree is the built hierarchy together with an id index.
type Tree struct {
	Root  *Node
	index map[string]*Node
	order []string
}

func newTree() *Tree {
	root := &Node{ID: RootID, Name: RootID}
	return &Tree{
		Root:  root,
		index: map[string]*Node{RootID: root},
		order: []string{RootID},
	}
}

// Node looks up a node by its full id. The table alias of the root is accepted.
func (t *Tree) Node(id string) (*Node, bool) {
	if id == TableRootAlias {
		id = RootID
	}
	n, ok := t.index[id]
	return n, ok
}

// Len returns the number of nodes including the root.
func (t *Tree) Len() int {
	return len(t.index)
}

// IDs returns every node id in creation order, root first.
func (t *Tree) IDs() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Leaves returns the leaf nodes in pre-order.
func (t *Tree) Leaves() []*Node {
	var out []*Node
	EachBefore(t.Root, Direct, func(n *Node, _ int) bool {
		if n.IsLeaf() && !n.IsRoot() {
			out = append(out, n)
		}
		return true
	})
	return out
}

func (t *Tree) register(n *Node) {
	t.index[n.ID] = n
	t.order = append(t.order, n.ID)
}

// lastSegment returns the name of a node given its full id.
func lastSegment(id string) string {
	if id == Separator {
		return Separator
	}
	i := strings.LastIndex(id, Separator)
	if i < 0 {
		return id
	}
	return id[i+1:]
}
