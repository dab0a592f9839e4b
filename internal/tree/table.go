package tree

import "strings"

// Relation is one row of a flat relation table: Source imports Target, and
// Target has the optional Size.
type Relation struct {
	Source string
	Target string
	Size   *float64
}

// FromTable builds the hierarchy straight from a relation table. Every source
// records its targets in Imports, every target receives the relation size,
// and both ends are linked under their parent directories. The empty id and
// "__root__" both denote the root.
func FromTable(relations []Relation) *Tree {
	b := &tableBuilder{
		t:       newTree(),
		handled: make(map[string]bool),
	}

	for _, rel := range relations {
		src := b.ensure(rel.Source)
		dst := b.ensure(rel.Target)
		src.Imports = append(src.Imports, dst.ID)
		if rel.Size != nil {
			size := *rel.Size
			dst.Size = &size
		}

		b.group(src.ID)
		b.group(dst.ID)
	}

	AssignDisplayNames(b.t.Root)
	return b.t
}

type tableBuilder struct {
	t       *Tree
	handled map[string]bool
}

func canonicalID(id string) string {
	if id == TableRootAlias {
		return RootID
	}
	return id
}

// ensure returns the node for id, creating an unlinked placeholder if needed.
func (b *tableBuilder) ensure(id string) *Node {
	id = canonicalID(id)
	if n, ok := b.t.index[id]; ok {
		return n
	}
	n := &Node{ID: id, Name: id}
	b.t.register(n)
	return n
}

// group links id under its parent directory, creating missing ancestors, and
// keeps climbing until it meets a prefix that is already linked.
func (b *tableBuilder) group(id string) {
	for id != RootID && !b.handled[id] {
		b.handled[id] = true

		parentID, name := splitParent(id)
		n := b.t.index[id]
		n.Name = name

		parent, ok := b.t.index[parentID]
		if !ok {
			parent = &Node{ID: parentID, Name: parentID}
			b.t.register(parent)
		}
		parent.addChild(n)
		id = parentID
	}
}

func splitParent(id string) (parent, name string) {
	i := strings.LastIndex(id, Separator)
	switch {
	case i > 0:
		return id[:i], id[i+1:]
	case i == 0 && id != Separator:
		return Separator, id[1:]
	default:
		return RootID, id
	}
}
