package tree

import (
	"sort"
	"strings"
)

// Build reconstructs the hierarchy implied by the module ids of entries.
//
// Each id is split on "/" and every distinct prefix becomes one node, created
// under the node of the next shorter prefix. Children keep the order in which
// their prefixes were first seen, so the output is deterministic for a given
// entry order. Metadata is attached only to the node whose id equals the
// entry id. An id starting with "/" gets an intermediate "/" node and an
// empty id refers to the root.
func Build(entries []Entry) *Tree {
	t := newTree()
	for _, e := range entries {
		t.insert(e)
	}
	AssignDisplayNames(t.Root)
	return t
}

// BuildMap is Build over a map. Entries are taken in lexical id order.
func BuildMap(modules map[string]Entry) *Tree {
	ids := make([]string, 0, len(modules))
	for id := range modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		e := modules[id]
		e.ID = id
		entries = append(entries, e)
	}
	return Build(entries)
}

func (t *Tree) insert(e Entry) {
	if e.ID == RootID {
		attach(t.Root, e)
		return
	}

	segments := strings.Split(e.ID, Separator)
	parent := t.Root
	raw := ""
	for i, seg := range segments {
		if i == 0 {
			raw = seg
		} else {
			raw += Separator + seg
		}
		prefix := raw
		if prefix == "" {
			prefix = Separator
		}
		if prefix == parent.ID {
			continue
		}

		n, ok := t.index[prefix]
		if !ok {
			n = &Node{ID: prefix, Name: lastSegment(prefix)}
			parent.addChild(n)
			t.register(n)
		}
		if prefix == e.ID {
			attach(n, e)
		}
		parent = n
	}
}

func attach(n *Node, e Entry) {
	if e.Size != nil {
		size := *e.Size
		n.Size = &size
	}
	if len(e.Meta) > 0 {
		if n.Meta == nil {
			n.Meta = make(map[string]any, len(e.Meta))
		}
		for k, v := range e.Meta {
			n.Meta[k] = v
		}
	}
}
