package tree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func size(v float64) *float64 {
	return &v
}

func childIDs(nodes []*Node) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestBuild_ReconstructsDirectories(t *testing.T) {
	tr := Build([]Entry{
		{ID: "src/utils/foo.js", Size: size(3)},
		{ID: "src/utils/bar.js", Size: size(4)},
		{ID: "src/index.js", Meta: map[string]any{"entry": true}},
		{ID: "README.md"},
	})

	assert.Equal(t, RootID, tr.Root.ID)
	assert.Equal(t, []string{"src", "README.md"}, childIDs(tr.Root.Children))

	src, ok := tr.Node("src")
	require.True(t, ok)
	assert.Equal(t, []string{"src/utils", "src/index.js"}, childIDs(src.Children))
	assert.Nil(t, src.Size, "synthetic directories carry no metadata")

	foo, ok := tr.Node("src/utils/foo.js")
	require.True(t, ok)
	assert.Equal(t, "foo.js", foo.Name)
	require.NotNil(t, foo.Size)
	assert.Equal(t, 3.0, *foo.Size)

	index, _ := tr.Node("src/index.js")
	assert.Equal(t, true, index.Meta["entry"])

	assert.Len(t, tr.Leaves(), 4)
}

func TestBuild_ParentIsPrefixOfChild(t *testing.T) {
	tr := Build([]Entry{
		{ID: "a/b/c"}, {ID: "a/b/d"}, {ID: "a/e"}, {ID: "f"},
	})

	for _, id := range tr.IDs() {
		n, _ := tr.Node(id)
		if n.IsRoot() {
			continue
		}
		require.NotNil(t, n.Parent, id)
		if n.Parent.IsRoot() {
			assert.NotContains(t, n.ID, Separator)
			continue
		}
		assert.True(t, strings.HasPrefix(n.ID, n.Parent.ID+Separator), "%s under %s", n.ID, n.Parent.ID)
	}
}

func TestBuild_OneNodePerModule(t *testing.T) {
	ids := []string{"a/b", "a", "a/b/c", "x/y"}
	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, Entry{ID: id, Size: size(1)})
	}
	tr := Build(entries)

	for _, id := range ids {
		n, ok := tr.Node(id)
		require.True(t, ok, id)
		require.NotNil(t, n.Size, "module %s should keep its metadata", id)
	}

	seen := make(map[string]int)
	for _, n := range Descendants(tr.Root, Direct) {
		seen[n.ID]++
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, id)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	modules := map[string]Entry{
		"lib/a.go": {Size: size(1)},
		"lib/b.go": {Size: size(2)},
		"cmd/x.go": {},
	}
	first := Render(BuildMap(modules).Root, Direct)
	second := Render(BuildMap(modules).Root, Direct)
	assert.Equal(t, first, second)
}

func TestBuild_EdgeCases(t *testing.T) {
	t.Run("empty input yields bare root", func(t *testing.T) {
		tr := Build(nil)
		assert.Empty(t, tr.Root.Children)
		assert.Equal(t, 1, tr.Len())
	})

	t.Run("leading slash keeps a slash node", func(t *testing.T) {
		tr := Build([]Entry{{ID: "/usr/lib/x.so"}})
		require.Len(t, tr.Root.Children, 1)
		slash := tr.Root.Children[0]
		assert.Equal(t, "/", slash.ID)
		assert.Equal(t, []string{"/usr"}, childIDs(slash.Children))

		_, ok := tr.Node("/usr/lib/x.so")
		assert.True(t, ok)
	})

	t.Run("empty id maps to the root", func(t *testing.T) {
		tr := Build([]Entry{{ID: "", Size: size(9)}})
		require.NotNil(t, tr.Root.Size)
		assert.Equal(t, 9.0, *tr.Root.Size)
		assert.Empty(t, tr.Root.Children)
	})
}

func TestFromTable(t *testing.T) {
	t.Run("single relation", func(t *testing.T) {
		tr := FromTable([]Relation{{Source: "a/b", Target: "a/c", Size: size(42)}})

		a, ok := tr.Node("a")
		require.True(t, ok)
		assert.ElementsMatch(t, []string{"a/b", "a/c"}, childIDs(a.Children))

		b, _ := tr.Node("a/b")
		assert.Equal(t, []string{"a/c"}, b.Imports)
		assert.Equal(t, "b", b.Name)

		c, _ := tr.Node("a/c")
		require.NotNil(t, c.Size)
		assert.Equal(t, 42.0, *c.Size)
		assert.Equal(t, []string{"a"}, childIDs(tr.Root.Children))
	})

	t.Run("shared ancestors are linked once", func(t *testing.T) {
		tr := FromTable([]Relation{
			{Source: "src/app/main", Target: "src/lib/util"},
			{Source: "src/app/view", Target: "src/lib/util"},
			{Source: "src/app/main", Target: "src/app/view"},
		})
		src, _ := tr.Node("src")
		assert.Equal(t, []string{"src/app", "src/lib"}, childIDs(src.Children))
		app, _ := tr.Node("src/app")
		assert.Equal(t, []string{"src/app/main", "src/app/view"}, childIDs(app.Children))
		assert.Equal(t, []string{"src"}, childIDs(tr.Root.Children))

		main, _ := tr.Node("src/app/main")
		assert.Equal(t, []string{"src/lib/util", "src/app/view"}, main.Imports)
	})

	t.Run("root aliases", func(t *testing.T) {
		tr := FromTable([]Relation{
			{Source: "", Target: "a"},
			{Source: TableRootAlias, Target: "b"},
		})
		assert.Equal(t, []string{"a", "b"}, tr.Root.Imports)
		assert.Equal(t, []string{"a", "b"}, childIDs(tr.Root.Children))
	})

	t.Run("imports always resolve", func(t *testing.T) {
		tr := FromTable([]Relation{
			{Source: "x/y", Target: "z"},
			{Source: "z", Target: "/abs/w"},
		})
		for _, n := range Descendants(tr.Root, Direct) {
			for _, imp := range n.Imports {
				_, ok := tr.Node(imp)
				assert.True(t, ok, "import %s of %s", imp, n.ID)
			}
		}
		slash, ok := tr.Node("/")
		require.True(t, ok)
		assert.Equal(t, []string{"/abs"}, childIDs(slash.Children))
	})
}

func TestCollapsed(t *testing.T) {
	tr := Build([]Entry{{ID: "x/y/leaf"}})

	children := Collapsed.ChildrenOf(tr.Root)
	require.Len(t, children, 1)
	assert.Equal(t, "x/y/leaf", children[0].ID)

	for _, id := range []string{"x", "x/y"} {
		_, ok := tr.Node(id)
		assert.True(t, ok, "%s stays addressable", id)
	}
	assert.Equal(t, []string{"x"}, childIDs(Direct.ChildrenOf(tr.Root)))
}

func TestCollapsed_MixedFanOut(t *testing.T) {
	tr := Build([]Entry{
		{ID: "src/a/deep/one.js"},
		{ID: "src/b.js"},
		{ID: "src/c/x.js"},
		{ID: "src/c/y.js"},
	})
	src, _ := tr.Node("src")

	assert.Equal(t,
		[]string{"src/a/deep/one.js", "src/b.js", "src/c"},
		childIDs(Collapsed.ChildrenOf(src)))

	leaf, _ := tr.Node("src/b.js")
	assert.Empty(t, Collapsed.ChildrenOf(leaf))

	view := Render(tr.Root, Collapsed)
	require.Len(t, view.Children, 1)
	assert.Equal(t, "src", view.Children[0].Label)
	assert.Equal(t, "a/deep/one.js", view.Children[0].Children[0].Label)
}

func TestAccessorFor(t *testing.T) {
	tr := Build([]Entry{{ID: "a/b"}})
	assert.Equal(t, "a/b", AccessorFor(true).ChildrenOf(tr.Root)[0].ID)
	assert.Equal(t, "a", AccessorFor(false).ChildrenOf(tr.Root)[0].ID)
}

func TestAssignDisplayNames(t *testing.T) {
	tr := Build([]Entry{
		{ID: "pkg/inner/one.go"},
		{ID: "pkg/inner/two.go"},
	})

	pkg, _ := tr.Node("pkg")
	inner, _ := tr.Node("pkg/inner")
	one, _ := tr.Node("pkg/inner/one.go")

	assert.Equal(t, "", tr.Root.DisplayName)
	assert.Equal(t, "", pkg.DisplayName)
	assert.Equal(t, "pkg/inner", inner.DisplayName)
	assert.Equal(t, "one.go", one.DisplayName)
}

func TestPath(t *testing.T) {
	tr := Build([]Entry{{ID: "a/b/c"}, {ID: "a/d"}, {ID: "e"}})
	c, _ := tr.Node("a/b/c")
	d, _ := tr.Node("a/d")
	e, _ := tr.Node("e")

	assert.Equal(t, []string{"a/b/c", "a/b", "a", "a/d"}, childIDs(Path(c, d)))
	assert.Equal(t, []string{"a/d", "a", "", "e"}, childIDs(Path(d, e)))
	assert.Equal(t, []string{"e"}, childIDs(Path(e, e)))

	other := Build([]Entry{{ID: "z"}})
	z, _ := other.Node("z")
	assert.Nil(t, Path(c, z))
}

func TestEachBefore_SkipsSubtree(t *testing.T) {
	tr := Build([]Entry{{ID: "a/b"}, {ID: "c"}})
	var visited []string
	EachBefore(tr.Root, Direct, func(n *Node, depth int) bool {
		visited = append(visited, n.ID)
		return n.ID != "a"
	})
	assert.Equal(t, []string{"", "a", "c"}, visited)
}

func TestBuild_DeepPathsDoNotRecurse(t *testing.T) {
	segments := make([]string, 5000)
	for i := range segments {
		segments[i] = "d"
	}
	id := strings.Join(segments, Separator)
	tr := Build([]Entry{{ID: id}})

	leaf, ok := tr.Node(id)
	require.True(t, ok)
	assert.Equal(t, 5000, leaf.Depth())
	assert.Equal(t, id, Collapsed.ChildrenOf(tr.Root)[0].ID)
}
