package snapshot

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depflow/internal/graph"
	"depflow/internal/tree"
)

func size(v float64) *float64 {
	return &v
}

func boolPtr(v bool) *bool {
	return &v
}

func quietController(t *testing.T, opts ...ControllerOption) (*Controller, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	return NewController(DefaultOptions(), append([]ControllerOption{WithLogger(logger)}, opts...)...), &buf
}

func TestController_Scenario(t *testing.T) {
	c, _ := quietController(t)
	st := c.SetState(Partial{
		Links: []Link{{Source: "a", Target: "b"}},
		Modules: map[string]Module{
			"a": {Size: size(10)},
			"b": {Size: size(15)},
		},
		Order: []string{"a", "b"},
	})

	leaves := st.Tree.Leaves()
	require.Len(t, leaves, 2)
	assert.Equal(t, "a", leaves[0].ID)
	assert.Equal(t, "b", leaves[1].ID)
	for _, l := range leaves {
		assert.Same(t, st.Tree.Root, l.Parent)
	}

	assert.ElementsMatch(t, []string{"a", "b"}, st.Affected("a"))
	assert.Equal(t, []DisplayLink{{Source: "a", Target: "b", Chain: []string{"a", "", "b"}}}, st.DisplayLinks)
	assert.Equal(t, 3, st.MaxDistance)
	assert.Same(t, st, c.State())
}

func TestController_MergesPartials(t *testing.T) {
	c, _ := quietController(t)
	c.SetState(Partial{
		Links:   []Link{{"x/a", "x/b"}},
		Modules: map[string]Module{"x/a": {}, "x/b": {}},
	})

	st := c.SetState(Partial{Options: &OptionsPatch{Collapse: boolPtr(true)}})
	assert.True(t, st.Options.Collapse)
	assert.True(t, st.Options.Animate, "unset option fields keep their value")
	assert.Equal(t, 0.8, st.Options.Tension)
	assert.Len(t, st.Links, 1, "links survive an options-only update")
	assert.Equal(t, uint64(2), st.Version)

	kids := st.Children.ChildrenOf(st.Tree.Root)
	require.Len(t, kids, 1)
	assert.Equal(t, "x", kids[0].ID, "x has two children so nothing is skipped")

	st = c.SetState(Partial{Links: []Link{}})
	assert.Empty(t, st.Links)
	assert.Len(t, st.Modules, 2)
	assert.Equal(t, []string{"x/a"}, st.Forward("x/a"))
}

func TestController_CollapseAccessor(t *testing.T) {
	c, _ := quietController(t)
	st := c.SetState(Partial{
		Modules: map[string]Module{"root/x/y/leaf": {}},
		Options: &OptionsPatch{Collapse: boolPtr(true)},
	})

	kids := st.Children.ChildrenOf(st.Tree.Root)
	require.Len(t, kids, 1)
	assert.Equal(t, "root/x/y/leaf", kids[0].ID)

	for _, id := range []string{"root", "root/x", "root/x/y"} {
		_, ok := st.Tree.Node(id)
		assert.True(t, ok, id)
	}

	view := st.View()
	require.Len(t, view.Children, 1)
	assert.Equal(t, "root/x/y/leaf", view.Children[0].Label)

	st = c.SetState(Partial{Options: &OptionsPatch{Collapse: boolPtr(false)}})
	assert.Equal(t, "root", st.Children.ChildrenOf(st.Tree.Root)[0].ID)
}

func TestController_TableForm(t *testing.T) {
	c, _ := quietController(t)
	st := c.Apply(&Document{Table: []Relation{
		{Source: "a/b", Target: "a/c", Size: size(42)},
		{Source: "a/c", Target: "d"},
	}}, "test")

	b, ok := st.Tree.Node("a/b")
	require.True(t, ok)
	assert.Equal(t, []string{"a/c"}, b.Imports)
	assert.Equal(t, []string{"a/b", "a/c", "d"}, st.Forward("a/b"))
	assert.Len(t, st.DisplayLinks, 2)
	assert.True(t, st.Document().IsTable())

	st = c.Apply(&Document{Snapshot: &Snapshot{Modules: map[string]Module{"z": {}}}}, "test")
	assert.Nil(t, st.Table)
	_, ok = st.Tree.Node("a/b")
	assert.False(t, ok, "a new snapshot replaces the previous one")
}

func TestController_SkipsUnknownLinks(t *testing.T) {
	c, logs := quietController(t)
	st := c.SetState(Partial{
		Links: []Link{
			{"a", "ghost"},
			{"a", "b"},
		},
		Modules: map[string]Module{"a": {}, "b": {}},
	})

	assert.Equal(t, 1, st.Skipped)
	require.Len(t, st.DisplayLinks, 1)
	assert.Equal(t, "b", st.DisplayLinks[0].Target)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "target=ghost")

	assert.Equal(t, []string{"a", "ghost", "b"}, st.Forward("a"), "reachability still sees the edge")
}

func TestController_OldStateStaysFrozen(t *testing.T) {
	c, _ := quietController(t)
	first := c.SetState(Partial{Links: []Link{{"a", "b"}}, Modules: map[string]Module{"a": {}, "b": {}}})
	second := c.SetState(Partial{Links: []Link{{"b", "c"}}, Modules: map[string]Module{"b": {}, "c": {}}})

	assert.Equal(t, []string{"a", "b"}, first.Forward("a"))
	_, ok := first.Tree.Node("a")
	assert.True(t, ok)
	assert.Equal(t, []string{"a"}, second.Forward("a"))
	assert.NotSame(t, first.Graph, second.Graph)
}

func TestState_QueryCache(t *testing.T) {
	c, _ := quietController(t, WithCacheSize(8))
	st := c.SetState(Partial{Links: []Link{{"a", "b"}, {"b", "c"}}, Modules: map[string]Module{}})

	first, err := st.Query(graph.DirectionForward, "a")
	require.NoError(t, err)
	first[0] = "mutated"

	second, err := st.Query(graph.DirectionForward, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, second, "callers get their own copy")

	_, err = st.Query(graph.Direction("up"), "a")
	assert.ErrorIs(t, err, graph.ErrUnknownDirection)

	uncached, _ := quietController(t, WithCacheSize(0))
	st = uncached.SetState(Partial{Links: []Link{{"a", "b"}}})
	assert.Equal(t, []string{"a", "b"}, st.Forward("a"))
}

func TestController_Subscribe(t *testing.T) {
	c, _ := quietController(t)
	ch, stop := c.Subscribe()

	c.SetState(Partial{Modules: map[string]Module{"a": {}}})
	latest := c.SetState(Partial{Modules: map[string]Module{"b": {}}})

	got := <-ch
	assert.Same(t, latest, got, "a slow subscriber only sees the newest state")

	stop()
	stop()
	_, open := <-ch
	assert.False(t, open)

	c.SetState(Partial{Modules: map[string]Module{"c": {}}})
}

func TestController_ConcurrentReaders(t *testing.T) {
	c, _ := quietController(t)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				st := c.State()
				// A published state is always complete.
				if !assert.NotNil(t, st.Tree) || !assert.NotNil(t, st.Graph) {
					return
				}
				for _, l := range st.DisplayLinks {
					_, ok := st.Tree.Node(l.Source)
					assert.True(t, ok)
				}
				st.Affected("m/a")
			}
		}()
	}
	for i := 0; i < 50; i++ {
		c.SetState(Partial{
			Links:   []Link{{"m/a", "m/b"}},
			Modules: map[string]Module{"m/a": {}, "m/b": {}},
		})
	}
	wg.Wait()
}

func TestState_Focus(t *testing.T) {
	c, _ := quietController(t)
	st := c.SetState(Partial{
		Links: []Link{
			{"src/app/main", "src/lib/util"},
			{"src/lib/util", "vendor/x"},
			{"srcx/other", "vendor/x"},
		},
		Modules: map[string]Module{
			"src/app/main": {}, "src/lib/util": {}, "vendor/x": {}, "srcx/other": {},
		},
		Order: []string{"src/app/main", "src/lib/util", "vendor/x", "srcx/other"},
	})

	all := st.Focus(tree.RootID)
	assert.Len(t, all.Links, 3)
	assert.Empty(t, all.Highlight)

	app := st.Focus("src/app")
	require.Len(t, app.Links, 1)
	assert.Equal(t, []string{"src/app/main", "src/app", "src", "src/lib", "src/lib/util"}, app.Highlight)

	src := st.Focus("src")
	assert.Len(t, src.Links, 2, "srcx is not inside src")

	none := st.Focus("nothing")
	assert.Empty(t, none.Links)
}

func TestPartialFromDocument(t *testing.T) {
	p := PartialFromDocument(&Document{Snapshot: &Snapshot{}}, "file")
	assert.NotNil(t, p.Links)
	assert.NotNil(t, p.Modules)
	assert.Equal(t, "file", p.Source)

	p = PartialFromDocument(&Document{Table: []Relation{}}, "file")
	assert.NotNil(t, p.Table)
	assert.Nil(t, p.Links)
}

func TestState_DocumentRoundTrip(t *testing.T) {
	c, _ := quietController(t)
	doc, err := Decode(strings.NewReader(objectJSON), FormatJSON)
	require.NoError(t, err)
	st := c.Apply(doc, "test")

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, st.Document(), FormatJSON))
	again, err := Decode(&buf, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, doc.Snapshot.Order, again.Snapshot.Order)
}
