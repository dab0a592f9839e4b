package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const objectJSON = `{
  "links": [["src/app.js", "src/util.js"], {"source": "src/app.js", "target": "lib/x.js"}],
  "modules": {
    "src/util.js": {"size": 15, "owner": "core"},
    "src/app.js": {"size": 10},
    "lib/x.js": {}
  }
}`

func TestDecode_ObjectJSON(t *testing.T) {
	doc, err := Decode(strings.NewReader(objectJSON), FormatJSON)
	require.NoError(t, err)
	require.False(t, doc.IsTable())

	s := doc.Snapshot
	assert.Equal(t, []Link{
		{Source: "src/app.js", Target: "src/util.js"},
		{Source: "src/app.js", Target: "lib/x.js"},
	}, s.Links)
	assert.Equal(t, []string{"src/util.js", "src/app.js", "lib/x.js"}, s.Order)

	util := s.Modules["src/util.js"]
	require.NotNil(t, util.Size)
	assert.Equal(t, 15.0, *util.Size)
	assert.Equal(t, "core", util.Meta["owner"])
	assert.Nil(t, s.Modules["lib/x.js"].Size)
}

func TestDecode_TableJSON(t *testing.T) {
	doc, err := Decode(strings.NewReader(`[["a/b", "a/c", 42], ["a/c", "d"], ["d", "e", null]]`), FormatJSON)
	require.NoError(t, err)
	require.True(t, doc.IsTable())
	require.Len(t, doc.Table, 3)

	require.NotNil(t, doc.Table[0].Size)
	assert.Equal(t, 42.0, *doc.Table[0].Size)
	assert.Nil(t, doc.Table[1].Size)
	assert.Nil(t, doc.Table[2].Size)
}

func TestDecode_YAML(t *testing.T) {
	t.Run("object form", func(t *testing.T) {
		src := `
links:
  - [a, b]
  - source: b
    target: c
modules:
  b: {size: 15}
  a: {size: 10, team: web}
  c: {}
`
		doc, err := Decode(strings.NewReader(src), FormatYAML)
		require.NoError(t, err)
		s := doc.Snapshot
		require.NotNil(t, s)
		assert.Equal(t, []string{"b", "a", "c"}, s.Order)
		assert.Equal(t, []Link{{"a", "b"}, {"b", "c"}}, s.Links)
		require.NotNil(t, s.Modules["a"].Size)
		assert.Equal(t, 10.0, *s.Modules["a"].Size)
		assert.Equal(t, "web", s.Modules["a"].Meta["team"])
	})

	t.Run("table form", func(t *testing.T) {
		doc, err := Decode(strings.NewReader("- [a/b, a/c, 42]\n- [a/c, d]\n"), FormatYAML)
		require.NoError(t, err)
		require.True(t, doc.IsTable())
		assert.Equal(t, "a/c", doc.Table[0].Target)
		require.NotNil(t, doc.Table[0].Size)
		assert.Equal(t, 42.0, *doc.Table[0].Size)
	})
}

func TestDecode_Invalid(t *testing.T) {
	for name, tc := range map[string]struct {
		body   string
		format Format
	}{
		"empty json":      {"  ", FormatJSON},
		"scalar json":     {`"nope"`, FormatJSON},
		"short link":      {`{"links": [["a"]]}`, FormatJSON},
		"short relation":  {`[["a"]]`, FormatJSON},
		"scalar yaml":     {"hello", FormatYAML},
		"bad yaml module": {"modules:\n  a: [1, 2]\n", FormatYAML},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.body), tc.format)
			assert.Error(t, err)
		})
	}

	_, err := Decode(strings.NewReader(`[["a"]]`), FormatJSON)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestEncode_KeepsModuleOrder(t *testing.T) {
	doc, err := Decode(strings.NewReader(objectJSON), FormatJSON)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc, FormatJSON))
	out := buf.String()
	assert.Less(t, strings.Index(out, `"src/util.js": {`), strings.Index(out, `"src/app.js": {`))

	again, err := Decode(&buf, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, doc.Snapshot.Order, again.Snapshot.Order)
	assert.Equal(t, doc.Snapshot.Links, again.Snapshot.Links)

	var yamlBuf bytes.Buffer
	require.NoError(t, Encode(&yamlBuf, doc, FormatYAML))
	fromYAML, err := Decode(&yamlBuf, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, doc.Snapshot.Order, fromYAML.Snapshot.Order)
	assert.Equal(t, "core", fromYAML.Snapshot.Modules["src/util.js"].Meta["owner"])
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deps.yml")
	require.NoError(t, os.WriteFile(path, []byte("links: [[a, b]]\nmodules: {a: {size: 1}, b: {}}\n"), 0o644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, doc.Snapshot.Modules, 2)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("x.YAML"))
	assert.Equal(t, FormatYAML, FormatFromPath("x.yml"))
	assert.Equal(t, FormatJSON, FormatFromPath("x.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("x"))
}
