package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNameStatus(t *testing.T) {
	output := []byte("M\tsrc/app.js\nA\tsrc/new.js\nD\told/gone.go\nR087\tsrc/a.ts\tsrc/b.ts\n\n")

	changes, err := parseNameStatus(output)
	require.NoError(t, err)
	require.Len(t, changes, 4)

	assert.Equal(t, ChangedFile{Path: "src/app.js", Status: "M"}, changes[0])
	assert.Equal(t, ChangedFile{Path: "old/gone.go", Status: "D"}, changes[2])
	assert.Equal(t, ChangedFile{Path: "src/b.ts", Status: "R", OldPath: "src/a.ts"}, changes[3])

	assert.Equal(t, []string{"src/app.js", "src/new.js", "old/gone.go", "src/a.ts", "src/b.ts"}, Paths(changes))
}

func TestParseNameStatus_Malformed(t *testing.T) {
	_, err := parseNameStatus([]byte("M src/app.js\n"))
	assert.Error(t, err)

	_, err = parseNameStatus([]byte("R100\tonly-one\n"))
	assert.Error(t, err)
}
