package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePatternPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty", input: "", expected: ""},
		{name: "Dot", input: ".", expected: ""},
		{name: "Trim", input: "  ./foo/bar  ", expected: "foo/bar"},
		{name: "Relative", input: "foo/../bar", expected: "bar"},
		{name: "Backslash", input: `src\app.ts`, expected: "src/app.ts"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, NormalizePatternPath(tc.input))
		})
	}
}

func TestFileID(t *testing.T) {
	root := t.TempDir()

	id, err := FileID(root, filepath.Join(root, "src", "app.ts"))
	require.NoError(t, err)
	assert.Equal(t, "src/app.ts", id)

	id, err = FileID(root, "src/./lib/../app.ts")
	require.NoError(t, err)
	assert.Equal(t, "src/app.ts", id)

	_, err = FileID(root, "../outside.ts")
	assert.Error(t, err)

	_, err = FileID(root, root)
	assert.Error(t, err)
}

func TestEnsureParentDir(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "deeper", "history.db")
	require.NoError(t, EnsureParentDir(path))

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.NoError(t, EnsureParentDir("history.db"))
}
