package app

import (
	"changeimpact/internal/core/watcher"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanSources_SkipsExcludedAndForeignFiles(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/b.ts", "export const b = 1\n")
	writeSource(t, root, "src/a.tsx", "export const A = () => null\n")
	writeSource(t, root, "src/a.test.ts", "test('a')\n")
	writeSource(t, root, "dist/bundle.js", "var x\n")
	writeSource(t, root, "notes.md", "# notes\n")

	filter, err := watcher.NewFilter([]string{"dist"}, []string{"*.test.ts"}, []string{".ts", ".tsx", ".js"})
	require.NoError(t, err)

	files, err := ScanSources(context.Background(), root, filter)
	require.NoError(t, err)

	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"src/a.tsx", "src/b.ts"}, ids)
	assert.Equal(t, "export const b = 1\n", string(files[1].Text))
}

func TestScanSources_HonorsCancellation(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.ts", "export const a = 1\n")
	filter, err := watcher.NewFilter(nil, nil, []string{".ts"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ScanSources(ctx, root, filter)
	assert.ErrorIs(t, err, context.Canceled)
}
