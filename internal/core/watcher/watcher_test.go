package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFilter(t *testing.T) *Filter {
	t.Helper()
	f, err := NewFilter([]string{"node_modules", "exclude_dir"}, []string{"*.test.ts"}, []string{".ts", ".tsx"})
	require.NoError(t, err)
	return f
}

func startWatcher(t *testing.T, dir string) <-chan []string {
	t.Helper()
	changed := make(chan []string, 10)
	w, err := NewWatcher(50*time.Millisecond, newFilter(t), func(paths []string) {
		changed <- paths
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	require.NoError(t, w.Watch([]string{dir}))
	return changed
}

func expectPaths(t *testing.T, changed <-chan []string, want string) {
	t.Helper()
	select {
	case paths := <-changed:
		assert.Contains(t, paths, want)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for change to %s", want)
	}
}

func expectQuiet(t *testing.T, changed <-chan []string) {
	t.Helper()
	select {
	case paths := <-changed:
		t.Errorf("unexpected change batch %v", paths)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNewWatcher_RejectsNilArguments(t *testing.T) {
	_, err := NewWatcher(time.Millisecond, nil, func([]string) {})
	assert.ErrorIs(t, err, os.ErrInvalid)
	_, err = NewWatcher(time.Millisecond, newFilter(t), nil)
	assert.ErrorIs(t, err, os.ErrInvalid)
}

func TestWatcher_ReportsSourceChanges(t *testing.T) {
	dir := t.TempDir()
	changed := startWatcher(t, dir)

	file := filepath.Join(dir, "app.ts")
	require.NoError(t, os.WriteFile(file, []byte("export const a = 1"), 0o644))
	expectPaths(t, changed, file)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.test.ts"), []byte("x"), 0o644))
	expectQuiet(t, changed)
}

func TestWatcher_SuppressesIdenticalWrites(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.ts")
	content := []byte("export const a = 1")
	require.NoError(t, os.WriteFile(file, content, 0o644))

	changed := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(file, content, 0o644))
	expectQuiet(t, changed)

	require.NoError(t, os.WriteFile(file, []byte("export const a = 2"), 0o644))
	expectPaths(t, changed, file)
}

func TestWatcher_ReportsDeletion(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.ts")
	require.NoError(t, os.WriteFile(file, []byte("export const a = 1"), 0o644))

	changed := startWatcher(t, dir)
	require.NoError(t, os.Remove(file))
	expectPaths(t, changed, file)
}

func TestWatcher_FollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()
	changed := startWatcher(t, dir)

	sub := filepath.Join(dir, "feature")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(100 * time.Millisecond)

	file := filepath.Join(sub, "page.tsx")
	require.NoError(t, os.WriteFile(file, []byte("export default function Page() {}"), 0o644))
	expectPaths(t, changed, file)
}

func TestFilter(t *testing.T) {
	f := newFilter(t)

	assert.True(t, f.IncludeFile("src/app.ts"))
	assert.True(t, f.IncludeFile("src/App.TSX"))
	assert.False(t, f.IncludeFile("src/app.js"), "extension not tracked")
	assert.False(t, f.IncludeFile("src/app.test.ts"))
	assert.True(t, f.ExcludeDir("/repo/node_modules"))
	assert.False(t, f.ExcludeDir("/repo/src"))

	_, err := NewFilter([]string{"["}, nil, nil)
	assert.Error(t, err)
}
