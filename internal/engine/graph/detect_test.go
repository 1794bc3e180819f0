package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectCycles(t *testing.T) {
	g := build(t, map[string][]byte{
		"a.ts": src("b"),
		"b.ts": src("c"),
		"c.ts": src("a"),
		"d.ts": src("a"),
		"e.ts": src("e"),
	})

	cycles := g.DetectCycles()
	require.Len(t, cycles, 1, "a self-import is not an edge")
	assert.Equal(t, []string{"a.ts", "b.ts", "c.ts"}, cycles[0])
}

func TestDetectCycles_Acyclic(t *testing.T) {
	g := build(t, map[string][]byte{
		"a.ts": src("b", "c"),
		"b.ts": src("c"),
		"c.ts": nil,
	})
	assert.Empty(t, g.DetectCycles())
}

func TestFindImportChain(t *testing.T) {
	g := build(t, map[string][]byte{
		"app.ts":   src("page", "util"),
		"page.ts":  src("list"),
		"list.ts":  src("util"),
		"util.ts":  nil,
		"other.ts": nil,
	})

	chain, ok := g.FindImportChain("app.ts", "list.ts")
	require.True(t, ok)
	assert.Equal(t, []string{"app.ts", "page.ts", "list.ts"}, chain)

	chain, ok = g.FindImportChain("app.ts", "util.ts")
	require.True(t, ok)
	assert.Equal(t, []string{"app.ts", "util.ts"}, chain)

	chain, ok = g.FindImportChain("util.ts", "util.ts")
	require.True(t, ok)
	assert.Equal(t, []string{"util.ts"}, chain)

	_, ok = g.FindImportChain("util.ts", "app.ts")
	assert.False(t, ok, "chains follow import direction")
	_, ok = g.FindImportChain("app.ts", "other.ts")
	assert.False(t, ok)
	_, ok = g.FindImportChain("missing.ts", "app.ts")
	assert.False(t, ok)
}
