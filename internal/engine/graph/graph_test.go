package graph

import (
	"changeimpact/internal/engine/parser"
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func src(imports ...string) []byte {
	var b strings.Builder
	for i, imp := range imports {
		fmt.Fprintf(&b, "import m%d from './%s'\n", i, imp)
	}
	return []byte(b.String())
}

func build(t *testing.T, files map[string][]byte) *Graph {
	t.Helper()
	in := make([]SourceFile, 0, len(files))
	for id, text := range files {
		in = append(in, SourceFile{ID: id, Text: text})
	}
	g, err := BuildFull(context.Background(), parser.New(parser.Options{}), in, 4)
	require.NoError(t, err)
	return g
}

func assertInvariant(t *testing.T, g *Graph) {
	t.Helper()
	files := g.Files()
	for a, recA := range files {
		for _, b := range recA.Dependencies {
			recB, ok := files[b]
			require.True(t, ok, "%s depends on untracked %s", a, b)
			assert.Contains(t, recB.Dependents, a, "%s.dependents must contain %s", b, a)
		}
		for _, b := range recA.Dependents {
			recB, ok := files[b]
			require.True(t, ok, "%s has untracked dependent %s", a, b)
			assert.Contains(t, recB.Dependencies, a, "%s.dependencies must contain %s", b, a)
		}
	}
}

func invariantHolds(g *Graph) bool {
	files := g.Files()
	contains := func(list []string, v string) bool {
		for _, x := range list {
			if x == v {
				return true
			}
		}
		return false
	}
	for a, recA := range files {
		for _, b := range recA.Dependencies {
			if recB, ok := files[b]; !ok || !contains(recB.Dependents, a) {
				return false
			}
		}
		for _, b := range recA.Dependents {
			if recB, ok := files[b]; !ok || !contains(recB.Dependencies, a) {
				return false
			}
		}
	}
	return true
}

func TestBuildFull_DerivesReverseEdges(t *testing.T) {
	g := build(t, map[string][]byte{
		"a.ts": src("b"),
		"c.ts": src("b", "d"),
		"b.ts": nil,
		"d.ts": src("react-missing"),
	})

	b, ok := g.File("b.ts")
	require.True(t, ok)
	assert.Equal(t, []string{"a.ts", "c.ts"}, b.Dependents)

	c, _ := g.File("c.ts")
	assert.Equal(t, []string{"b.ts", "d.ts"}, c.Dependencies)
	assert.Equal(t, 3, g.EdgeCount())
	assertInvariant(t, g)
}

func TestUpdateOne_DropsStaleReverseEdges(t *testing.T) {
	g := build(t, map[string][]byte{
		"a.ts": src("b"),
		"b.ts": nil,
		"c.ts": nil,
	})

	next := g.UpdateOne(parser.New(parser.Options{}), "a.ts", src("c"))

	b, _ := next.File("b.ts")
	assert.Empty(t, b.Dependents)
	c, _ := next.File("c.ts")
	assert.Equal(t, []string{"a.ts"}, c.Dependents)
	assertInvariant(t, next)

	old, _ := g.File("b.ts")
	assert.Equal(t, []string{"a.ts"}, old.Dependents, "previous snapshot must be untouched")
}

func TestUpdateOne_NewFileJoinsGraph(t *testing.T) {
	g := build(t, map[string][]byte{"b.ts": nil})
	next := g.UpdateOne(parser.New(parser.Options{}), "a.ts", src("b"))

	require.True(t, next.Has("a.ts"))
	b, _ := next.File("b.ts")
	assert.Equal(t, []string{"a.ts"}, b.Dependents)
	assertInvariant(t, next)
}

func TestUpdateOne_EmptiedFileStaysInGraph(t *testing.T) {
	g := build(t, map[string][]byte{
		"a.ts": src("b"),
		"b.ts": src("c"),
		"c.ts": nil,
	})

	next := g.UpdateOne(parser.New(parser.Options{}), "b.ts", nil)

	require.True(t, next.Has("b.ts"))
	b, _ := next.File("b.ts")
	assert.Empty(t, b.Dependencies)
	assert.Equal(t, []string{"a.ts"}, b.Dependents)
	c, _ := next.File("c.ts")
	assert.Empty(t, c.Dependents)
	assert.Equal(t, g.Len(), next.Len())
	assertInvariant(t, next)
}

func TestInvariant_RandomUpdates(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ids := make([]string, 12)
	for i := range ids {
		ids[i] = fmt.Sprintf("f%02d", i)
	}
	randomImports := func() []string {
		var out []string
		for _, id := range ids {
			if rng.Intn(4) == 0 {
				out = append(out, id)
			}
		}
		return out
	}

	files := make(map[string][]byte, len(ids))
	for _, id := range ids {
		files[id+".ts"] = src(randomImports()...)
	}
	g := build(t, files)
	assertInvariant(t, g)

	p := parser.New(parser.Options{})
	for i := 0; i < 200; i++ {
		id := ids[rng.Intn(len(ids))] + ".ts"
		g = g.UpdateOne(p, id, src(randomImports()...))
		assertInvariant(t, g)
	}
}

func TestStore_ReadersSeeWholeSnapshots(t *testing.T) {
	store := NewStore(parser.New(parser.Options{}), 2)
	_, err := store.Rebuild(context.Background(), []SourceFile{
		{ID: "a.ts", Text: src("b")},
		{ID: "b.ts"},
		{ID: "c.ts"},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if !invariantHolds(store.Snapshot()) {
					t.Error("reader observed a graph violating the reverse-edge invariant")
					return
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		if i%2 == 0 {
			store.Update("a.ts", src("c"))
		} else {
			store.Update("a.ts", src("b"))
		}
	}
	close(stop)
	wg.Wait()

	b, _ := store.Snapshot().File("b.ts")
	assert.Equal(t, []string{"a.ts"}, b.Dependents)
}

func TestBuildFull_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := BuildFull(ctx, parser.New(parser.Options{}), []SourceFile{{ID: "a.ts"}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpdateOne_BindsImportersOfNewFile(t *testing.T) {
	g := build(t, map[string][]byte{"a.ts": src("b")})
	a, _ := g.File("a.ts")
	require.Empty(t, a.Dependencies, "b.ts does not exist yet")

	next := g.UpdateOne(parser.New(parser.Options{}), "b.ts", nil)

	a, _ = next.File("a.ts")
	assert.Equal(t, []string{"b.ts"}, a.Dependencies)
	assert.Equal(t, "b.ts", a.Imports[0].Resolved)
	b, _ := next.File("b.ts")
	assert.Equal(t, []string{"a.ts"}, b.Dependents)
	assertInvariant(t, next)

	old, _ := g.File("a.ts")
	assert.Empty(t, old.Imports[0].Resolved, "previous snapshot must be untouched")
}
