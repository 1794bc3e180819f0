package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportanceScore(t *testing.T) {
	assert.Equal(t, 0.0, ImportanceScore(0, 0, 0, "src/util.ts"))
	assert.Equal(t, 7.5, ImportanceScore(2, 2, 3, "src/util.ts"))
	assert.Equal(t, 10.0, ImportanceScore(0, 0, 0, "src/api/client.ts"))
	assert.Equal(t, 11.0, ImportanceScore(0, 1, 0, "src/UserService.ts"))
}

func TestTopImportance(t *testing.T) {
	g := build(t, map[string][]byte{
		"core.ts": nil,
		"a.ts":    src("core"),
		"b.ts":    src("core"),
		"c.ts":    src("core", "a"),
	})

	top := g.TopImportance(2)
	require.Len(t, top, 2)
	assert.Equal(t, FileImportance{File: "core.ts", FanIn: 3, FanOut: 0, Score: 6}, top[0])
	assert.Equal(t, "a.ts", top[1].File)
	assert.Equal(t, 3.0, top[1].Score)

	assert.Len(t, g.TopImportance(-1), 4)
	assert.Empty(t, Empty().TopImportance(5))
}
