package main

import (
	"bytes"
	"changeimpact/internal/core/config"
	"changeimpact/internal/core/ports"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for id, text := range files {
		full := filepath.Join(root, filepath.FromSlash(id))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(text), 0o644))
	}
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, rootDir, verbose = "", "", false
	graphJSON, graphTop, graphCycles, graphFrom, graphTo, graphQuery = false, 10, false, "", "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, config.Log{Level: "warn", Format: "json"})
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))

	logger.Warn("hello", "path", "a.ts")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "a.ts", line["path"])

	debug := newLogger(&buf, config.Log{Level: "DEBUG"})
	assert.True(t, debug.Enabled(context.Background(), slog.LevelDebug))
}

func TestGraphCommand_PrintsStats(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/a.ts": "export const a = 1\n",
		"src/b.ts": "import { a } from './a'\n",
		"src/c.ts": "import { a } from '@/a'\n",
	})

	out, err := execute(t, "graph", "--root", root, "--config", filepath.Join(root, "missing.toml"))
	require.NoError(t, err)
	assert.Contains(t, out, "files: 3")
	assert.Contains(t, out, "edges: 2")
	assert.Contains(t, out, "src/a.ts")
}

func TestGraphCommand_CyclesAndChain(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.ts": "import { b } from './b'\n",
		"b.ts": "import { c } from './c'\n",
		"c.ts": "import { a } from './a'\n",
		"d.ts": "import { a } from './a'\n",
	})
	missing := filepath.Join(root, "missing.toml")

	out, err := execute(t, "graph", "--root", root, "--config", missing, "--cycles", "--from", "d.ts", "--to", "c.ts")
	require.NoError(t, err)
	assert.Contains(t, out, "cycles: 1")
	assert.Contains(t, out, "a.ts -> b.ts -> c.ts -> a.ts")
	assert.Contains(t, out, "chain: d.ts -> a.ts -> b.ts -> c.ts")

	_, err = execute(t, "graph", "--root", root, "--config", missing, "--from", "d.ts")
	require.Error(t, err)

	out, err = execute(t, "graph", "--root", root, "--config", missing, "-q", "SELECT files WHERE fan_in = 0")
	require.NoError(t, err)
	assert.Contains(t, out, "d.ts")
	assert.NotContains(t, out, "b.ts")

	_, err = execute(t, "graph", "--root", root, "--config", missing, "-q", "SELECT nothing")
	require.Error(t, err)
}

func TestAnalyzeCommand_PrintsResult(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/a.ts": "export function a() {}\n",
		"src/b.ts": "import { a } from './a'\n",
	})
	cfgPath := filepath.Join(root, config.DefaultFile)
	require.NoError(t, os.WriteFile(cfgPath, []byte("[persistence]\nenabled = false\n"), 0o644))

	out, err := execute(t, "analyze", "src/a.ts", "--config", cfgPath)
	require.NoError(t, err)

	var result ports.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "src/a.ts", result.File)
	assert.Equal(t, []string{"src/b.ts"}, result.AffectedSet.Direct)
	assert.Empty(t, result.DiffStats.BreakingChanges)
}

func TestAnalyzeCommand_MissingFile(t *testing.T) {
	root := writeTree(t, map[string]string{"a.ts": "export const a = 1\n"})
	cfgPath := filepath.Join(root, config.DefaultFile)
	require.NoError(t, os.WriteFile(cfgPath, []byte("[persistence]\nenabled = false\n"), 0o644))

	_, err := execute(t, "analyze", "nope.ts", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestHistoryCommand_ReadsPersistedResults(t *testing.T) {
	root := writeTree(t, map[string]string{"a.ts": "export const a = 1\n"})
	cfgPath := filepath.Join(root, config.DefaultFile)
	require.NoError(t, os.WriteFile(cfgPath, []byte("[persistence]\nflush_interval = \"5ms\"\n"), 0o644))

	_, err := execute(t, "analyze", "a.ts", "--config", cfgPath)
	require.NoError(t, err)

	out, err := execute(t, "history", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "a.ts")
	assert.Contains(t, out, "heuristic")
}
