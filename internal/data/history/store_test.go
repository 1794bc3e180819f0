package history

import (
	"changeimpact/internal/core/ports"
	"changeimpact/internal/engine/diff"
	"changeimpact/internal/engine/graph"
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func result(id, file string, ts time.Time, score int, level string) ports.AnalysisResult {
	affected := graph.EmptyAffectedSet()
	affected.Direct = []string{"b.ts"}
	return ports.AnalysisResult{
		ID:          id,
		File:        file,
		Timestamp:   ts,
		DurationMs:  12,
		AffectedSet: affected,
		JudgeOutput: ports.JudgeOutput{Summary: "s", Source: "heuristic"},
		RiskScore:   score,
		RiskLevel:   level,
		DiffStats: ports.DiffStats{
			Added:           3,
			BreakingChanges: []diff.BreakingChange{{Kind: diff.RemovedExport, Name: "foo", Severity: diff.SeverityHigh}},
		},
		ContentDigest: "abc",
	}
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, result("1", "a.ts", base, 2, "low")))
	require.NoError(t, store.RecordBatch(ctx, []ports.AnalysisResult{
		result("2", "b.ts", base.Add(time.Minute), 8, "high"),
		result("3", "a.ts", base.Add(2*time.Minute), 5, "medium"),
	}))

	all, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"3", "2", "1"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "heuristic", all[0].JudgeOutput.Source)
	assert.Equal(t, []string{"b.ts"}, all[0].AffectedSet.Direct)
	assert.True(t, all[0].Timestamp.Equal(base.Add(2*time.Minute)))

	onlyA, err := store.Recent(ctx, "a.ts", 1)
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	assert.Equal(t, "3", onlyA[0].ID)

	counts, err := store.CountByLevel(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"low": 1, "medium": 1, "high": 1}, counts)
}

func TestStore_RecordReplacesSameID(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Record(ctx, result("1", "a.ts", now, 2, "low")))
	require.NoError(t, store.Record(ctx, result("1", "a.ts", now, 9, "high")))

	got, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 9, got[0].RiskScore)
}

func TestStore_ReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(context.Background(), result("1", "a.ts", time.Now(), 1, "low")))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	var version int
	require.NoError(t, store.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version))
	assert.Equal(t, SchemaVersion, version)

	got, err := store.Recent(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestEnsureSchema_FreshDatabaseIsSingleVersion(t *testing.T) {
	db, err := sql.Open(driverName, filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, EnsureSchema(db))
	require.NoError(t, EnsureSchema(db))

	var versions []int
	rows, err := db.Query(`SELECT version FROM schema_migrations ORDER BY version`)
	require.NoError(t, err)
	for rows.Next() {
		var v int
		require.NoError(t, rows.Scan(&v))
		versions = append(versions, v)
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())
	assert.Equal(t, []int{1}, versions)

	columns := make(map[string]bool)
	rows, err = db.Query(`SELECT name FROM pragma_table_info('analysis_results')`)
	require.NoError(t, err)
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		columns[name] = true
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())
	for _, want := range []string{"breaking_count", "affected_count", "judge_source", "content_digest", "payload"} {
		assert.True(t, columns[want], want)
	}

	var indexes int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_analysis_results_level'`).Scan(&indexes))
	assert.Equal(t, 1, indexes)
}

func TestEnsureSchema_RejectsNewerVersion(t *testing.T) {
	db, err := sql.Open(driverName, filepath.Join(t.TempDir(), "future.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, EnsureSchema(db))
	_, err = db.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1)
	require.NoError(t, err)
	assert.Error(t, EnsureSchema(db))
}

func TestOpen_RejectsBadPaths(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
	_, err = Open(t.TempDir())
	assert.Error(t, err)
}
