package history

import (
	"changeimpact/internal/core/ports"
	"changeimpact/internal/shared/util"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
	// Fixed width so timestamps order lexically.
	tsLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store persists analysis results in SQLite. It satisfies ports.Sink.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

var _ ports.Sink = (*Store)(nil)

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}
	if err := util.EnsureParentDir(cleanPath); err != nil {
		return nil, fmt.Errorf("create history directory for %q: %w", cleanPath, err)
	}

	// busy_timeout + WAL reduce lock conflicts while readers inspect the file.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Record stores a single result.
func (s *Store) Record(ctx context.Context, result ports.AnalysisResult) error {
	return s.RecordBatch(ctx, []ports.AnalysisResult{result})
}

// RecordBatch stores results in one transaction. Re-recording an id replaces
// the earlier row.
func (s *Store) RecordBatch(ctx context.Context, results []ports.AnalysisResult) error {
	if len(results) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	const query = `
INSERT INTO analysis_results (
  id, file, ts_utc, duration_ms, risk_score, risk_level, payload,
  breaking_count, affected_count, judge_source, content_digest
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  file=excluded.file,
  ts_utc=excluded.ts_utc,
  duration_ms=excluded.duration_ms,
  risk_score=excluded.risk_score,
  risk_level=excluded.risk_level,
  payload=excluded.payload,
  breaking_count=excluded.breaking_count,
  affected_count=excluded.affected_count,
  judge_source=excluded.judge_source,
  content_digest=excluded.content_digest
`
	return s.withRetry("record results", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range results {
			payload, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("encode result %s: %w", r.ID, err)
			}
			if _, err := stmt.ExecContext(ctx,
				r.ID,
				r.File,
				r.Timestamp.UTC().Format(tsLayout),
				r.DurationMs,
				r.RiskScore,
				r.RiskLevel,
				string(payload),
				len(r.DiffStats.BreakingChanges),
				len(r.AffectedSet.Direct)+len(r.AffectedSet.Indirect),
				r.JudgeOutput.Source,
				r.ContentDigest,
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// Recent returns up to limit stored results, newest first. An empty file
// matches every file.
func (s *Store) Recent(ctx context.Context, file string, limit int) ([]ports.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	query := `SELECT payload FROM analysis_results`
	args := make([]any, 0, 2)
	if file != "" {
		query += ` WHERE file = ?`
		args = append(args, file)
	}
	query += ` ORDER BY ts_utc DESC, id DESC LIMIT ?`
	args = append(args, limit)

	var rows *sql.Rows
	err := s.withRetry("load results", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ports.AnalysisResult, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		var r ports.AnalysisResult
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decode result payload: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}
	return out, nil
}

// CountByLevel returns stored result counts keyed by risk level.
func (s *Store) CountByLevel(ctx context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT risk_level, COUNT(*) FROM analysis_results GROUP BY risk_level`)
	if err != nil {
		return nil, fmt.Errorf("count results: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var level string
		var n int
		if err := rows.Scan(&level, &n); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		out[level] = n
	}
	return out, rows.Err()
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
