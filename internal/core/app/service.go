package app

import (
	apperrors "changeimpact/internal/core/errors"
	"changeimpact/internal/core/ports"
	"changeimpact/internal/data/query"
	"changeimpact/internal/engine/graph"
	"changeimpact/internal/engine/parser"
	"changeimpact/internal/shared/observability"
	"context"
	"path"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// AnalysisService is the read and trigger surface over one App. The HTTP
// layer and the CLI go through it rather than touching the pipeline state.
type AnalysisService struct {
	app *App
}

func NewAnalysisService(app *App) *AnalysisService {
	return &AnalysisService{app: app}
}

func (a *App) AnalysisService() *AnalysisService {
	return NewAnalysisService(a)
}

// Dependencies returns every record in the current graph keyed by file id.
func (s *AnalysisService) Dependencies(ctx context.Context) map[string]*parser.FileRecord {
	_, span := observability.StartSpan(ctx, "service.dependencies")
	defer span.End()
	return s.app.Graph.Snapshot().Files()
}

func (s *AnalysisService) Dependency(ctx context.Context, file string) (*parser.FileRecord, error) {
	_, span := observability.StartSpan(ctx, "service.dependency", attribute.String("file", file))
	defer span.End()

	id, err := normalizeFileID(file)
	if err != nil {
		return nil, err
	}
	rec, ok := s.app.Graph.Snapshot().File(id)
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "file not in graph: "+id)
	}
	return rec, nil
}

// Affected resolves the impact of a change to file. A file the graph does
// not know yields an empty set.
func (s *AnalysisService) Affected(ctx context.Context, file string) (graph.AffectedSet, error) {
	_, span := observability.StartSpan(ctx, "service.affected", attribute.String("file", file))
	defer span.End()

	id, err := normalizeFileID(file)
	if err != nil {
		return graph.AffectedSet{}, err
	}
	return s.app.Graph.Snapshot().ResolveAffected(id), nil
}

// Query runs a `SELECT files [WHERE ...]` statement against the current graph.
func (s *AnalysisService) Query(ctx context.Context, raw string, limit int) ([]graph.FileImportance, error) {
	_, span := observability.StartSpan(ctx, "service.query", attribute.String("query", raw))
	defer span.End()

	q, err := query.ParseCQL(raw)
	if err != nil {
		return nil, apperrors.New(apperrors.CodeValidationError, err.Error())
	}
	return query.Execute(s.app.Graph.Snapshot(), q, limit), nil
}

func (s *AnalysisService) Analyze(ctx context.Context, file string) (ports.AnalysisResult, error) {
	return s.app.Pipeline.AnalyzePath(ctx, file)
}

func (s *AnalysisService) BuildGraph(ctx context.Context) (RebuildStats, error) {
	return s.app.Pipeline.Rebuild(ctx)
}

func (s *AnalysisService) History(limit int) []ports.AnalysisResult {
	return s.app.Pipeline.State().History.List(limit)
}

func (s *AnalysisService) RiskSummary() RiskSummary {
	return s.app.Pipeline.State().History.Summary()
}

func (s *AnalysisService) Health() HealthStatus {
	return s.app.Health()
}

// StoredHistory reads persisted results, newest first. An empty file matches
// every file.
func (s *AnalysisService) StoredHistory(ctx context.Context, file string, limit int) ([]ports.AnalysisResult, error) {
	if s.app.Results == nil {
		return nil, apperrors.New(apperrors.CodeUnavailable, "persistence is disabled")
	}
	if file != "" {
		id, err := normalizeFileID(file)
		if err != nil {
			return nil, err
		}
		file = id
	}
	results, err := s.app.Results.Recent(ctx, file, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "load stored history")
	}
	return results, nil
}

// normalizeFileID turns a URL path parameter into a graph file id.
func normalizeFileID(file string) (string, error) {
	trimmed := strings.TrimSpace(strings.ReplaceAll(file, "\\", "/"))
	id := strings.TrimPrefix(path.Clean("/"+trimmed), "/")
	if trimmed == "" || id == "" {
		return "", apperrors.New(apperrors.CodeValidationError, "file is required")
	}
	return id, nil
}
