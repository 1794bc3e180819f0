package app

import (
	"changeimpact/internal/core/config"
	apperrors "changeimpact/internal/core/errors"
	"changeimpact/internal/core/ports"
	"changeimpact/internal/core/watcher"
	"changeimpact/internal/data/queue"
	"changeimpact/internal/engine/diff"
	"changeimpact/internal/engine/graph"
	"changeimpact/internal/engine/risk"
	"changeimpact/internal/shared/observability"
	"changeimpact/internal/shared/util"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel/attribute"
)

// PipelineState is the mutable state one Orchestrator owns: the graph store,
// the diff baselines, the result history and the single-flight slot.
type PipelineState struct {
	Graph   *graph.Store
	Cache   *ContentCache
	History *History
	running chan struct{}
}

func NewPipelineState(store *graph.Store, historyCapacity int) *PipelineState {
	return &PipelineState{
		Graph:   store,
		Cache:   NewContentCache(),
		History: NewHistory(historyCapacity),
		running: make(chan struct{}, 1),
	}
}

func (s *PipelineState) tryAcquire() bool {
	select {
	case s.running <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *PipelineState) acquire(ctx context.Context) error {
	select {
	case s.running <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *PipelineState) release() {
	<-s.running
}

// Busy reports whether a pipeline run is in progress.
func (s *PipelineState) Busy() bool {
	return len(s.running) > 0
}

type OrchestratorOptions struct {
	Root          string
	Filter        *watcher.Filter
	BusyPolicy    string
	QueueCapacity int
	Judge         ports.Judge
	Scorer        risk.Scorer
	Publisher     ports.Publisher
	Sink          ports.Sink
}

// Orchestrator drives one change event at a time through parse, graph
// update, impact resolution, judging, and publishing.
type Orchestrator struct {
	root      string
	filter    *watcher.Filter
	policy    string
	state     *PipelineState
	judge     ports.Judge
	scorer    risk.Scorer
	publisher ports.Publisher
	sink      ports.Sink
	pending   *queue.CoalescingQueue[time.Time]

	lifetime context.Context
	stop     context.CancelFunc
	inflight sync.WaitGroup
}

func NewOrchestrator(state *PipelineState, opts OrchestratorOptions) *Orchestrator {
	if opts.Scorer == nil {
		opts.Scorer = risk.Heuristic{}
	}
	if opts.Publisher == nil {
		opts.Publisher = ports.NopPublisher{}
	}
	if opts.Sink == nil {
		opts.Sink = ports.NopSink{}
	}
	if opts.BusyPolicy == "" {
		opts.BusyPolicy = config.BusyCoalesce
	}
	lifetime, stop := context.WithCancel(context.Background())
	return &Orchestrator{
		root:      opts.Root,
		filter:    opts.Filter,
		policy:    opts.BusyPolicy,
		state:     state,
		judge:     opts.Judge,
		scorer:    opts.Scorer,
		publisher: opts.Publisher,
		sink:      opts.Sink,
		pending:   queue.NewCoalescingQueue[time.Time](opts.QueueCapacity),
		lifetime:  lifetime,
		stop:      stop,
	}
}

func (o *Orchestrator) State() *PipelineState {
	return o.state
}

func (o *Orchestrator) Root() string {
	return o.root
}

// AnalyzePath validates a caller-supplied path and analyzes it. The file must
// exist; deletions reach the pipeline only through change events.
func (o *Orchestrator) AnalyzePath(ctx context.Context, path string) (ports.AnalysisResult, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return ports.AnalysisResult{}, apperrors.New(apperrors.CodeValidationError, "file is required")
	}
	id, err := util.FileID(o.root, path)
	if err != nil {
		return ports.AnalysisResult{}, apperrors.Wrap(err, apperrors.CodeValidationError, "invalid file")
	}
	info, err := os.Stat(filepath.Join(o.root, filepath.FromSlash(id)))
	if errors.Is(err, fs.ErrNotExist) {
		return ports.AnalysisResult{}, apperrors.New(apperrors.CodeNotFound, "file not found: "+id)
	}
	if err == nil && info.IsDir() {
		return ports.AnalysisResult{}, apperrors.New(apperrors.CodeValidationError, id+" is a directory")
	}
	return o.Analyze(ctx, id)
}

// Analyze runs the pipeline for id immediately. When another run holds the
// pipeline it fails with CONFLICT instead of waiting.
func (o *Orchestrator) Analyze(ctx context.Context, id string) (ports.AnalysisResult, error) {
	if !o.state.tryAcquire() {
		return ports.AnalysisResult{}, apperrors.New(apperrors.CodeConflict, "an analysis is already in progress")
	}
	defer o.state.release()
	return o.execute(ctx, id)
}

// HandleChanges is the file-change source callback. Paths outside the
// project root are ignored.
func (o *Orchestrator) HandleChanges(paths []string) {
	for _, path := range paths {
		id, err := util.FileID(o.root, path)
		if err != nil {
			slog.Debug("ignoring change outside project root", "path", path)
			continue
		}
		o.Submit(id)
	}
}

// Submit hands a change event to the pipeline according to the busy policy.
// It never blocks on a running analysis.
func (o *Orchestrator) Submit(id string) {
	if o.policy == config.BusyDrop {
		if !o.state.tryAcquire() {
			observability.EventsDroppedTotal.Inc()
			slog.Debug("pipeline busy, change dropped", "path", id)
			return
		}
		o.inflight.Add(1)
		go func() {
			defer o.inflight.Done()
			defer o.state.release()
			_, _ = o.execute(o.lifetime, id)
		}()
		return
	}

	switch o.pending.Push(id, time.Now()) {
	case queue.EnqueueCoalesced:
		observability.EventsCoalescedTotal.Inc()
		slog.Debug("change coalesced with pending event", "path", id)
	case queue.EnqueueDropped:
		observability.EventsDroppedTotal.Inc()
		slog.Warn("change queue full, change dropped", "path", id)
	}
}

// Run serves queued change events one at a time until ctx ends or Close is
// called. Under the drop policy there is no queue and Run only waits.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.policy == config.BusyDrop {
		select {
		case <-ctx.Done():
		case <-o.lifetime.Done():
		}
		return nil
	}
	for {
		id, queuedAt, err := o.pending.Pop(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := o.runQueued(ctx, id, queuedAt); err != nil {
			return nil
		}
	}
}

// runQueued holds the single-flight slot for exactly one queued event.
func (o *Orchestrator) runQueued(ctx context.Context, id string, queuedAt time.Time) error {
	if err := o.state.acquire(ctx); err != nil {
		return err
	}
	defer o.state.release()
	slog.Debug("processing queued change", "path", id, "waited", time.Since(queuedAt))
	_, _ = o.execute(ctx, id)
	return nil
}

// Close stops accepting events and waits for detached runs to finish.
func (o *Orchestrator) Close() {
	_ = o.pending.Close()
	o.stop()
	o.inflight.Wait()
}

type RebuildStats struct {
	FileCount  int   `json:"fileCount"`
	DurationMs int64 `json:"durationMs"`
}

// Rebuild rescans the project and replaces the graph. Baselines and history
// are kept.
func (o *Orchestrator) Rebuild(ctx context.Context) (RebuildStats, error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "pipeline.rebuild")
	defer span.End()

	files, err := ScanSources(ctx, o.root, o.filter)
	if err != nil {
		observability.RecordError(span, err)
		return RebuildStats{}, apperrors.AddContext(apperrors.Wrap(err, apperrors.CodeInternal, "scan sources"), apperrors.CtxStep, "scan")
	}
	g, err := o.state.Graph.Rebuild(ctx, files)
	if err != nil {
		observability.RecordError(span, err)
		return RebuildStats{}, apperrors.AddContext(apperrors.Wrap(err, apperrors.CodeInternal, "build graph"), apperrors.CtxStep, "parse")
	}
	stats := RebuildStats{FileCount: g.Len(), DurationMs: time.Since(start).Milliseconds()}
	slog.Info("dependency graph built", "files", stats.FileCount, "edges", g.EdgeCount(), "duration_ms", stats.DurationMs)
	return stats, nil
}

// execute runs one event under the held single-flight slot. Any panic is
// converted into an INTERNAL_ERROR and an error envelope.
func (o *Orchestrator) execute(ctx context.Context, id string) (result ports.AnalysisResult, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "pipeline.analyze", attribute.String("file", id))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline panic", "path", id, "panic", r, "stack", string(debug.Stack()))
			err = apperrors.New(apperrors.CodeInternal, fmt.Sprintf("analysis failed: %v", r))
			err = apperrors.AddContext(err, apperrors.CtxOperation, "analyze")
			err = apperrors.AddContext(err, apperrors.CtxPath, id)
			result = ports.AnalysisResult{}
		}
		observability.PipelineDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			observability.PipelineRunsTotal.WithLabelValues("failed").Inc()
			observability.RecordError(span, err)
			slog.Error("analysis failed", "path", id, "error", err)
			o.publish(ports.Envelope{
				Type: ports.EnvelopeError,
				Data: ports.ErrorData{Message: apperrors.Message(err), File: id},
			})
			return
		}
		observability.PipelineRunsTotal.WithLabelValues("complete").Inc()
	}()

	o.publish(ports.Envelope{Type: ports.EnvelopeAnalyzing, Data: ports.AnalyzingData{File: id}})

	result, err = o.analyze(ctx, id, start)
	if err != nil {
		return result, err
	}

	o.state.History.Add(result)
	o.publish(ports.Envelope{Type: ports.EnvelopeAnalysisComplete, Data: result})
	o.record(ctx, result)
	slog.Info("analysis complete", "path", id, "risk", result.RiskScore, "level", result.RiskLevel,
		"direct", len(result.AffectedSet.Direct), "indirect", len(result.AffectedSet.Indirect),
		"duration_ms", result.DurationMs)
	return result, nil
}

// publish hands env to subscribers. A failing publisher never fails the run
// and never escapes the pipeline.
func (o *Orchestrator) publish(env ports.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("publisher panic", "type", env.Type, "panic", r)
		}
	}()
	o.publisher.Publish(env)
}

// record forwards a finished result to persistence, fire-and-forget.
func (o *Orchestrator) record(ctx context.Context, result ports.AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("persistence sink panic", "path", result.File, "panic", r)
		}
	}()
	if err := o.sink.Record(ctx, result); err != nil {
		slog.Warn("failed to hand result to persistence", "path", result.File, "error", err)
	}
}

func (o *Orchestrator) analyze(ctx context.Context, id string, start time.Time) (ports.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.AnalysisResult{}, apperrors.Wrap(err, apperrors.CodeUnavailable, "analysis canceled")
	}

	text := o.readSource(id)
	previous, seen := o.state.Cache.Get(id)

	// A file seen for the first time is its own baseline for breaking
	// changes, while every line counts as added.
	diffBase, breakingBase := previous, previous
	if !seen {
		diffBase, breakingBase = "", text
	}

	_, stepSpan := observability.StartSpan(ctx, "pipeline.diff")
	stats := diff.LineDiff(diffBase, text)
	breaking := diff.BreakingChanges(breakingBase, text)
	stepSpan.End()

	_, stepSpan = observability.StartSpan(ctx, "pipeline.graph")
	g := o.state.Graph.Update(id, []byte(text))
	affected := g.ResolveAffected(id)
	record, _ := g.File(id)
	stepSpan.End()

	judgeCtx, judgeSpan := observability.StartSpan(ctx, "pipeline.judge")
	verdict := o.judge.Analyze(judgeCtx, ports.JudgeRequest{
		File:            id,
		Content:         text,
		OldContent:      previous,
		Dependencies:    record.Dependencies,
		Affected:        affected,
		BreakingChanges: breaking,
	})
	judgeSpan.SetAttributes(attribute.String("judge.source", verdict.Source), attribute.Int("judge.risk", verdict.RiskScore))
	judgeSpan.End()

	result := ports.AnalysisResult{
		ID:                 uuid.NewString(),
		File:               id,
		Timestamp:          time.Now().UTC(),
		DurationMs:         time.Since(start).Milliseconds(),
		DependencySnapshot: record,
		AffectedSet:        affected,
		JudgeOutput:        verdict,
		RiskScore:          verdict.RiskScore,
		RiskLevel:          string(risk.LevelFor(verdict.RiskScore)),
		StructuralScore:    o.scorer.Score(breaking, affected),
		DiffStats: ports.DiffStats{
			Added:           stats.Added,
			Removed:         stats.Removed,
			BreakingChanges: breaking,
		},
		ContentDigest: fmt.Sprintf("%016x", xxh3.HashString(text)),
	}

	o.state.Cache.Set(id, text)
	return result, nil
}

// readSource returns the file's text. A missing or unreadable file reads as
// empty so that deletions flow through the pipeline.
func (o *Orchestrator) readSource(id string) string {
	data, err := os.ReadFile(filepath.Join(o.root, filepath.FromSlash(id)))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("source unreadable, treating as empty", "path", id, "error", err)
		}
		return ""
	}
	return string(data)
}
