package app

import (
	"changeimpact/internal/core/config"
	"changeimpact/internal/core/ports"
	"changeimpact/internal/core/watcher"
	"changeimpact/internal/data/history"
	"changeimpact/internal/engine/graph"
	"changeimpact/internal/engine/parser"
	"changeimpact/internal/engine/risk"
	"changeimpact/internal/engine/secrets"
	"changeimpact/internal/judge"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// App owns every long-lived component of one analyzed project.
type App struct {
	Config   *config.Config
	Root     string
	Parser   *parser.Parser
	Graph    *graph.Store
	Filter   *watcher.Filter
	Pipeline *Orchestrator
	// Results is nil when persistence is disabled.
	Results *history.Store

	persist       *PersistWorker
	activeWatcher *watcher.Watcher
	started       time.Time
}

// New wires an App from cfg. publisher receives pipeline envelopes; nil
// discards them.
func New(cfg *config.Config, publisher ports.Publisher) (*App, error) {
	root, err := cfg.ProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	filter, err := watcher.NewFilter(cfg.Project.Exclude.Dirs, cfg.Project.Exclude.Files, cfg.Project.Extensions)
	if err != nil {
		return nil, fmt.Errorf("compile exclude patterns: %w", err)
	}

	p := parser.New(parser.Options{Aliases: cfg.Project.Aliases})
	store := graph.NewStore(p, cfg.Project.ParseWorkers)

	var detector *secrets.Detector
	if cfg.Secrets.Enabled {
		patterns := make([]secrets.PatternConfig, 0, len(cfg.Secrets.Patterns))
		for _, pattern := range cfg.Secrets.Patterns {
			patterns = append(patterns, secrets.PatternConfig{
				Name:     pattern.Name,
				Regex:    pattern.Regex,
				Severity: pattern.Severity,
			})
		}
		detector, err = secrets.NewDetector(secrets.Config{
			EntropyThreshold: cfg.Secrets.EntropyThreshold,
			MinTokenLength:   cfg.Secrets.MinTokenLength,
			Patterns:         patterns,
		})
		if err != nil {
			return nil, err
		}
	}

	j := judge.New(judge.Options{
		Provider:          cfg.Judge.Provider,
		Model:             cfg.Judge.Model,
		BaseURL:           cfg.Judge.BaseURL,
		APIKeyEnv:         cfg.Judge.APIKeyEnv,
		Timeout:           cfg.Judge.Timeout,
		MaxContentBytes:   cfg.Judge.MaxContentBytes,
		RequestsPerMinute: cfg.Judge.RequestsPerMinute,
		OversizedLines:    cfg.Heuristics.OversizedLines,
		Detector:          detector,
	})

	a := &App{
		Config:  cfg,
		Root:    root,
		Parser:  p,
		Graph:   store,
		Filter:  filter,
		started: time.Now(),
	}

	var sink ports.Sink = ports.NopSink{}
	if cfg.Persistence.Enabled {
		results, err := history.Open(cfg.PersistencePath(root))
		if err != nil {
			return nil, err
		}
		a.Results = results
		a.persist = NewPersistWorker(results, PersistOptions{
			QueueCapacity: cfg.Persistence.QueueCapacity,
			BatchSize:     cfg.Persistence.BatchSize,
			FlushInterval: cfg.Persistence.FlushInterval,
		})
		a.persist.Start()
		sink = a.persist
	}

	a.Pipeline = NewOrchestrator(NewPipelineState(store, cfg.Pipeline.HistoryCapacity), OrchestratorOptions{
		Root:          root,
		Filter:        filter,
		BusyPolicy:    cfg.Pipeline.BusyPolicy,
		QueueCapacity: cfg.Pipeline.QueueCapacity,
		Judge:         j,
		Scorer:        risk.Heuristic{},
		Publisher:     publisher,
		Sink:          sink,
	})
	return a, nil
}

// InitialScan builds the dependency graph from the project tree.
func (a *App) InitialScan(ctx context.Context) (RebuildStats, error) {
	return a.Pipeline.Rebuild(ctx)
}

// Run serves change events until ctx ends.
func (a *App) Run(ctx context.Context) error {
	return a.Pipeline.Run(ctx)
}

// Close stops the watcher and the pipeline, then flushes pending results.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.activeWatcher != nil {
		errs = append(errs, a.activeWatcher.Close())
		a.activeWatcher = nil
	}
	a.Pipeline.Close()
	if a.persist != nil {
		if err := a.persist.Stop(ctx); err != nil {
			slog.Warn("persist worker did not drain", "error", err)
			errs = append(errs, err)
		}
	}
	if a.Results != nil {
		errs = append(errs, a.Results.Close())
	}
	return errors.Join(errs...)
}
