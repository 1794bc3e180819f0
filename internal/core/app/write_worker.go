package app

import (
	"changeimpact/internal/core/ports"
	"changeimpact/internal/data/queue"
	"changeimpact/internal/shared/observability"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// BatchRecorder stores a batch of results in one write.
type BatchRecorder interface {
	RecordBatch(ctx context.Context, results []ports.AnalysisResult) error
}

type PersistOptions struct {
	QueueCapacity int
	BatchSize     int
	FlushInterval time.Duration
}

// PersistWorker is a ports.Sink that hands results to a background writer.
// Record never waits on storage; a full queue drops the result.
type PersistWorker struct {
	recorder      BatchRecorder
	queue         *queue.MemoryQueue[ports.AnalysisResult]
	batchSize     int
	flushInterval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

var _ ports.Sink = (*PersistWorker)(nil)

func NewPersistWorker(recorder BatchRecorder, opts PersistOptions) *PersistWorker {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 100 * time.Millisecond
	}
	return &PersistWorker{
		recorder:      recorder,
		queue:         queue.NewMemoryQueue[ports.AnalysisResult](opts.QueueCapacity),
		batchSize:     opts.BatchSize,
		flushInterval: opts.FlushInterval,
	}
}

// Start launches the writer goroutine. Calling it twice is a no-op.
func (w *PersistWorker) Start() {
	if w.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx)
}

func (w *PersistWorker) Record(_ context.Context, result ports.AnalysisResult) error {
	switch w.queue.Enqueue(result) {
	case queue.EnqueueAccepted:
		observability.PersistQueueDepth.Set(float64(w.queue.Len()))
		return nil
	default:
		observability.PersistDroppedTotal.Inc()
		return fmt.Errorf("persist queue full, result %s dropped", result.ID)
	}
}

func (w *PersistWorker) run(ctx context.Context) {
	defer close(w.done)
	for {
		batch, err := w.queue.DequeueBatch(ctx, w.batchSize, w.flushInterval)
		if len(batch) > 0 {
			w.flush(context.Background(), batch)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return
			}
			slog.Warn("persist queue dequeue failed", "error", err)
		}
	}
}

func (w *PersistWorker) flush(ctx context.Context, batch []ports.AnalysisResult) {
	started := time.Now()
	if err := w.recorder.RecordBatch(ctx, batch); err != nil {
		observability.PersistErrorsTotal.Inc()
		slog.Warn("failed to persist analysis results", "error", err, "batch_size", len(batch))
	} else {
		observability.PersistFlushLatencySeconds.Observe(time.Since(started).Seconds())
	}
	observability.PersistQueueDepth.Set(float64(w.queue.Len()))
}

// Stop closes the queue, then writes out whatever is still pending before
// ctx ends.
func (w *PersistWorker) Stop(ctx context.Context) error {
	var stopErr error
	w.once.Do(func() {
		_ = w.queue.Close()
		if w.done != nil {
			w.cancel()
			select {
			case <-w.done:
			case <-ctx.Done():
				stopErr = ctx.Err()
				return
			}
		}
		stopErr = w.drain(ctx)
	})
	return stopErr
}

func (w *PersistWorker) drain(ctx context.Context) error {
	for {
		batch, err := w.queue.DequeueBatch(ctx, w.batchSize, 0)
		if len(batch) > 0 {
			if recErr := w.recorder.RecordBatch(ctx, batch); recErr != nil {
				observability.PersistErrorsTotal.Inc()
				return recErr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				observability.PersistQueueDepth.Set(0)
				return nil
			}
			return err
		}
		if len(batch) == 0 {
			return nil
		}
	}
}
