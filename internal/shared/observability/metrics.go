package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "changeimpact_parsing_seconds",
		Help:    "Time spent parsing sources into a graph snapshot.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "changeimpact_graph_nodes_total",
		Help: "Number of files in the published dependency graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "changeimpact_graph_edges_total",
		Help: "Number of dependency edges in the published graph.",
	})

	PipelineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "changeimpact_pipeline_runs_total",
		Help: "Analysis runs by outcome.",
	}, []string{"outcome"})

	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "changeimpact_pipeline_seconds",
		Help:    "End-to-end duration of one analysis run.",
		Buckets: prometheus.DefBuckets,
	})

	EventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "changeimpact_events_dropped_total",
		Help: "Change events discarded because an analysis was already running.",
	})

	EventsCoalescedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "changeimpact_events_coalesced_total",
		Help: "Change events merged into an already pending event for the same file.",
	})

	JudgeFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "changeimpact_judge_fallbacks_total",
		Help: "External judge calls that fell back to the heuristic judge.",
	}, []string{"reason"})

	SubscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "changeimpact_subscribers",
		Help: "Connected publish-channel subscribers.",
	})

	SubscriberDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "changeimpact_subscriber_drops_total",
		Help: "Envelopes not delivered to a subscriber whose send buffer was full.",
	})

	HTTPRateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "changeimpact_http_rate_limited_total",
		Help: "Analyze requests rejected by the per-client rate limiter.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "changeimpact_watcher_events_total",
		Help: "File system events received by the watcher.",
	})

	PersistQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "changeimpact_persist_queue_depth",
		Help: "Results waiting to be persisted.",
	})

	PersistDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "changeimpact_persist_dropped_total",
		Help: "Results dropped from the persistence queue due to backpressure.",
	})

	PersistErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "changeimpact_persist_errors_total",
		Help: "Persistence batches that failed to apply.",
	})

	PersistFlushLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "changeimpact_persist_flush_seconds",
		Help:    "Latency for persisting a batch of results.",
		Buckets: prometheus.DefBuckets,
	})
)
