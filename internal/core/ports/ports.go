package ports

import (
	"changeimpact/internal/engine/diff"
	"changeimpact/internal/engine/graph"
	"changeimpact/internal/engine/parser"
	"context"
	"time"
)

// JudgeRequest carries everything a judge may use to assess one change.
type JudgeRequest struct {
	File            string
	Content         string
	OldContent      string
	Dependencies    []string
	Affected        graph.AffectedSet
	BreakingChanges []diff.BreakingChange
}

type Issue struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Line     int    `json:"line,omitempty"`
}

// JudgeOutput is the assessment of a change. Every Judge returns a
// well-formed value, including on its own failure paths.
type JudgeOutput struct {
	Summary         string   `json:"summary"`
	Intent          string   `json:"intent"`
	Issues          []Issue  `json:"issues"`
	BreakingChanges []string `json:"breakingChanges"`
	AffectedAreas   []string `json:"affectedAreas"`
	Recommendations []string `json:"recommendations"`
	RiskScore       int      `json:"riskScore"`
	RiskLevel       string   `json:"riskLevel"`
	// Source names the implementation that produced the output.
	Source string `json:"source"`
}

// Judge produces a semantic assessment of a change. Implementations never
// return an error; unavailability is expressed by falling back.
type Judge interface {
	Analyze(ctx context.Context, req JudgeRequest) JudgeOutput
}

type DiffStats struct {
	Added           int                   `json:"added"`
	Removed         int                   `json:"removed"`
	BreakingChanges []diff.BreakingChange `json:"breakingChanges"`
}

// AnalysisResult is immutable once created.
type AnalysisResult struct {
	ID                 string             `json:"id"`
	File               string             `json:"file"`
	Timestamp          time.Time          `json:"timestamp"`
	DurationMs         int64              `json:"durationMs"`
	DependencySnapshot *parser.FileRecord `json:"dependencySnapshot"`
	AffectedSet        graph.AffectedSet  `json:"affectedSet"`
	JudgeOutput        JudgeOutput        `json:"judgeOutput"`
	RiskScore          int                `json:"riskScore"`
	RiskLevel          string             `json:"riskLevel"`
	// StructuralScore is the breaking-change and affected-set score alone,
	// before the judge weighs in.
	StructuralScore int       `json:"structuralScore"`
	DiffStats       DiffStats `json:"diffStats"`
	ContentDigest   string    `json:"contentDigest"`
}

// Sink persists results. Failures are logged by the caller, never propagated.
type Sink interface {
	Record(ctx context.Context, result AnalysisResult) error
}

type EnvelopeType string

const (
	EnvelopeAnalyzing        EnvelopeType = "analyzing"
	EnvelopeAnalysisComplete EnvelopeType = "analysis_complete"
	EnvelopeError            EnvelopeType = "error"
)

type Envelope struct {
	Type EnvelopeType `json:"type"`
	Data any          `json:"data"`
}

type ErrorData struct {
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
}

type AnalyzingData struct {
	File string `json:"file"`
}

// Publisher broadcasts envelopes to subscribers. Publish must not block on
// slow subscribers.
type Publisher interface {
	Publish(env Envelope)
}

// NopPublisher discards envelopes.
type NopPublisher struct{}

func (NopPublisher) Publish(Envelope) {}

// NopSink discards results.
type NopSink struct{}

func (NopSink) Record(context.Context, AnalysisResult) error { return nil }
