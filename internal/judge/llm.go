package judge

import (
	"changeimpact/internal/core/ports"
	"changeimpact/internal/engine/risk"
	"changeimpact/internal/shared/observability"
	"changeimpact/internal/shared/util"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const systemPrompt = `You review source changes in a web application. Reply with a single JSON object:
{"summary": string, "intent": string, "issues": [{"severity": "high|medium|low", "message": string, "line": number}],
"breakingChanges": [string], "affectedAreas": [string], "recommendations": [string], "riskScore": integer 1-10}.`

var (
	errBadResponse = errors.New("unusable verdict")
	errThrottled   = errors.New("judge request budget exhausted")
)

// ChatClient is the subset of the OpenAI client the judge uses.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type LLMOptions struct {
	Model           string
	Timeout         time.Duration
	MaxContentBytes int
	// RequestsPerMinute caps call volume; a call that cannot get a slot
	// before its timeout falls back. Zero disables the cap.
	RequestsPerMinute float64
}

// LLM asks an OpenAI-compatible chat endpoint for a verdict and falls back to
// another judge when the call or its response is unusable.
type LLM struct {
	client          ChatClient
	model           string
	timeout         time.Duration
	maxContentBytes int
	limiter         *util.Limiter
	fallback        ports.Judge
}

var _ ports.Judge = (*LLM)(nil)

func NewLLM(client ChatClient, opts LLMOptions, fallback ports.Judge) *LLM {
	if opts.Model == "" {
		opts.Model = openai.GPT4oMini
	}
	if opts.MaxContentBytes <= 0 {
		opts.MaxContentBytes = 24 * 1024
	}
	var limiter *util.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = util.NewLimiter(opts.RequestsPerMinute/60, 1)
	}
	return &LLM{
		client:          client,
		limiter:         limiter,
		model:           opts.Model,
		timeout:         opts.Timeout,
		maxContentBytes: opts.MaxContentBytes,
		fallback:        fallback,
	}
}

func (j *LLM) Analyze(ctx context.Context, req ports.JudgeRequest) ports.JudgeOutput {
	out, err := j.call(ctx, req)
	if err != nil {
		observability.JudgeFallbacksTotal.WithLabelValues(fallbackReason(err)).Inc()
		slog.Warn("judge unavailable, using heuristic", "path", req.File, "error", err)
		return j.fallback.Analyze(ctx, req)
	}
	return out
}

func (j *LLM) call(ctx context.Context, req ports.JudgeRequest) (ports.JudgeOutput, error) {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}
	if j.limiter != nil {
		if err := j.limiter.Wait(ctx); err != nil {
			return ports.JudgeOutput{}, fmt.Errorf("%w: %v", errThrottled, err)
		}
	}

	resp, err := j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: j.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: j.prompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0,
	})
	if err != nil {
		return ports.JudgeOutput{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ports.JudgeOutput{}, fmt.Errorf("%w: no choices", errBadResponse)
	}
	return j.decode(resp.Choices[0].Message.Content)
}

type verdict struct {
	Summary         string        `json:"summary"`
	Intent          string        `json:"intent"`
	Issues          []ports.Issue `json:"issues"`
	BreakingChanges []string      `json:"breakingChanges"`
	AffectedAreas   []string      `json:"affectedAreas"`
	Recommendations []string      `json:"recommendations"`
	RiskScore       *float64      `json:"riskScore"`
}

func (j *LLM) decode(content string) (ports.JudgeOutput, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var v verdict
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return ports.JudgeOutput{}, fmt.Errorf("%w: %v", errBadResponse, err)
	}
	if v.RiskScore == nil {
		return ports.JudgeOutput{}, fmt.Errorf("%w: missing riskScore", errBadResponse)
	}

	out := emptyOutput("llm:" + j.model)
	out.Summary = v.Summary
	out.Intent = v.Intent
	if v.Issues != nil {
		out.Issues = v.Issues
	}
	if v.BreakingChanges != nil {
		out.BreakingChanges = v.BreakingChanges
	}
	if v.AffectedAreas != nil {
		out.AffectedAreas = v.AffectedAreas
	}
	if v.Recommendations != nil {
		out.Recommendations = v.Recommendations
	}
	// Judge scores live in 1..10.
	out.RiskScore = risk.Clamp(*v.RiskScore, true)
	out.RiskLevel = string(risk.LevelFor(out.RiskScore))
	return out, nil
}

func (j *LLM) prompt(req ports.JudgeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", req.File)
	fmt.Fprintf(&b, "Dependencies: %s\n", strings.Join(req.Dependencies, ", "))
	fmt.Fprintf(&b, "Directly affected files: %s\n", strings.Join(req.Affected.Direct, ", "))
	fmt.Fprintf(&b, "Indirectly affected files: %s\n", strings.Join(req.Affected.Indirect, ", "))
	if len(req.BreakingChanges) > 0 {
		b.WriteString("Structurally detected breaking changes:\n")
		for _, c := range req.BreakingChanges {
			fmt.Fprintf(&b, "- %s\n", c.String())
		}
	}
	fmt.Fprintf(&b, "\nPrevious content:\n%s\n", truncate(req.OldContent, j.maxContentBytes))
	fmt.Fprintf(&b, "\nNew content:\n%s\n", truncate(req.Content, j.maxContentBytes))
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n... [truncated]"
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, errBadResponse):
		return "bad_response"
	case errors.Is(err, errThrottled):
		return "throttled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "call_failed"
	}
}
