package judge

import (
	"changeimpact/internal/core/ports"
	"changeimpact/internal/engine/secrets"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

type Options struct {
	Provider          string
	Model             string
	BaseURL           string
	APIKeyEnv         string
	Timeout           time.Duration
	MaxContentBytes   int
	RequestsPerMinute float64
	OversizedLines    int
	Detector          *secrets.Detector
}

// New selects the judge once, at construction. When the external provider
// is not configured the local heuristic serves alone; otherwise it backs the
// external judge as its fallback. Callers never branch on which one runs.
func New(opts Options) ports.Judge {
	heuristic := NewHeuristic(HeuristicOptions{OversizedLines: opts.OversizedLines, Detector: opts.Detector})

	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" || provider == "none" {
		slog.Info("judge configured", "provider", SourceHeuristic)
		return heuristic
	}

	keyEnv := opts.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "OPENAI_API_KEY"
	}
	apiKey := strings.TrimSpace(os.Getenv(keyEnv))
	if apiKey == "" {
		slog.Warn("judge API key not set, using heuristic judge", "env", keyEnv)
		return heuristic
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		clientCfg.BaseURL = opts.BaseURL
	}
	slog.Info("judge configured", "provider", provider, "model", opts.Model)
	return NewLLM(openai.NewClientWithConfig(clientCfg), LLMOptions{
		Model:             opts.Model,
		Timeout:           opts.Timeout,
		MaxContentBytes:   opts.MaxContentBytes,
		RequestsPerMinute: opts.RequestsPerMinute,
	}, heuristic)
}
