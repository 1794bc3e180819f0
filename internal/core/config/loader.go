package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load decodes path over the defaults, applies CHANGEIMPACT_* overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("config file not found, using defaults", "path", path)
	case err != nil:
		return nil, err
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	ApplyEnvOverrides(cfg)
	applyDefaults(cfg)
	normalize(cfg)
	cfg.Project.Root = ResolveRelative(filepath.Dir(path), cfg.Project.Root)

	if errs := Validate(cfg); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Project.Root) == "" {
		cfg.Project.Root = "."
	}
	if len(cfg.Project.Extensions) == 0 {
		cfg.Project.Extensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}
	}
	if len(cfg.Project.Exclude.Dirs) == 0 {
		cfg.Project.Exclude.Dirs = []string{".git", "node_modules", "dist", "build", "coverage", ".next"}
	}
	if cfg.Project.Aliases == nil {
		cfg.Project.Aliases = map[string]string{"@/": "src/"}
	}
	if cfg.Project.ParseWorkers <= 0 {
		cfg.Project.ParseWorkers = runtime.NumCPU()
	}

	if strings.TrimSpace(cfg.Server.Address) == "" {
		cfg.Server.Address = "127.0.0.1:8080"
	}
	if cfg.Server.AnalyzeRate == 0 {
		cfg.Server.AnalyzeRate = 2
	}
	if cfg.Server.AnalyzeBurst <= 0 {
		cfg.Server.AnalyzeBurst = 5
	}
	if cfg.Server.LimiterTTL <= 0 {
		cfg.Server.LimiterTTL = 10 * time.Minute
	}
	if cfg.Server.ShutdownPeriod <= 0 {
		cfg.Server.ShutdownPeriod = 5 * time.Second
	}

	if cfg.Pipeline.HistoryCapacity <= 0 {
		cfg.Pipeline.HistoryCapacity = 100
	}
	if strings.TrimSpace(cfg.Pipeline.BusyPolicy) == "" {
		cfg.Pipeline.BusyPolicy = BusyCoalesce
	}
	if cfg.Pipeline.QueueCapacity <= 0 {
		cfg.Pipeline.QueueCapacity = 256
	}

	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}

	if strings.TrimSpace(cfg.Judge.Provider) == "" {
		cfg.Judge.Provider = "none"
	}
	if strings.TrimSpace(cfg.Judge.APIKeyEnv) == "" {
		cfg.Judge.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Judge.Timeout <= 0 {
		cfg.Judge.Timeout = 30 * time.Second
	}
	if cfg.Judge.MaxContentBytes <= 0 {
		cfg.Judge.MaxContentBytes = 24 * 1024
	}

	if cfg.Heuristics.OversizedLines <= 0 {
		cfg.Heuristics.OversizedLines = 500
	}

	if cfg.Secrets.EntropyThreshold <= 0 {
		cfg.Secrets.EntropyThreshold = 4.0
	}
	if cfg.Secrets.MinTokenLength <= 0 {
		cfg.Secrets.MinTokenLength = 20
	}

	if strings.TrimSpace(cfg.Persistence.Path) == "" {
		cfg.Persistence.Path = ".changeimpact/history.db"
	}
	if cfg.Persistence.QueueCapacity <= 0 {
		cfg.Persistence.QueueCapacity = 512
	}
	if cfg.Persistence.BatchSize <= 0 {
		cfg.Persistence.BatchSize = 32
	}
	if cfg.Persistence.FlushInterval <= 0 {
		cfg.Persistence.FlushInterval = 250 * time.Millisecond
	}

	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "changeimpact"
	}
	if cfg.Observability.SampleRatio <= 0 {
		cfg.Observability.SampleRatio = 1
	}

	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if strings.TrimSpace(cfg.Log.Format) == "" {
		cfg.Log.Format = "text"
	}
}

func normalize(cfg *Config) {
	cfg.Project.Root = strings.TrimSpace(cfg.Project.Root)
	for i, ext := range cfg.Project.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.Project.Extensions[i] = ext
	}
	cfg.Pipeline.BusyPolicy = strings.ToLower(strings.TrimSpace(cfg.Pipeline.BusyPolicy))
	cfg.Judge.Provider = strings.ToLower(strings.TrimSpace(cfg.Judge.Provider))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
}
