package config

import (
	"time"
)

const DefaultFile = "changeimpact.toml"

type Config struct {
	Project       Project       `toml:"project"`
	Server        Server        `toml:"server"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Watch         Watch         `toml:"watch"`
	Judge         Judge         `toml:"judge"`
	Heuristics    Heuristics    `toml:"heuristics"`
	Secrets       Secrets       `toml:"secrets"`
	Persistence   Persistence   `toml:"persistence"`
	Observability Observability `toml:"observability"`
	Log           Log           `toml:"log"`
}

type Project struct {
	Root       string            `toml:"root"`
	Extensions []string          `toml:"extensions"`
	Exclude    Exclude           `toml:"exclude"`
	Aliases    map[string]string `toml:"aliases"`
	// ParseWorkers bounds parallel parsing during a full rebuild.
	ParseWorkers int `toml:"parse_workers"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Server struct {
	Address        string        `toml:"address"`
	AnalyzeRate    float64       `toml:"analyze_rate"`
	AnalyzeBurst   int           `toml:"analyze_burst"`
	LimiterTTL     time.Duration `toml:"limiter_ttl"`
	ShutdownPeriod time.Duration `toml:"shutdown_period"`
}

const (
	BusyCoalesce = "coalesce"
	BusyDrop     = "drop"
)

type Pipeline struct {
	HistoryCapacity int    `toml:"history_capacity"`
	BusyPolicy      string `toml:"busy_policy"`
	QueueCapacity   int    `toml:"queue_capacity"`
}

type Watch struct {
	Enabled  bool          `toml:"enabled"`
	Debounce time.Duration `toml:"debounce"`
}

type Judge struct {
	Provider        string        `toml:"provider"`
	Model           string        `toml:"model"`
	BaseURL         string        `toml:"base_url"`
	APIKeyEnv       string        `toml:"api_key_env"`
	Timeout         time.Duration `toml:"timeout"`
	MaxContentBytes int           `toml:"max_content_bytes"`
	// RequestsPerMinute throttles judge calls; zero means unlimited.
	RequestsPerMinute float64 `toml:"requests_per_minute"`
}

type Heuristics struct {
	OversizedLines int `toml:"oversized_lines"`
}

type Secrets struct {
	Enabled          bool            `toml:"enabled"`
	EntropyThreshold float64         `toml:"entropy_threshold"`
	MinTokenLength   int             `toml:"min_token_length"`
	Patterns         []SecretPattern `toml:"patterns"`
}

type SecretPattern struct {
	Name     string `toml:"name"`
	Regex    string `toml:"regex"`
	Severity string `toml:"severity"`
}

type Persistence struct {
	Enabled       bool          `toml:"enabled"`
	Path          string        `toml:"path"`
	QueueCapacity int           `toml:"queue_capacity"`
	BatchSize     int           `toml:"batch_size"`
	FlushInterval time.Duration `toml:"flush_interval"`
}

type Observability struct {
	Metrics      bool    `toml:"metrics"`
	OTLPEndpoint string  `toml:"otlp_endpoint"`
	OTLPInsecure bool    `toml:"otlp_insecure"`
	ServiceName  string  `toml:"service_name"`
	SampleRatio  float64 `toml:"sample_ratio"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{
		Watch:         Watch{Enabled: true},
		Secrets:       Secrets{Enabled: true},
		Persistence:   Persistence{Enabled: true},
		Observability: Observability{Metrics: true},
	}
	applyDefaults(cfg)
	return cfg
}
