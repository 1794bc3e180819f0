package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: CHANGEIMPACT_[SECTION]_[KEY] (e.g., CHANGEIMPACT_SERVER_ADDRESS).
func ApplyEnvOverrides(cfg *Config) {
	// Project
	setEnvString(&cfg.Project.Root, "CHANGEIMPACT_PROJECT_ROOT")
	setEnvInt(&cfg.Project.ParseWorkers, "CHANGEIMPACT_PROJECT_PARSE_WORKERS")

	// Server
	setEnvString(&cfg.Server.Address, "CHANGEIMPACT_SERVER_ADDRESS")
	setEnvFloat64(&cfg.Server.AnalyzeRate, "CHANGEIMPACT_SERVER_ANALYZE_RATE")
	setEnvInt(&cfg.Server.AnalyzeBurst, "CHANGEIMPACT_SERVER_ANALYZE_BURST")

	// Pipeline
	setEnvInt(&cfg.Pipeline.HistoryCapacity, "CHANGEIMPACT_PIPELINE_HISTORY_CAPACITY")
	setEnvString(&cfg.Pipeline.BusyPolicy, "CHANGEIMPACT_PIPELINE_BUSY_POLICY")
	setEnvInt(&cfg.Pipeline.QueueCapacity, "CHANGEIMPACT_PIPELINE_QUEUE_CAPACITY")

	// Watch
	setEnvBool(&cfg.Watch.Enabled, "CHANGEIMPACT_WATCH_ENABLED")
	setEnvDuration(&cfg.Watch.Debounce, "CHANGEIMPACT_WATCH_DEBOUNCE")

	// Judge
	setEnvString(&cfg.Judge.Provider, "CHANGEIMPACT_JUDGE_PROVIDER")
	setEnvString(&cfg.Judge.Model, "CHANGEIMPACT_JUDGE_MODEL")
	setEnvString(&cfg.Judge.BaseURL, "CHANGEIMPACT_JUDGE_BASE_URL")
	setEnvString(&cfg.Judge.APIKeyEnv, "CHANGEIMPACT_JUDGE_API_KEY_ENV")
	setEnvDuration(&cfg.Judge.Timeout, "CHANGEIMPACT_JUDGE_TIMEOUT")
	setEnvFloat64(&cfg.Judge.RequestsPerMinute, "CHANGEIMPACT_JUDGE_REQUESTS_PER_MINUTE")

	// Secrets
	setEnvBool(&cfg.Secrets.Enabled, "CHANGEIMPACT_SECRETS_ENABLED")
	setEnvFloat64(&cfg.Secrets.EntropyThreshold, "CHANGEIMPACT_SECRETS_ENTROPY_THRESHOLD")
	setEnvInt(&cfg.Secrets.MinTokenLength, "CHANGEIMPACT_SECRETS_MIN_TOKEN_LENGTH")

	// Persistence
	setEnvBool(&cfg.Persistence.Enabled, "CHANGEIMPACT_PERSISTENCE_ENABLED")
	setEnvString(&cfg.Persistence.Path, "CHANGEIMPACT_PERSISTENCE_PATH")

	// Observability
	setEnvBool(&cfg.Observability.Metrics, "CHANGEIMPACT_OBSERVABILITY_METRICS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "CHANGEIMPACT_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.OTLPInsecure, "CHANGEIMPACT_OBSERVABILITY_OTLP_INSECURE")

	// Log
	setEnvString(&cfg.Log.Level, "CHANGEIMPACT_LOG_LEVEL")
	setEnvString(&cfg.Log.Format, "CHANGEIMPACT_LOG_FORMAT")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
