package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// Validate returns every problem found rather than stopping at the first.
func Validate(cfg *Config) []error {
	var errs []error
	for _, check := range []func(*Config) error{
		validateProject,
		validateServer,
		validatePipeline,
		validateJudge,
		validateSecrets,
		validateLog,
	} {
		if err := check(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, validatePaths(cfg)...)
	return errs
}

func validateProject(cfg *Config) error {
	for i, ext := range cfg.Project.Extensions {
		if ext == "" || ext == "." {
			return fmt.Errorf("project.extensions[%d] must not be empty", i)
		}
	}
	for _, pattern := range append(append([]string{}, cfg.Project.Exclude.Dirs...), cfg.Project.Exclude.Files...) {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("project.exclude pattern %q: %w", pattern, err)
		}
	}
	for prefix, target := range cfg.Project.Aliases {
		if strings.TrimSpace(prefix) == "" {
			return fmt.Errorf("project.aliases must not contain an empty prefix")
		}
		if strings.HasPrefix(target, "/") || strings.HasPrefix(target, "..") {
			return fmt.Errorf("project.aliases[%q] must be relative to the project root, got %q", prefix, target)
		}
	}
	return nil
}

func validateServer(cfg *Config) error {
	if cfg.Server.AnalyzeRate < 0 {
		return fmt.Errorf("server.analyze_rate must be >= 0, got %v", cfg.Server.AnalyzeRate)
	}
	return nil
}

func validatePipeline(cfg *Config) error {
	switch cfg.Pipeline.BusyPolicy {
	case BusyCoalesce, BusyDrop:
	default:
		return fmt.Errorf("pipeline.busy_policy must be one of: %s, %s; got %q", BusyCoalesce, BusyDrop, cfg.Pipeline.BusyPolicy)
	}
	return nil
}

func validateJudge(cfg *Config) error {
	switch cfg.Judge.Provider {
	case "none", "openai":
	default:
		return fmt.Errorf("judge.provider must be one of: none, openai; got %q", cfg.Judge.Provider)
	}
	if cfg.Judge.RequestsPerMinute < 0 {
		return fmt.Errorf("judge.requests_per_minute must be >= 0")
	}
	return nil
}

func validateSecrets(cfg *Config) error {
	for i, p := range cfg.Secrets.Patterns {
		ref := fmt.Sprintf("secrets.patterns[%d]", i)
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%s.name must not be empty", ref)
		}
		if _, err := regexp.Compile(p.Regex); err != nil {
			return fmt.Errorf("%s.regex: %w", ref, err)
		}
		switch strings.ToLower(p.Severity) {
		case "", "low", "medium", "high", "critical":
		default:
			return fmt.Errorf("%s.severity must be one of: low, medium, high, critical", ref)
		}
	}
	return nil
}

func validateLog(cfg *Config) error {
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be one of: text, json; got %q", cfg.Log.Format)
	}
	return nil
}

func validatePaths(cfg *Config) []error {
	var errs []error
	stat, err := os.Stat(cfg.Project.Root)
	if os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("project.root %q does not exist", cfg.Project.Root))
	} else if err == nil && !stat.IsDir() {
		errs = append(errs, fmt.Errorf("project.root %q is not a directory", cfg.Project.Root))
	}
	return errs
}
