package main

import (
	"changeimpact/internal/core/config"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var (
	configPath string
	rootDir    string
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "changeimpact",
		Short: "Change-impact analysis for JavaScript and TypeScript source trees",
		Long: `changeimpact keeps a live dependency graph of a source tree and, for every
changed file, reports what the change breaks, which files and entities it
reaches, and how risky it is.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: nearest "+config.DefaultFile+")")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "project root, overriding the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, analyzeCmd, graphCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the config file, applies command-line overrides and
// installs the default logger.
func loadConfig(logOut io.Writer) (*config.Config, error) {
	path := configPath
	if path == "" {
		if cwd, err := os.Getwd(); err == nil {
			path = config.FindConfig(cwd)
		}
		if path == "" {
			path = config.DefaultFile
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if rootDir != "" {
		abs, err := filepath.Abs(rootDir)
		if err != nil {
			return nil, err
		}
		cfg.Project.Root = abs
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	slog.SetDefault(newLogger(logOut, cfg.Log))
	slog.Debug("configuration loaded", "path", path, "root", cfg.Project.Root)
	return cfg, nil
}

func newLogger(out io.Writer, cfg config.Log) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}
