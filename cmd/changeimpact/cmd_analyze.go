package main

import (
	"changeimpact/internal/core/app"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE",
	Short: "Run the analysis pipeline once for FILE and print the result as JSON",
	Long: `Builds the dependency graph and analyzes FILE. The file has no prior
version in a one-shot run, so every line counts as added and no change is
reported as breaking; the affected set and the risk score are computed as
usual.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	cfg.Watch.Enabled = false

	a, err := app.New(cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(cmd.Context()) }()

	if _, err := a.InitialScan(cmd.Context()); err != nil {
		return err
	}
	result, err := a.AnalysisService().Analyze(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
