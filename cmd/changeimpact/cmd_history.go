package main

import (
	"changeimpact/internal/data/history"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyFile  string
	historyLimit int
	historyJSON  bool

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List persisted analysis results, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
)

func init() {
	historyCmd.Flags().StringVar(&historyFile, "file", "", "only results for this file id")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum results")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print full results as JSON")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	root, err := cfg.ProjectRoot()
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.PersistencePath(root))
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.Recent(cmd.Context(), historyFile, historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	counts, err := store.CountByLevel(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "stored: high=%d medium=%d low=%d\n\n", counts["high"], counts["medium"], counts["low"])

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tFILE\tRISK\tLEVEL\tBREAKING\tAFFECTED\tJUDGE")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%d\t%s\n",
			r.Timestamp.Local().Format(time.DateTime),
			r.File,
			r.RiskScore,
			r.RiskLevel,
			len(r.DiffStats.BreakingChanges),
			len(r.AffectedSet.Direct)+len(r.AffectedSet.Indirect),
			r.JudgeOutput.Source,
		)
	}
	return tw.Flush()
}
