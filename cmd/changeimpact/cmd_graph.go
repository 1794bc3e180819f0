package main

import (
	"changeimpact/internal/core/app"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	graphJSON   bool
	graphTop    int
	graphCycles bool
	graphFrom   string
	graphTo     string
	graphQuery  string

	graphCmd = &cobra.Command{
		Use:   "graph",
		Short: "Build the dependency graph and print its statistics",
		Args:  cobra.NoArgs,
		RunE:  runGraph,
	}
)

func init() {
	graphCmd.Flags().BoolVar(&graphJSON, "json", false, "print the full graph as JSON")
	graphCmd.Flags().IntVar(&graphTop, "top", 10, "number of most important files to list")
	graphCmd.Flags().BoolVar(&graphCycles, "cycles", false, "list import cycles")
	graphCmd.Flags().StringVar(&graphFrom, "from", "", "print the import chain starting at this file (requires --to)")
	graphCmd.Flags().StringVarP(&graphQuery, "query", "q", "", "list files matching a SELECT files [WHERE ...] statement")
	graphCmd.Flags().StringVar(&graphTo, "to", "", "print the import chain ending at this file (requires --from)")
}

func runGraph(cmd *cobra.Command, _ []string) error {
	if (graphFrom == "") != (graphTo == "") {
		return fmt.Errorf("--from and --to must be used together")
	}

	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	cfg.Persistence.Enabled = false

	a, err := app.New(cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(cmd.Context()) }()

	stats, err := a.InitialScan(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if graphJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(a.AnalysisService().Dependencies(cmd.Context()))
	}

	snapshot := a.Graph.Snapshot()
	fmt.Fprintf(out, "files: %d\nedges: %d\nbuilt in: %dms\n", stats.FileCount, snapshot.EdgeCount(), stats.DurationMs)

	if graphFrom != "" {
		chain, ok := snapshot.FindImportChain(graphFrom, graphTo)
		fmt.Fprintln(out)
		if !ok {
			fmt.Fprintf(out, "no import chain from %s to %s\n", graphFrom, graphTo)
		} else {
			fmt.Fprintf(out, "chain: %s\n", strings.Join(chain, " -> "))
		}
	}

	if graphCycles {
		cycles := snapshot.DetectCycles()
		fmt.Fprintf(out, "\ncycles: %d\n", len(cycles))
		for _, c := range cycles {
			fmt.Fprintf(out, "  %s -> %s\n", strings.Join(c, " -> "), c[0])
		}
	}

	ranked := snapshot.TopImportance(graphTop)
	if graphQuery != "" {
		ranked, err = a.AnalysisService().Query(cmd.Context(), graphQuery, graphTop)
		if err != nil {
			return err
		}
	}
	if len(ranked) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tDEPENDENTS\tIMPORTS\tSCORE")
	for _, r := range ranked {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f\n", r.File, r.FanIn, r.FanOut, r.Score)
	}
	return tw.Flush()
}
