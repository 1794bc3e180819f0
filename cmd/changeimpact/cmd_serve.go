package main

import (
	"changeimpact/internal/api"
	"changeimpact/internal/core/app"
	"changeimpact/internal/shared/observability"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	serveAddr    string
	serveNoWatch bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Build the graph, watch for changes and serve the HTTP API",
		Long: `Builds the dependency graph, then watches the project tree and runs the
analysis pipeline for every changed source file. Results are served over
HTTP and broadcast on the /ws WebSocket channel.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "do not watch the file system")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(os.Stdout)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Address = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Endpoint:    cfg.Observability.OTLPEndpoint,
		Insecure:    cfg.Observability.OTLPInsecure,
		ServiceName: cfg.Observability.ServiceName,
		SampleRatio: cfg.Observability.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	hub := api.NewHub()
	a, err := app.New(cfg, hub)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownPeriod)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			slog.Warn("shutdown incomplete", "error", err)
		}
	}()

	if _, err := a.InitialScan(ctx); err != nil {
		return err
	}
	if cfg.Watch.Enabled && !serveNoWatch {
		if err := a.StartWatcher(); err != nil {
			return err
		}
		slog.Info("watching for changes", "root", a.Root)
	}

	serviceName := ""
	if cfg.Observability.OTLPEndpoint != "" {
		serviceName = cfg.Observability.ServiceName
	}
	server := api.NewServer(ctx, a.AnalysisService(), hub, api.Options{
		AnalyzeRate:  cfg.Server.AnalyzeRate,
		AnalyzeBurst: cfg.Server.AnalyzeBurst,
		LimiterTTL:   cfg.Server.LimiterTTL,
		Metrics:      cfg.Observability.Metrics,
		ServiceName:  serviceName,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Run(gctx) })
	g.Go(func() error {
		return server.ListenAndServe(gctx, cfg.Server.Address, cfg.Server.ShutdownPeriod)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
