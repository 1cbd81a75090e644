package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jpalmerr/sitecheck"
	"github.com/jpalmerr/sitecheck/internal/history"
	"github.com/jpalmerr/sitecheck/internal/metrics"
	"github.com/jpalmerr/sitecheck/internal/server"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll URLs until interrupted",
		Long: `Poll the URL list in repeated cycles until interrupted.

The command will:
  - Load settings from the config file and SITECHECK_* variables
  - Validate the URL list, reporting malformed lines by number
  - Poll every URL once per cycle and log each result
  - Keep the last DefaulURLRowLimit results per URL
  - Serve /api/results, /api/sse, /metrics and /healthz on the configured port

The command runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  sitecheck watch -c sitecheck.yaml -f urls.txt
  cat urls.txt | sitecheck watch -c sitecheck.yaml`,
		RunE: runWatch,
	}
	addInputFlags(cmd)
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	text, err := readURLText(cmd, cfg)
	if err != nil {
		return err
	}
	urls, err := parseURLText(text)
	if err != nil {
		return err
	}

	store, err := history.NewMemoryStore(cfg.RowLimit)
	if err != nil {
		return fmt.Errorf("failed to create history: %w", err)
	}
	collector := metrics.New()

	opts := append(engineOptions(cfg, logger), sitecheck.WithCycleCallback(func(s sitecheck.CycleSummary) {
		collector.ObserveCycle(s.Failures, s.Duration)
	}))
	engine, err := sitecheck.NewEngine(opts...)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	// cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	health := func(context.Context) error {
		if engine.State() != sitecheck.Running {
			return errors.New("engine is not running")
		}
		return nil
	}
	srv := server.NewServer(store, cfg.Port, collector.Handler(), health, logger)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	session, err := engine.Start(urls, cfg.Interval, cfg.Timeout, func(r sitecheck.CheckResult) {
		collector.ObserveResult(r.StatusCode, string(r.ErrorKind), r.Latency)
		if evicted := store.Append(toRow(r)); evicted > 0 {
			logger.Debug("history rows evicted", zap.String("url", r.URL.String()), zap.Int("evicted", evicted))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	logger.Info("watching",
		zap.String("session", session.ID()),
		zap.Int("urls", len(session.URLs())),
		zap.Int("port", cfg.Port),
		zap.Int("row_limit", cfg.RowLimit),
	)

	<-ctx.Done()

	engine.Stop()
	logger.Info("shutdown complete")
	return nil
}

// toRow converts a result into its history representation.
func toRow(r sitecheck.CheckResult) history.Row {
	return history.Row{
		URL:         r.URL.String(),
		Cycle:       r.Cycle,
		StatusCode:  r.StatusCode,
		ErrorKind:   string(r.ErrorKind),
		Description: r.Description,
		LatencyMs:   r.Latency.Milliseconds(),
		ObservedAt:  r.ObservedAt,
	}
}
