package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"affiliateScope/internal/aggregate"
	"affiliateScope/internal/config"
	"affiliateScope/internal/storage/postgres"
)

func runAggregate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	agg := aggregate.NewAggregator(store, logger)

	// Explicit bounds run both aggregators over one caller-supplied window
	// and leave the cursors alone.
	if cfg.WindowStart != "" || cfg.WindowEnd != "" {
		return runExplicitWindow(ctx, cfg, agg, logger)
	}

	initialStart, err := config.ParseTimestamp(cfg.InitialStart)
	if err != nil {
		return fmt.Errorf("parse initial-start: %w", err)
	}

	runner := aggregate.NewRunner(store, agg, initialStart, logger)

	logger.Info("aggregate start",
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Time("initial_start", initialStart),
		zap.Duration("lag", cfg.Lag),
		zap.Duration("interval", cfg.Interval),
	)

	if err := runner.Run(ctx, time.Now().UTC().Add(-cfg.Lag)); err != nil {
		return err
	}
	if cfg.Interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// A failed pass leaves the cursors untouched; the next tick
			// retries the same window.
			if err := runner.Run(ctx, time.Now().UTC().Add(-cfg.Lag)); err != nil {
				logger.Error("aggregation pass failed", zap.Error(err))
			}
		}
	}
}

func runExplicitWindow(ctx context.Context, cfg config.Config, agg *aggregate.Aggregator, logger *zap.Logger) error {
	if cfg.WindowStart == "" || cfg.WindowEnd == "" {
		return fmt.Errorf("window-start and window-end must be set together")
	}
	start, err := config.ParseTimestamp(cfg.WindowStart)
	if err != nil {
		return fmt.Errorf("parse window-start: %w", err)
	}
	end, err := config.ParseTimestamp(cfg.WindowEnd)
	if err != nil {
		return fmt.Errorf("parse window-end: %w", err)
	}

	w := aggregate.Window{Start: start, End: end}
	logger.Info("explicit window run", zap.String("window", w.String()))

	if err := agg.UpdateAffiliateInfo(ctx, w); err != nil {
		return err
	}
	return agg.UpdateRefereeStats(ctx, w)
}
