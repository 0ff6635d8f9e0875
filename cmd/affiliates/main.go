package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "affiliates",
		Short:        "Affiliate attribution aggregator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate referred-user fills into affiliate stats",
		RunE:  runAggregate,
	}

	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	aggregateCmd.Flags().String("initial-start", "", "first window start when no cursor exists (unix seconds or RFC3339)")
	aggregateCmd.Flags().Duration("lag", 30*time.Second, "window end is now minus this lag")
	aggregateCmd.Flags().Duration("interval", 0, "rerun every interval; 0 runs once")
	aggregateCmd.Flags().String("window-start", "", "explicit window start, bypasses the cursor (unix seconds or RFC3339)")
	aggregateCmd.Flags().String("window-end", "", "explicit window end, requires window-start")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(aggregateCmd)

	initCmd := &cobra.Command{
		Use:   "init-db",
		Short: "Create tables and indexes",
		RunE:  runInitDB,
	}

	initCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	initCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(initCmd)

	referralCmd := &cobra.Command{
		Use:   "referral <affiliate> <referee> <block-height>",
		Short: "Record a referral in the registry",
		Args:  cobra.ExactArgs(3),
		RunE:  runReferral,
	}

	referralCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	referralCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(referralCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show aggregation cursors and row counts",
		RunE:  runStatus,
	}

	statusCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	statusCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(statusCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
