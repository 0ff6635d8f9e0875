package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"affiliateScope/internal/aggregate"
	"affiliateScope/internal/config"
	"affiliateScope/internal/model"
	"affiliateScope/internal/storage/postgres"
)

func runInitDB(cmd *cobra.Command, _ []string) error {
	ctx, store, logger, err := adminSetup(cmd)
	if err != nil {
		return err
	}
	defer store.Close()
	defer logger.Sync()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	logger.Info("schema applied")
	return nil
}

func runReferral(cmd *cobra.Command, args []string) error {
	ctx, store, logger, err := adminSetup(cmd)
	if err != nil {
		return err
	}
	defer store.Close()
	defer logger.Sync()

	height, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return fmt.Errorf("parse block height: %w", err)
	}

	referral := model.Referral{
		AffiliateAddress: args[0],
		RefereeAddress:   args[1],
		ReferredAtBlock:  height,
	}
	if err := store.CreateReferral(ctx, referral); err != nil {
		return err
	}

	logger.Info("referral recorded",
		zap.String("affiliate", referral.AffiliateAddress),
		zap.String("referee", referral.RefereeAddress),
		zap.Int64("block", referral.ReferredAtBlock),
	)
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx, store, logger, err := adminSetup(cmd)
	if err != nil {
		return err
	}
	defer store.Close()
	defer logger.Sync()

	for _, kind := range []string{aggregate.KindAffiliateInfo, aggregate.KindRefereeStats} {
		cursor, ok, err := store.CursorByKind(ctx, kind)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("%s: no cursor (never ran)\n", kind)
			continue
		}
		fmt.Printf("%s: next window starts after %s\n", kind, cursor.UTC().Format(time.RFC3339))
	}

	affiliates, referees, err := store.Counts(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("affiliates with stats: %d\nreferees with stats: %d\n", affiliates, referees)
	return nil
}

func adminSetup(cmd *cobra.Command) (context.Context, *postgres.Store, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, err
	}

	if cfg.PGDSN == "" {
		return nil, nil, nil, fmt.Errorf("pg dsn is required")
	}

	ctx := context.Background()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return ctx, store, logger, nil
}
