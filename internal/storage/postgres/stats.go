package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"affiliateScope/internal/model"
)

var affiliateInfoUpsert = UpsertSpec{
	Table: "affiliate_info",
	Keys:  []string{"address"},
	Columns: []Column{
		{Name: "earnings", Policy: MergeAdd},
		{Name: "maker_trades", Policy: MergeAdd},
		{Name: "taker_trades", Policy: MergeAdd},
		{Name: "maker_fees", Policy: MergeAdd},
		{Name: "taker_fees", Policy: MergeAdd},
		{Name: "maker_rebates", Policy: MergeAdd},
		{Name: "volume", Policy: MergeAdd},
		{Name: "referred_users", Policy: MergeReplace},
		{Name: "first_referral_block", Policy: MergeReplace},
		{Name: "updated_at", Policy: MergeReplace},
	},
}

var refereeStatsUpsert = UpsertSpec{
	Table: "affiliate_referee_stats",
	Keys:  []string{"referee_address"},
	Columns: []Column{
		{Name: "affiliate_address", Policy: MergeReplace},
		{Name: "earnings", Policy: MergeAdd},
		{Name: "maker_trades", Policy: MergeAdd},
		{Name: "taker_trades", Policy: MergeAdd},
		{Name: "maker_fees", Policy: MergeAdd},
		{Name: "taker_fees", Policy: MergeAdd},
		{Name: "maker_rebates", Policy: MergeAdd},
		{Name: "liquidation_fees", Policy: MergeAdd},
		{Name: "volume", Policy: MergeAdd},
		{Name: "referral_block", Policy: MergeReplace},
		{Name: "updated_at", Policy: MergeReplace},
	},
}

// MergeAffiliateStats upserts one affiliate_info row per registry affiliate.
// Snapshot affiliates without window activity get a zero delta so their
// referred-user count still refreshes.
func (t *aggTx) MergeAffiliateStats(ctx context.Context, deltas map[string]*model.AffiliateDelta, snapshots []model.AffiliateSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	now := time.Now().UTC()
	query := affiliateInfoUpsert.SQL()
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		delta := deltas[snap.AffiliateAddress]
		if delta == nil {
			delta = model.NewAffiliateDelta()
		}
		batch.Queue(query,
			snap.AffiliateAddress,
			delta.Earnings.String(),
			delta.MakerTrades,
			delta.TakerTrades,
			delta.MakerFees.String(),
			delta.TakerFees.String(),
			delta.MakerRebates.String(),
			delta.Volume.String(),
			snap.ReferredUsers,
			snap.FirstReferralBlock,
			now,
		)
	}

	br := t.tx.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// MergeRefereeStats upserts one affiliate_referee_stats row per referee that
// contributed in the window. Referees without activity are untouched; a row
// appears on a referee's first contribution.
func (t *aggTx) MergeRefereeStats(ctx context.Context, deltas map[string]*model.RefereeDelta) error {
	if len(deltas) == 0 {
		return nil
	}

	now := time.Now().UTC()
	query := refereeStatsUpsert.SQL()
	batch := &pgx.Batch{}
	for referee, delta := range deltas {
		batch.Queue(query,
			referee,
			delta.AffiliateAddress,
			delta.Earnings.String(),
			delta.MakerTrades,
			delta.TakerTrades,
			delta.MakerFees.String(),
			delta.TakerFees.String(),
			delta.MakerRebates.String(),
			delta.LiquidationFees.String(),
			delta.Volume.String(),
			delta.ReferralBlock,
			now,
		)
	}

	br := t.tx.SendBatch(ctx, batch)
	defer br.Close()

	for range deltas {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

const affiliateStatsCols = `address, earnings::text, maker_trades, taker_trades,
	maker_fees::text, taker_fees::text, maker_rebates::text,
	referred_users, first_referral_block, volume::text`

// AffiliateStatsByAddress returns the running totals for one affiliate, or
// ok=false when the affiliate has no row yet.
func (s *Store) AffiliateStatsByAddress(ctx context.Context, address string) (model.AffiliateStats, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+affiliateStatsCols+` FROM affiliate_info WHERE address = $1`, address)

	var (
		stats                                              model.AffiliateStats
		earnings, makerFees, takerFees, rebates, volumeStr string
	)
	err := row.Scan(
		&stats.Address, &earnings, &stats.MakerTrades, &stats.TakerTrades,
		&makerFees, &takerFees, &rebates,
		&stats.ReferredUsers, &stats.FirstReferralBlock, &volumeStr,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.AffiliateStats{}, false, nil
		}
		return model.AffiliateStats{}, false, fmt.Errorf("query affiliate stats: %w", err)
	}

	if stats.Earnings, err = decimal.NewFromString(earnings); err != nil {
		return model.AffiliateStats{}, false, fmt.Errorf("parse earnings: %w", err)
	}
	if stats.MakerFees, err = decimal.NewFromString(makerFees); err != nil {
		return model.AffiliateStats{}, false, fmt.Errorf("parse maker fees: %w", err)
	}
	if stats.TakerFees, err = decimal.NewFromString(takerFees); err != nil {
		return model.AffiliateStats{}, false, fmt.Errorf("parse taker fees: %w", err)
	}
	if stats.MakerRebates, err = decimal.NewFromString(rebates); err != nil {
		return model.AffiliateStats{}, false, fmt.Errorf("parse maker rebates: %w", err)
	}
	if stats.Volume, err = decimal.NewFromString(volumeStr); err != nil {
		return model.AffiliateStats{}, false, fmt.Errorf("parse volume: %w", err)
	}
	return stats, true, nil
}

// RefereeStatsByAddress returns the running totals for one referred user, or
// ok=false when the referee has no row yet.
func (s *Store) RefereeStatsByAddress(ctx context.Context, referee string) (model.RefereeStats, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT referee_address, affiliate_address, earnings::text,
			maker_trades, taker_trades,
			maker_fees::text, taker_fees::text, maker_rebates::text,
			liquidation_fees::text, referral_block, volume::text
		FROM affiliate_referee_stats WHERE referee_address = $1`, referee)

	var (
		stats                                                    model.RefereeStats
		earnings, makerFees, takerFees, rebates, liqFees, volume string
	)
	err := row.Scan(
		&stats.RefereeAddress, &stats.AffiliateAddress, &earnings,
		&stats.MakerTrades, &stats.TakerTrades,
		&makerFees, &takerFees, &rebates,
		&liqFees, &stats.ReferralBlock, &volume,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RefereeStats{}, false, nil
		}
		return model.RefereeStats{}, false, fmt.Errorf("query referee stats: %w", err)
	}

	if stats.Earnings, err = decimal.NewFromString(earnings); err != nil {
		return model.RefereeStats{}, false, fmt.Errorf("parse earnings: %w", err)
	}
	if stats.MakerFees, err = decimal.NewFromString(makerFees); err != nil {
		return model.RefereeStats{}, false, fmt.Errorf("parse maker fees: %w", err)
	}
	if stats.TakerFees, err = decimal.NewFromString(takerFees); err != nil {
		return model.RefereeStats{}, false, fmt.Errorf("parse taker fees: %w", err)
	}
	if stats.MakerRebates, err = decimal.NewFromString(rebates); err != nil {
		return model.RefereeStats{}, false, fmt.Errorf("parse maker rebates: %w", err)
	}
	if stats.LiquidationFees, err = decimal.NewFromString(liqFees); err != nil {
		return model.RefereeStats{}, false, fmt.Errorf("parse liquidation fees: %w", err)
	}
	if stats.Volume, err = decimal.NewFromString(volume); err != nil {
		return model.RefereeStats{}, false, fmt.Errorf("parse volume: %w", err)
	}
	return stats, true, nil
}
