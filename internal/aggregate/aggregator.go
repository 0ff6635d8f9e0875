package aggregate

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Aggregator computes windowed affiliate attribution and merges it into the
// running-totals tables. It keeps no state between invocations: every call is
// a pure function of the window, the referral registry, and the fill ledger,
// plus one transactional merge.
type Aggregator struct {
	store  Store
	logger *zap.Logger
}

func NewAggregator(store Store, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{store: store, logger: logger}
}

// UpdateAffiliateInfo merges the window's per-affiliate deltas into
// affiliate_info. Re-running the same non-empty window double-adds; callers
// own exactly-once via the cursor protocol. Empty windows are a no-op.
func (a *Aggregator) UpdateAffiliateInfo(ctx context.Context, w Window) error {
	if w.Empty() {
		a.logger.Debug("skip empty window", zap.String("kind", KindAffiliateInfo), zap.String("window", w.String()))
		return nil
	}
	return a.store.WithAggregationTx(ctx, KindAffiliateInfo, func(tx Tx) error {
		return a.affiliateWindow(ctx, tx, w)
	})
}

// UpdateRefereeStats merges the window's per-referee deltas into
// affiliate_referee_stats. Same window and exactly-once semantics as
// UpdateAffiliateInfo.
func (a *Aggregator) UpdateRefereeStats(ctx context.Context, w Window) error {
	if w.Empty() {
		a.logger.Debug("skip empty window", zap.String("kind", KindRefereeStats), zap.String("window", w.String()))
		return nil
	}
	return a.store.WithAggregationTx(ctx, KindRefereeStats, func(tx Tx) error {
		return a.refereeWindow(ctx, tx, w)
	})
}

func (a *Aggregator) affiliateWindow(ctx context.Context, tx Tx, w Window) error {
	fills, err := tx.EligibleFills(ctx, w.Start, w.End)
	if err != nil {
		return fmt.Errorf("query fills: %w", err)
	}
	deltas := accumulateAffiliates(fills)

	// Snapshot fields come from the full registry, not the window: a new
	// referral with zero fills still bumps the referred-user count.
	snapshots, err := tx.AffiliateSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("query registry snapshot: %w", err)
	}

	if err := tx.MergeAffiliateStats(ctx, deltas, snapshots); err != nil {
		return fmt.Errorf("merge affiliate stats: %w", err)
	}

	a.logger.Info("affiliate info updated",
		zap.String("window", w.String()),
		zap.Int("fills", len(fills)),
		zap.Int("affiliates", len(snapshots)),
	)
	return nil
}

func (a *Aggregator) refereeWindow(ctx context.Context, tx Tx, w Window) error {
	fills, err := tx.EligibleFills(ctx, w.Start, w.End)
	if err != nil {
		return fmt.Errorf("query fills: %w", err)
	}
	deltas := accumulateReferees(fills)

	if err := tx.MergeRefereeStats(ctx, deltas); err != nil {
		return fmt.Errorf("merge referee stats: %w", err)
	}

	a.logger.Info("referee stats updated",
		zap.String("window", w.String()),
		zap.Int("fills", len(fills)),
		zap.Int("referees", len(deltas)),
	)
	return nil
}
