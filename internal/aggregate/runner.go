package aggregate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Runner drives the cursor protocol: each invocation reads the stored cursor
// for an aggregator kind, aggregates the window (cursor, windowEnd], and
// advances the cursor to windowEnd. Cursor read, stats merge, and cursor
// write share one transaction under the kind's advisory lock, so a window is
// applied exactly once no matter how invocations overlap or fail: a failed
// run rolls everything back and the next invocation retries the same window.
type Runner struct {
	store        Store
	agg          *Aggregator
	initialStart time.Time
	logger       *zap.Logger
}

// NewRunner builds a Runner. initialStart seeds the first window's exclusive
// lower bound for a kind that has never completed a run; choosing it is
// caller policy (indexer start time, epoch).
func NewRunner(store Store, agg *Aggregator, initialStart time.Time, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{store: store, agg: agg, initialStart: initialStart, logger: logger}
}

// Run executes one incremental pass of both aggregators up to windowEnd.
// Choosing windowEnd is caller policy too, typically now minus an ingestion
// lag. A kind whose cursor already reached windowEnd is skipped.
func (r *Runner) Run(ctx context.Context, windowEnd time.Time) error {
	if err := r.runKind(ctx, KindAffiliateInfo, windowEnd, r.agg.affiliateWindow); err != nil {
		return fmt.Errorf("%s: %w", KindAffiliateInfo, err)
	}
	if err := r.runKind(ctx, KindRefereeStats, windowEnd, r.agg.refereeWindow); err != nil {
		return fmt.Errorf("%s: %w", KindRefereeStats, err)
	}
	return nil
}

func (r *Runner) runKind(ctx context.Context, kind string, windowEnd time.Time, apply func(context.Context, Tx, Window) error) error {
	return r.store.WithAggregationTx(ctx, kind, func(tx Tx) error {
		// The cursor must be read after the kind's lock is held; reading it
		// outside the transaction would let two invocations aggregate the
		// same window.
		start, ok, err := tx.Cursor(ctx, kind)
		if err != nil {
			return fmt.Errorf("load cursor: %w", err)
		}
		if !ok {
			start = r.initialStart
		}

		w := Window{Start: start, End: windowEnd}
		if w.Empty() {
			r.logger.Debug("cursor up to date", zap.String("kind", kind), zap.Time("cursor", start))
			return nil
		}

		if err := apply(ctx, tx, w); err != nil {
			return err
		}

		if err := tx.SetCursor(ctx, kind, windowEnd); err != nil {
			return fmt.Errorf("advance cursor: %w", err)
		}
		return nil
	})
}
