package aggregate

import (
	"context"
	"time"

	"affiliateScope/internal/model"
)

// Aggregator kinds. Each kind owns its own cursor row and advisory lock, so
// the two aggregators can run concurrently with each other while invocations
// of the same kind serialize.
const (
	KindAffiliateInfo = "affiliate_info"
	KindRefereeStats  = "affiliate_referee_stats"
)

// Tx is one aggregation transaction. Everything called on it commits or
// rolls back as a unit; a failed run leaves neither merged stats nor an
// advanced cursor behind.
type Tx interface {
	// EligibleFills returns fills joined to their referee's referral for the
	// half-open window (start, end]. Window filtering happens in the query;
	// block-height eligibility is applied by the caller via Eligible.
	EligibleFills(ctx context.Context, start, end time.Time) ([]model.AttributedFill, error)

	// AffiliateSnapshots returns the current registry view for every
	// affiliate: distinct referee count and minimum referral block.
	AffiliateSnapshots(ctx context.Context) ([]model.AffiliateSnapshot, error)

	// MergeAffiliateStats upserts one row per snapshot affiliate, adding the
	// matching delta (zero when absent) and overwriting the snapshot fields.
	MergeAffiliateStats(ctx context.Context, deltas map[string]*model.AffiliateDelta, snapshots []model.AffiliateSnapshot) error

	// MergeRefereeStats upserts one row per referee delta, adding additive
	// fields and overwriting the affiliate label and referral block.
	MergeRefereeStats(ctx context.Context, deltas map[string]*model.RefereeDelta) error

	// Cursor returns the stored exclusive lower bound of the kind's next
	// window, or ok=false when the kind has never completed a run.
	Cursor(ctx context.Context, kind string) (time.Time, bool, error)

	// SetCursor records windowEnd as the kind's next window start.
	SetCursor(ctx context.Context, kind string, next time.Time) error
}

// Store opens aggregation transactions. Implementations must serialize
// concurrent transactions of the same kind (the Postgres store takes a
// transaction-scoped advisory lock keyed by kind) and roll back fully when
// fn returns an error.
type Store interface {
	WithAggregationTx(ctx context.Context, kind string, fn func(tx Tx) error) error
}
