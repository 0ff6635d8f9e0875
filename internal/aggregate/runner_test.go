package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliateScope/internal/model"
)

// fakeStore mirrors the Postgres store's transactional contract in memory:
// each WithAggregationTx works on a copy of the state and publishes it only
// when fn succeeds, so a failed run leaves no trace.
type fakeStore struct {
	ledger    []model.AttributedFill
	snapshots []model.AffiliateSnapshot

	cursors   map[string]time.Time
	affiliate map[string]model.AffiliateStats
	referee   map[string]model.RefereeStats

	txKinds   []string
	failMerge bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		cursors:   make(map[string]time.Time),
		affiliate: make(map[string]model.AffiliateStats),
		referee:   make(map[string]model.RefereeStats),
	}
}

func (s *fakeStore) WithAggregationTx(_ context.Context, kind string, fn func(tx Tx) error) error {
	s.txKinds = append(s.txKinds, kind)

	tx := &fakeTx{
		store:     s,
		cursors:   cloneMap(s.cursors),
		affiliate: cloneMap(s.affiliate),
		referee:   cloneMap(s.referee),
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.cursors = tx.cursors
	s.affiliate = tx.affiliate
	s.referee = tx.referee
	return nil
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type fakeTx struct {
	store     *fakeStore
	cursors   map[string]time.Time
	affiliate map[string]model.AffiliateStats
	referee   map[string]model.RefereeStats
}

func (t *fakeTx) EligibleFills(_ context.Context, start, end time.Time) ([]model.AttributedFill, error) {
	w := Window{Start: start, End: end}
	var out []model.AttributedFill
	for _, f := range t.store.ledger {
		if w.Contains(f.CreatedAt) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (t *fakeTx) AffiliateSnapshots(_ context.Context) ([]model.AffiliateSnapshot, error) {
	return t.store.snapshots, nil
}

func (t *fakeTx) MergeAffiliateStats(_ context.Context, deltas map[string]*model.AffiliateDelta, snapshots []model.AffiliateSnapshot) error {
	if t.store.failMerge {
		return errors.New("merge failed")
	}
	for _, snap := range snapshots {
		delta := deltas[snap.AffiliateAddress]
		if delta == nil {
			delta = model.NewAffiliateDelta()
		}
		row, ok := t.affiliate[snap.AffiliateAddress]
		if !ok {
			row = model.AffiliateStats{Address: snap.AffiliateAddress}
		}
		row.Earnings = row.Earnings.Add(delta.Earnings)
		row.MakerTrades += delta.MakerTrades
		row.TakerTrades += delta.TakerTrades
		row.MakerFees = row.MakerFees.Add(delta.MakerFees)
		row.TakerFees = row.TakerFees.Add(delta.TakerFees)
		row.MakerRebates = row.MakerRebates.Add(delta.MakerRebates)
		row.Volume = row.Volume.Add(delta.Volume)
		row.ReferredUsers = snap.ReferredUsers
		row.FirstReferralBlock = snap.FirstReferralBlock
		t.affiliate[snap.AffiliateAddress] = row
	}
	return nil
}

func (t *fakeTx) MergeRefereeStats(_ context.Context, deltas map[string]*model.RefereeDelta) error {
	if t.store.failMerge {
		return errors.New("merge failed")
	}
	for referee, delta := range deltas {
		row, ok := t.referee[referee]
		if !ok {
			row = model.RefereeStats{RefereeAddress: referee}
		}
		row.AffiliateAddress = delta.AffiliateAddress
		row.ReferralBlock = delta.ReferralBlock
		row.Earnings = row.Earnings.Add(delta.Earnings)
		row.MakerTrades += delta.MakerTrades
		row.TakerTrades += delta.TakerTrades
		row.MakerFees = row.MakerFees.Add(delta.MakerFees)
		row.TakerFees = row.TakerFees.Add(delta.TakerFees)
		row.MakerRebates = row.MakerRebates.Add(delta.MakerRebates)
		row.LiquidationFees = row.LiquidationFees.Add(delta.LiquidationFees)
		row.Volume = row.Volume.Add(delta.Volume)
		t.referee[referee] = row
	}
	return nil
}

func (t *fakeTx) Cursor(_ context.Context, kind string) (time.Time, bool, error) {
	cursor, ok := t.cursors[kind]
	return cursor, ok, nil
}

func (t *fakeTx) SetCursor(_ context.Context, kind string, next time.Time) error {
	t.cursors[kind] = next
	return nil
}

func referenceStore(now time.Time) *fakeStore {
	s := newFakeStore()
	s.ledger = referenceFills(now)
	s.snapshots = []model.AffiliateSnapshot{
		{AffiliateAddress: affiliateAddr, ReferredUsers: 1, FirstReferralBlock: 1},
	}
	return s
}

func TestRunnerFirstRunUsesInitialStart(t *testing.T) {
	now := time.Now().UTC()
	store := referenceStore(now)

	runner := NewRunner(store, NewAggregator(store, nil), now.Add(-3*time.Minute), nil)
	require.NoError(t, runner.Run(context.Background(), now))

	assert.Equal(t, []string{KindAffiliateInfo, KindRefereeStats}, store.txKinds)
	assert.Equal(t, now, store.cursors[KindAffiliateInfo])
	assert.Equal(t, now, store.cursors[KindRefereeStats])

	row := store.affiliate[affiliateAddr]
	assert.Equal(t, "2005", row.Earnings.String())
	assert.Equal(t, int64(4), row.MakerTrades)
	assert.Equal(t, int64(2), row.TakerTrades)
	assert.Equal(t, "2100", row.MakerFees.String())
	assert.Equal(t, "1000", row.TakerFees.String())
	assert.Equal(t, "-1000", row.MakerRebates.String())
	assert.Equal(t, int64(1), row.ReferredUsers)
	assert.Equal(t, int64(1), row.FirstReferralBlock)
	assert.Equal(t, "6", row.Volume.String())

	refereeRow := store.referee[refereeAddr]
	assert.Equal(t, affiliateAddr, refereeRow.AffiliateAddress)
	assert.Equal(t, "1000", refereeRow.LiquidationFees.String())
}

func TestRunnerIncrementalMatchesSingleRun(t *testing.T) {
	now := time.Now().UTC()
	initial := now.Add(-3 * time.Minute)
	ctx := context.Background()

	incremental := referenceStore(now)
	runner := NewRunner(incremental, NewAggregator(incremental, nil), initial, nil)
	require.NoError(t, runner.Run(ctx, now.Add(-90*time.Second)))
	require.NoError(t, runner.Run(ctx, now))

	single := referenceStore(now)
	singleRunner := NewRunner(single, NewAggregator(single, nil), initial, nil)
	require.NoError(t, singleRunner.Run(ctx, now))

	want := single.affiliate[affiliateAddr]
	got := incremental.affiliate[affiliateAddr]
	assert.Equal(t, want.Earnings.String(), got.Earnings.String())
	assert.Equal(t, want.MakerTrades, got.MakerTrades)
	assert.Equal(t, want.TakerTrades, got.TakerTrades)
	assert.Equal(t, want.MakerFees.String(), got.MakerFees.String())
	assert.Equal(t, want.TakerFees.String(), got.TakerFees.String())
	assert.Equal(t, want.MakerRebates.String(), got.MakerRebates.String())
	assert.Equal(t, want.Volume.String(), got.Volume.String())
	assert.Equal(t, want.ReferredUsers, got.ReferredUsers)

	wantRef := single.referee[refereeAddr]
	gotRef := incremental.referee[refereeAddr]
	assert.Equal(t, wantRef.Earnings.String(), gotRef.Earnings.String())
	assert.Equal(t, wantRef.LiquidationFees.String(), gotRef.LiquidationFees.String())
	assert.Equal(t, wantRef.Volume.String(), gotRef.Volume.String())
}

func TestRunnerRepeatWindowEndIsNoOp(t *testing.T) {
	now := time.Now().UTC()
	store := referenceStore(now)
	ctx := context.Background()

	runner := NewRunner(store, NewAggregator(store, nil), now.Add(-3*time.Minute), nil)
	require.NoError(t, runner.Run(ctx, now))
	first := store.affiliate[affiliateAddr]

	// Cursor already at windowEnd: nothing may double-add and the
	// referred-user snapshot stays put.
	require.NoError(t, runner.Run(ctx, now))
	second := store.affiliate[affiliateAddr]
	assert.Equal(t, first.Earnings.String(), second.Earnings.String())
	assert.Equal(t, first.MakerTrades, second.MakerTrades)
	assert.Equal(t, first.ReferredUsers, second.ReferredUsers)
}

func TestRunnerFailureLeavesCursorAndStats(t *testing.T) {
	now := time.Now().UTC()
	store := referenceStore(now)
	store.failMerge = true
	ctx := context.Background()

	runner := NewRunner(store, NewAggregator(store, nil), now.Add(-3*time.Minute), nil)
	require.Error(t, runner.Run(ctx, now))

	_, ok := store.cursors[KindAffiliateInfo]
	assert.False(t, ok, "failed run must not advance the cursor")
	assert.Empty(t, store.affiliate)
	assert.Empty(t, store.referee)

	// The retry of the identical window succeeds and produces the full
	// totals, because nothing was half-applied.
	store.failMerge = false
	require.NoError(t, runner.Run(ctx, now))
	assert.Equal(t, "2005", store.affiliate[affiliateAddr].Earnings.String())
}

func TestRunnerNewReferralWithoutFills(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore()
	store.snapshots = []model.AffiliateSnapshot{
		{AffiliateAddress: affiliateAddr, ReferredUsers: 2, FirstReferralBlock: 1},
	}

	runner := NewRunner(store, NewAggregator(store, nil), now.Add(-time.Minute), nil)
	require.NoError(t, runner.Run(context.Background(), now))

	row, ok := store.affiliate[affiliateAddr]
	require.True(t, ok, "registry membership alone must produce a row")
	assert.Equal(t, int64(2), row.ReferredUsers)
	assert.Equal(t, "0", row.Earnings.String())
	assert.Equal(t, int64(0), row.MakerTrades)
	assert.Empty(t, store.referee, "referee rows appear on first contribution only")
}

func TestRunnerReferralAfterFillHeight(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore()

	// Fill at height 1, referral recorded at block 2: membership counts,
	// fill-derived stats stay zero.
	f := fill(model.LiquidityTaker, model.FillLimit, "1000", "500", now.Add(-30*time.Second), 1)
	f.ReferredAtBlock = 2
	store.ledger = []model.AttributedFill{f}
	store.snapshots = []model.AffiliateSnapshot{
		{AffiliateAddress: affiliateAddr, ReferredUsers: 1, FirstReferralBlock: 2},
	}

	runner := NewRunner(store, NewAggregator(store, nil), now.Add(-time.Minute), nil)
	require.NoError(t, runner.Run(context.Background(), now))

	row := store.affiliate[affiliateAddr]
	assert.Equal(t, int64(1), row.ReferredUsers)
	assert.Equal(t, int64(2), row.FirstReferralBlock)
	assert.Equal(t, "0", row.Earnings.String())
	assert.Equal(t, int64(0), row.TakerTrades)
	assert.Equal(t, "0", row.Volume.String())
}

func TestAggregatorEmptyWindowSkipsStore(t *testing.T) {
	now := time.Now().UTC()
	store := referenceStore(now)
	agg := NewAggregator(store, nil)
	ctx := context.Background()

	require.NoError(t, agg.UpdateAffiliateInfo(ctx, Window{Start: now, End: now}))
	require.NoError(t, agg.UpdateRefereeStats(ctx, Window{Start: now, End: now.Add(-time.Second)}))
	assert.Empty(t, store.txKinds, "empty windows must not open a transaction")
}

func TestAggregatorExplicitWindowBoundaries(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore()
	boundary := now.Add(-time.Minute)

	atStart := fill(model.LiquidityMaker, model.FillLimit, "10", "1", boundary, 5)
	atEnd := fill(model.LiquidityMaker, model.FillLimit, "20", "2", now, 5)
	store.ledger = []model.AttributedFill{atStart, atEnd}
	store.snapshots = []model.AffiliateSnapshot{
		{AffiliateAddress: affiliateAddr, ReferredUsers: 1, FirstReferralBlock: 1},
	}

	agg := NewAggregator(store, nil)
	require.NoError(t, agg.UpdateAffiliateInfo(context.Background(), Window{Start: boundary, End: now}))

	// The fill at windowStart is excluded, the fill at windowEnd included.
	row := store.affiliate[affiliateAddr]
	assert.Equal(t, int64(1), row.MakerTrades)
	assert.Equal(t, "20", row.MakerFees.String())
	assert.Equal(t, "2", row.Earnings.String())
}
