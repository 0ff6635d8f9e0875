package model

import "github.com/shopspring/decimal"

// AffiliateStats is one row of running lifetime totals per affiliate.
// Additive fields only ever grow by merged window deltas (maker rebates may
// go negative); ReferredUsers and FirstReferralBlock are snapshots overwritten
// on every run.
type AffiliateStats struct {
	Address            string
	Earnings           decimal.Decimal
	MakerTrades        int64
	TakerTrades        int64
	MakerFees          decimal.Decimal
	TakerFees          decimal.Decimal
	MakerRebates       decimal.Decimal
	ReferredUsers      int64
	FirstReferralBlock int64
	Volume             decimal.Decimal
}

// AffiliateDelta is the additive contribution of one window to one
// affiliate's totals.
type AffiliateDelta struct {
	Earnings     decimal.Decimal
	MakerTrades  int64
	TakerTrades  int64
	MakerFees    decimal.Decimal
	TakerFees    decimal.Decimal
	MakerRebates decimal.Decimal
	Volume       decimal.Decimal
}

// NewAffiliateDelta returns a zero-valued delta.
func NewAffiliateDelta() *AffiliateDelta {
	return &AffiliateDelta{
		Earnings:     decimal.Zero,
		MakerFees:    decimal.Zero,
		TakerFees:    decimal.Zero,
		MakerRebates: decimal.Zero,
		Volume:       decimal.Zero,
	}
}

// Add accumulates other into d.
func (d *AffiliateDelta) Add(other AffiliateDelta) {
	d.Earnings = d.Earnings.Add(other.Earnings)
	d.MakerTrades += other.MakerTrades
	d.TakerTrades += other.TakerTrades
	d.MakerFees = d.MakerFees.Add(other.MakerFees)
	d.TakerFees = d.TakerFees.Add(other.TakerFees)
	d.MakerRebates = d.MakerRebates.Add(other.MakerRebates)
	d.Volume = d.Volume.Add(other.Volume)
}

// IsZero reports whether the delta carries no contribution.
func (d *AffiliateDelta) IsZero() bool {
	return d.MakerTrades == 0 && d.TakerTrades == 0 &&
		d.Earnings.IsZero() && d.MakerFees.IsZero() && d.TakerFees.IsZero() &&
		d.MakerRebates.IsZero() && d.Volume.IsZero()
}
