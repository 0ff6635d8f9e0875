package model

import "github.com/shopspring/decimal"

// RefereeStats is one row of running lifetime totals per referred user.
// AffiliateAddress is a denormalized label for the referrer, ReferralBlock is
// a snapshot overwritten each run; every other field merges additively.
type RefereeStats struct {
	RefereeAddress   string
	AffiliateAddress string
	Earnings         decimal.Decimal
	MakerTrades      int64
	TakerTrades      int64
	MakerFees        decimal.Decimal
	TakerFees        decimal.Decimal
	MakerRebates     decimal.Decimal
	LiquidationFees  decimal.Decimal
	ReferralBlock    int64
	Volume           decimal.Decimal
}

// RefereeDelta is the additive contribution of one window to one referee's
// totals, with the referral metadata carried alongside.
type RefereeDelta struct {
	AffiliateAddress string
	ReferralBlock    int64
	Earnings         decimal.Decimal
	MakerTrades      int64
	TakerTrades      int64
	MakerFees        decimal.Decimal
	TakerFees        decimal.Decimal
	MakerRebates     decimal.Decimal
	LiquidationFees  decimal.Decimal
	Volume           decimal.Decimal
}

// NewRefereeDelta returns a zero-valued delta labeled with the referee's
// referral edge.
func NewRefereeDelta(affiliate string, referralBlock int64) *RefereeDelta {
	return &RefereeDelta{
		AffiliateAddress: affiliate,
		ReferralBlock:    referralBlock,
		Earnings:         decimal.Zero,
		MakerFees:        decimal.Zero,
		TakerFees:        decimal.Zero,
		MakerRebates:     decimal.Zero,
		LiquidationFees:  decimal.Zero,
		Volume:           decimal.Zero,
	}
}
