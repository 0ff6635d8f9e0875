package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Liquidity is the side of a trade a fill was on.
type Liquidity string

const (
	LiquidityMaker Liquidity = "MAKER"
	LiquidityTaker Liquidity = "TAKER"
)

// FillType classifies how a fill was produced. Upstream defines more values
// than aggregation distinguishes; unknown values pass through untouched.
type FillType string

const (
	FillLimit       FillType = "LIMIT"
	FillLiquidated  FillType = "LIQUIDATED"
	FillLiquidation FillType = "LIQUIDATION"
)

// ValidLiquidity reports whether s is a known liquidity side.
func ValidLiquidity(s string) bool {
	switch Liquidity(s) {
	case LiquidityMaker, LiquidityTaker:
		return true
	}
	return false
}

// AttributedFill is one fill joined to the referral of the referee that placed
// it. This is the row shape both aggregators consume: the storage layer
// produces it from referrals -> subaccounts -> fills, window-filtered; the
// eligibility check on block heights happens in the aggregate package.
type AttributedFill struct {
	AffiliateAddress string
	RefereeAddress   string
	ReferredAtBlock  int64
	Liquidity        Liquidity
	Type             FillType
	Fee              decimal.Decimal
	RevShare         decimal.Decimal
	Price            decimal.Decimal
	Size             decimal.Decimal
	CreatedAt        time.Time
	CreatedAtHeight  int64
}

// Validate checks the fields aggregation depends on.
func (f AttributedFill) Validate() error {
	if f.AffiliateAddress == "" {
		return fmt.Errorf("affiliate address is empty")
	}
	if f.RefereeAddress == "" {
		return fmt.Errorf("referee address is empty")
	}
	if !ValidLiquidity(string(f.Liquidity)) {
		return fmt.Errorf("unknown liquidity %q", f.Liquidity)
	}
	if f.CreatedAtHeight < 0 {
		return fmt.Errorf("negative fill height %d", f.CreatedAtHeight)
	}
	if f.RevShare.IsNegative() {
		return fmt.Errorf("negative rev share %s", f.RevShare)
	}
	return nil
}

// Notional returns price * size for the fill.
func (f AttributedFill) Notional() decimal.Decimal {
	return f.Price.Mul(f.Size)
}
