package aggregate

import (
	"affiliateScope/internal/model"
)

// accumulateAffiliates folds eligible fills into one delta per affiliate.
// Fee bucketing:
//   - earnings: affiliate rev share of every eligible fill
//   - maker fees: positive maker-side fees (liquidation-maker included)
//   - maker rebates: negative maker-side fees
//   - taker fees: taker-side fees of plain LIMIT fills only; liquidation
//     taker fees are tracked at referee granularity, not here
//   - volume: price*size of every eligible fill
//
// The fold is a commutative sum, so input order never matters.
func accumulateAffiliates(fills []model.AttributedFill) map[string]*model.AffiliateDelta {
	deltas := make(map[string]*model.AffiliateDelta)
	for _, f := range fills {
		if !Eligible(f) {
			continue
		}
		d := deltas[f.AffiliateAddress]
		if d == nil {
			d = model.NewAffiliateDelta()
			deltas[f.AffiliateAddress] = d
		}
		d.Earnings = d.Earnings.Add(f.RevShare)
		d.Volume = d.Volume.Add(f.Notional())

		switch f.Liquidity {
		case model.LiquidityMaker:
			d.MakerTrades++
			switch f.Fee.Sign() {
			case 1:
				d.MakerFees = d.MakerFees.Add(f.Fee)
			case -1:
				d.MakerRebates = d.MakerRebates.Add(f.Fee)
			}
		case model.LiquidityTaker:
			d.TakerTrades++
			if f.Type == model.FillLimit {
				d.TakerFees = d.TakerFees.Add(f.Fee)
			}
		}
	}
	return deltas
}

// accumulateReferees folds eligible fills into one delta per referee. The
// bucketing matches accumulateAffiliates except taker-side LIQUIDATED fees
// land in a dedicated liquidation bucket.
func accumulateReferees(fills []model.AttributedFill) map[string]*model.RefereeDelta {
	deltas := make(map[string]*model.RefereeDelta)
	for _, f := range fills {
		if !Eligible(f) {
			continue
		}
		d := deltas[f.RefereeAddress]
		if d == nil {
			d = model.NewRefereeDelta(f.AffiliateAddress, f.ReferredAtBlock)
			deltas[f.RefereeAddress] = d
		}
		d.Earnings = d.Earnings.Add(f.RevShare)
		d.Volume = d.Volume.Add(f.Notional())

		switch f.Liquidity {
		case model.LiquidityMaker:
			d.MakerTrades++
			switch f.Fee.Sign() {
			case 1:
				d.MakerFees = d.MakerFees.Add(f.Fee)
			case -1:
				d.MakerRebates = d.MakerRebates.Add(f.Fee)
			}
		case model.LiquidityTaker:
			d.TakerTrades++
			switch f.Type {
			case model.FillLimit:
				d.TakerFees = d.TakerFees.Add(f.Fee)
			case model.FillLiquidated:
				d.LiquidationFees = d.LiquidationFees.Add(f.Fee)
			}
		}
	}
	return deltas
}
