package aggregate

import "affiliateScope/internal/model"

// Eligible reports whether a fill counts toward its referee's attribution.
// A fill counts iff it executed at or after the block the referral was
// recorded at; fills from before the referral contribute to no statistic,
// including trade counts. There is no grace period and no retroactive credit.
func Eligible(f model.AttributedFill) bool {
	return f.CreatedAtHeight >= f.ReferredAtBlock
}
