package model

import "fmt"

// Referral records that an affiliate referred a referee at a block height.
// A referee has at most one referrer; the registry enforces uniqueness on the
// referee address. Rows are never mutated or deleted once written.
type Referral struct {
	AffiliateAddress string
	RefereeAddress   string
	ReferredAtBlock  int64
}

// Validate checks a referral before it is written to the registry.
func (r Referral) Validate() error {
	if r.AffiliateAddress == "" {
		return fmt.Errorf("affiliate address is empty")
	}
	if r.RefereeAddress == "" {
		return fmt.Errorf("referee address is empty")
	}
	if r.AffiliateAddress == r.RefereeAddress {
		return fmt.Errorf("address %s cannot refer itself", r.RefereeAddress)
	}
	if r.ReferredAtBlock < 0 {
		return fmt.Errorf("negative referral height %d", r.ReferredAtBlock)
	}
	return nil
}

// AffiliateSnapshot is the point-in-time view of one affiliate's registry
// membership: how many referees it currently has and the earliest block any
// of them was referred at. Snapshot fields overwrite stored values on merge,
// they are never summed.
type AffiliateSnapshot struct {
	AffiliateAddress   string
	ReferredUsers      int64
	FirstReferralBlock int64
}
