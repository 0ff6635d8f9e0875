package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"affiliateScope/internal/model"
)

// EligibleFills returns fills by referred users inside the half-open window
// (start, end], joined to the referral edge through subaccount ownership.
// Fills whose subaccount resolves to no referred owner fall out of the join;
// that is the steady state for most fills, not an error. The block-height
// eligibility check is left to the aggregate package so it stays one shared
// function.
func (t *aggTx) EligibleFills(ctx context.Context, start, end time.Time) ([]model.AttributedFill, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT r.affiliate_address, r.referee_address, r.referred_at_block,
			f.liquidity, f.type,
			f.fee::text, f.affiliate_rev_share::text, f.price::text, f.size::text,
			f.created_at, f.created_at_height
		FROM referrals r
		JOIN subaccounts s ON s.address = r.referee_address
		JOIN fills f ON f.subaccount_id = s.id
		WHERE f.created_at > $1 AND f.created_at <= $2
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query windowed fills: %w", err)
	}
	defer rows.Close()

	return scanAttributedFills(rows)
}

func scanAttributedFills(rows pgx.Rows) ([]model.AttributedFill, error) {
	var fills []model.AttributedFill
	for rows.Next() {
		var (
			f                          model.AttributedFill
			fee, revShare, price, size string
		)
		if err := rows.Scan(
			&f.AffiliateAddress, &f.RefereeAddress, &f.ReferredAtBlock,
			&f.Liquidity, &f.Type,
			&fee, &revShare, &price, &size,
			&f.CreatedAt, &f.CreatedAtHeight,
		); err != nil {
			return nil, fmt.Errorf("scan fill: %w", err)
		}

		var err error
		if f.Fee, err = decimal.NewFromString(fee); err != nil {
			return nil, fmt.Errorf("parse fee: %w", err)
		}
		if f.RevShare, err = decimal.NewFromString(revShare); err != nil {
			return nil, fmt.Errorf("parse rev share: %w", err)
		}
		if f.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price: %w", err)
		}
		if f.Size, err = decimal.NewFromString(size); err != nil {
			return nil, fmt.Errorf("parse size: %w", err)
		}
		fills = append(fills, f)
	}
	return fills, rows.Err()
}
