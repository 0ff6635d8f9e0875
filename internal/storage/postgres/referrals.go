package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"affiliateScope/internal/model"
)

// ErrDuplicateReferral is returned when a referral already exists for the
// referee. A second referral event for the same address is a data-integrity
// problem upstream, not something to merge silently.
var ErrDuplicateReferral = errors.New("referee already has a referrer")

const pgUniqueViolation = "23505"

// CreateReferral records an affiliate->referee edge. Rows are immutable once
// written.
func (s *Store) CreateReferral(ctx context.Context, r model.Referral) error {
	if err := r.Validate(); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO referrals (referee_address, affiliate_address, referred_at_block)
		VALUES ($1, $2, $3)
	`, r.RefereeAddress, r.AffiliateAddress, r.ReferredAtBlock)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateReferral, r.RefereeAddress)
		}
		return fmt.Errorf("insert referral: %w", err)
	}
	return nil
}

// ReferralByReferee returns the referral edge for a referee, or ok=false when
// the address was never referred.
func (s *Store) ReferralByReferee(ctx context.Context, referee string) (model.Referral, bool, error) {
	var r model.Referral
	row := s.pool.QueryRow(ctx, `
		SELECT referee_address, affiliate_address, referred_at_block
		FROM referrals WHERE referee_address = $1
	`, referee)
	if err := row.Scan(&r.RefereeAddress, &r.AffiliateAddress, &r.ReferredAtBlock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Referral{}, false, nil
		}
		return model.Referral{}, false, fmt.Errorf("query referral: %w", err)
	}
	return r, true, nil
}

// AffiliateSnapshots returns the current registry view per affiliate:
// distinct referee count and minimum referral block. A referee has one
// referral row by primary key, so COUNT(*) is a distinct-user count.
func (t *aggTx) AffiliateSnapshots(ctx context.Context) ([]model.AffiliateSnapshot, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT affiliate_address, COUNT(*), MIN(referred_at_block)
		FROM referrals
		GROUP BY affiliate_address
	`)
	if err != nil {
		return nil, fmt.Errorf("query affiliate snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []model.AffiliateSnapshot
	for rows.Next() {
		var snap model.AffiliateSnapshot
		if err := rows.Scan(&snap.AffiliateAddress, &snap.ReferredUsers, &snap.FirstReferralBlock); err != nil {
			return nil, fmt.Errorf("scan affiliate snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// Counts returns how many affiliates and referees currently have stats rows.
func (s *Store) Counts(ctx context.Context) (affiliates, referees int64, err error) {
	if err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM affiliate_info`).Scan(&affiliates); err != nil {
		return 0, 0, fmt.Errorf("count affiliates: %w", err)
	}
	if err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM affiliate_referee_stats`).Scan(&referees); err != nil {
		return 0, 0, fmt.Errorf("count referees: %w", err)
	}
	return affiliates, referees, nil
}
