package postgres

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"affiliateScope/internal/aggregate"
)

// Store provides Postgres persistence for the referral registry, the
// aggregated stats tables, and the aggregation cursors.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// WithAggregationTx runs fn in one transaction holding the advisory lock for
// the aggregator kind. The lock is transaction-scoped, so two invocations of
// the same kind serialize: the second blocks until the first commits or rolls
// back, then sees its cursor. An error from fn rolls back everything.
func (s *Store) WithAggregationTx(ctx context.Context, kind string, fn func(tx aggregate.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey(kind)); err != nil {
		return fmt.Errorf("advisory lock %s: %w", kind, err)
	}

	if err := fn(&aggTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// aggTx implements aggregate.Tx over a pgx transaction.
type aggTx struct {
	tx pgx.Tx
}

func lockKey(kind string) int64 {
	h := fnv.New64a()
	h.Write([]byte("affiliate_aggregation/" + kind))
	return int64(h.Sum64())
}
