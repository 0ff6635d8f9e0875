package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Cursor returns the exclusive lower bound of the kind's next aggregation
// window, or ok=false when the kind has never completed a run. Only valid
// inside an aggregation transaction, after its advisory lock is held.
func (t *aggTx) Cursor(ctx context.Context, kind string) (time.Time, bool, error) {
	var next time.Time
	row := t.tx.QueryRow(ctx,
		`SELECT next_window_start FROM aggregation_state WHERE name = $1`, kind)
	if err := row.Scan(&next); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return next, true, nil
}

// SetCursor upserts the kind's cursor. It commits with the stats merge of the
// same transaction, which is what makes each window exactly-once.
func (t *aggTx) SetCursor(ctx context.Context, kind string, next time.Time) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO aggregation_state (name, next_window_start, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET next_window_start = EXCLUDED.next_window_start, updated_at = now()
	`, kind, next)
	return err
}

// CursorByKind reads a cursor outside any aggregation transaction, for
// introspection only.
func (s *Store) CursorByKind(ctx context.Context, kind string) (time.Time, bool, error) {
	var next time.Time
	row := s.pool.QueryRow(ctx,
		`SELECT next_window_start FROM aggregation_state WHERE name = $1`, kind)
	if err := row.Scan(&next); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("query cursor %s: %w", kind, err)
	}
	return next, true, nil
}
