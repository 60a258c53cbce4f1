package postgres

import (
	"context"
	"fmt"

	"github.com/and161185/clipsync/internal/model"
)

// CounterRepo implements CounterRepository using a single-row table.
type CounterRepo struct{ db *DB }

// NewCounterRepo constructs a counter repository.
func NewCounterRepo(db *DB) *CounterRepo { return &CounterRepo{db: db} }

// Increment bumps the counters in one statement.
func (r *CounterRepo) Increment(ctx context.Context, unique bool) (model.VisitCounter, error) {
	const q = `
UPDATE visit_counter
SET total = total + 1,
    unique_visitors = unique_visitors + CASE WHEN $1 THEN 1 ELSE 0 END
WHERE id = 1
RETURNING total, unique_visitors`
	var c model.VisitCounter
	if err := r.db.Pool.QueryRow(ctx, q, unique).Scan(&c.Total, &c.Unique); err != nil {
		return model.VisitCounter{}, fmt.Errorf("increment counter: %w", err)
	}
	return c, nil
}
