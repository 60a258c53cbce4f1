package postgres

import (
	"context"
	"fmt"

	"github.com/and161185/clipsync/internal/errs"
)

// SessionRepo implements SessionRepository using PostgreSQL.
type SessionRepo struct{ db *DB }

// NewSessionRepo constructs a session repository.
func NewSessionRepo(db *DB) *SessionRepo { return &SessionRepo{db: db} }

// Create inserts a session row.
func (r *SessionRepo) Create(ctx context.Context, code string) error {
	const q = `INSERT INTO sessions (code) VALUES ($1)`
	if _, err := r.db.Pool.Exec(ctx, q, code); err != nil {
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Exists reports whether a session row exists.
func (r *SessionRepo) Exists(ctx context.Context, code string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM sessions WHERE code=$1)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, code).Scan(&ok); err != nil {
		return false, fmt.Errorf("session exists: %w", err)
	}
	return ok, nil
}
