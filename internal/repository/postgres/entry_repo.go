package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/clipsync/internal/errs"
	"github.com/and161185/clipsync/internal/model"
	"github.com/jackc/pgx/v5"
)

// EntryRepo implements EntryRepository using PostgreSQL.
type EntryRepo struct{ db *DB }

// NewEntryRepo constructs an entry repository.
func NewEntryRepo(db *DB) *EntryRepo { return &EntryRepo{db: db} }

const entryColumns = `id, session_code, content, attachment_path, attachment_url, attachment_kind, attachment_name, created_at, seq`

// ListBySession returns entries newest first, equal timestamps by insertion order.
func (r *EntryRepo) ListBySession(ctx context.Context, code string) ([]model.Entry, error) {
	const q = `
SELECT ` + entryColumns + `
FROM entries
WHERE session_code=$1
ORDER BY created_at DESC, seq DESC`
	rows, err := r.db.Pool.Query(ctx, q, code)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	out := []model.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Insert persists e and reads back the server-assigned timestamp and sequence.
// created_at is clamped to the session's latest entry so per-session order never goes backwards.
func (r *EntryRepo) Insert(ctx context.Context, e *model.Entry) error {
	const q = `
INSERT INTO entries (id, session_code, content, attachment_path, attachment_url, attachment_kind, attachment_name, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,
  GREATEST(now(), COALESCE((SELECT max(created_at) FROM entries WHERE session_code=$2), now())))
RETURNING created_at, seq`
	var path, url, kind, name string
	if a := e.Attachment; a != nil {
		path, url, kind, name = a.Path, a.URL, string(a.Kind), a.Name
	}
	err := r.db.Pool.QueryRow(ctx, q, e.ID, e.SessionCode, e.Content, path, url, kind, name).
		Scan(&e.CreatedAt, &e.Seq)
	switch {
	case err == nil:
		return nil
	case isForeignKeyViolation(err):
		return errs.ErrSessionInvalid
	case isUniqueViolation(err):
		return errs.ErrAlreadyExists
	default:
		return fmt.Errorf("insert entry: %w", err)
	}
}

// Get loads a single entry by id.
func (r *EntryRepo) Get(ctx context.Context, id string) (*model.Entry, error) {
	const q = `SELECT ` + entryColumns + ` FROM entries WHERE id=$1`
	e, err := scanEntry(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Delete removes one entry row.
func (r *EntryRepo) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM entries WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if isInvalidText(err) {
		return errs.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteBySession removes every entry of a session.
func (r *EntryRepo) DeleteBySession(ctx context.Context, code string) (int, error) {
	const q = `DELETE FROM entries WHERE session_code=$1`
	tag, err := r.db.Pool.Exec(ctx, q, code)
	if err != nil {
		return 0, fmt.Errorf("clear entries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanEntry(row pgx.Row) (model.Entry, error) {
	var (
		e                     model.Entry
		path, url, kind, name string
	)
	if err := row.Scan(&e.ID, &e.SessionCode, &e.Content, &path, &url, &kind, &name, &e.CreatedAt, &e.Seq); err != nil {
		return model.Entry{}, err
	}
	if path != "" {
		e.Attachment = &model.Attachment{Path: path, URL: url, Kind: model.AttachmentKind(kind), Name: name}
	}
	return e, nil
}
