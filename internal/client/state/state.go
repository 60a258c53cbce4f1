// Package state persists the device's client state in a local SQLite file:
// the joined session code, the theme preference and whether this device's
// visit was already counted. It is read once at startup and written on every
// change.
package state

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/and161185/clipsync/internal/migrate"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Record is the persisted client state.
type Record struct {
	SessionCode  string
	Theme        string
	VisitCounted bool
}

// DB stores one Record in SQLite.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the state database at path and applies
// migrations. Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := migrate.Up(ctx, db, goose.DialectSQLite3, sub); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func sqliteDSN(path string) (string, error) {
	switch path {
	case "":
		return "", errors.New("state: db path is required")
	case ":memory:":
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("state: %w", err)
	}
	u := url.URL{Scheme: "file", Path: path}
	return u.String(), nil
}

// Close closes the database.
func (s *DB) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load reads the record.
func (s *DB) Load(ctx context.Context) (Record, error) {
	var r Record
	err := s.db.QueryRowContext(ctx,
		`SELECT session_code, theme, visit_counted FROM client_state WHERE id = 1`).
		Scan(&r.SessionCode, &r.Theme, &r.VisitCounted)
	if err != nil {
		return Record{}, fmt.Errorf("state: load: %w", err)
	}
	if r.Theme != ThemeDark {
		r.Theme = ThemeLight
	}
	return r, nil
}

// Save replaces the record.
func (s *DB) Save(ctx context.Context, r Record) error {
	if r.Theme != ThemeDark {
		r.Theme = ThemeLight
	}
	_, err := s.db.ExecContext(ctx, `
UPDATE client_state
SET session_code = ?, theme = ?, visit_counted = ?,
    updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
WHERE id = 1`, r.SessionCode, r.Theme, r.VisitCounted)
	if err != nil {
		return fmt.Errorf("state: save: %w", err)
	}
	return nil
}

// Memory is an in-process Record holder for tests and ephemeral clients.
type Memory struct {
	Rec Record
}

// Load returns the held record.
func (m *Memory) Load(context.Context) (Record, error) {
	if m.Rec.Theme == "" {
		m.Rec.Theme = ThemeLight
	}
	return m.Rec, nil
}

// Save replaces the held record.
func (m *Memory) Save(_ context.Context, r Record) error {
	m.Rec = r
	return nil
}
