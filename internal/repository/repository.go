// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/clipsync/internal/model"
)

// SessionRepository is the Session Registry backend. Codes arrive already uppercase.
type SessionRepository interface {
	// Create stores a new session record; returns errs.ErrAlreadyExists on a taken code.
	Create(ctx context.Context, code string) error
	// Exists reports whether a session record with code exists.
	Exists(ctx context.Context, code string) (bool, error)
}

// EntryRepository is the ordered Entry Store backend.
type EntryRepository interface {
	// ListBySession returns a session's entries ordered by CreatedAt DESC, Seq DESC.
	ListBySession(ctx context.Context, code string) ([]model.Entry, error)
	// Insert persists e and fills the server-assigned CreatedAt and Seq.
	// Returns errs.ErrSessionInvalid when the session does not exist.
	Insert(ctx context.Context, e *model.Entry) error
	// Get loads one entry by id; errs.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*model.Entry, error)
	// Delete removes one entry by id; errs.ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
	// DeleteBySession removes all entries of a session and returns how many were removed.
	DeleteBySession(ctx context.Context, code string) (int, error)
}

// CounterRepository holds the shared visitor counter record.
type CounterRepository interface {
	// Increment atomically bumps total, and unique when unique is true.
	Increment(ctx context.Context, unique bool) (model.VisitCounter, error)
}
