// Package memory contains in-process implementations of repository interfaces,
// used when no database is configured and in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/and161185/clipsync/internal/errs"
	"github.com/and161185/clipsync/internal/model"
)

// Store keeps sessions, entries and the visit counter behind one mutex.
// It implements SessionRepository, EntryRepository and CounterRepository.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]time.Time
	entries  map[string]model.Entry // by id
	seq      int64
	lastAt   map[string]time.Time // per session, keeps CreatedAt non-decreasing
	counter  model.VisitCounter
	now      func() time.Time
}

// New creates an empty store using the wall clock.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock creates an empty store with an injected clock.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		sessions: make(map[string]time.Time),
		entries:  make(map[string]model.Entry),
		lastAt:   make(map[string]time.Time),
		now:      now,
	}
}

// Create stores a new session record.
func (s *Store) Create(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[code]; ok {
		return errs.ErrAlreadyExists
	}
	s.sessions[code] = s.now().UTC()
	return nil
}

// Exists reports whether the session exists.
func (s *Store) Exists(ctx context.Context, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[code]
	return ok, nil
}

// ListBySession returns entries newest first; equal timestamps keep store order (later seq first).
func (s *Store) ListBySession(ctx context.Context, code string) ([]model.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]model.Entry, 0)
	for _, e := range s.entries {
		if e.SessionCode == code {
			out = append(out, cloneEntry(e))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Seq > out[j].Seq
	})
	return out, nil
}

// Insert persists e, assigning CreatedAt and Seq.
func (s *Store) Insert(ctx context.Context, e *model.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[e.SessionCode]; !ok {
		return errs.ErrSessionInvalid
	}
	if _, ok := s.entries[e.ID]; ok {
		return errs.ErrAlreadyExists
	}
	at := s.now().UTC()
	if last := s.lastAt[e.SessionCode]; at.Before(last) {
		at = last
	}
	s.lastAt[e.SessionCode] = at
	s.seq++
	e.CreatedAt = at
	e.Seq = s.seq
	s.entries[e.ID] = cloneEntry(*e)
	return nil
}

// Get loads one entry.
func (s *Store) Get(ctx context.Context, id string) (*model.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := cloneEntry(e)
	return &c, nil
}

// Delete removes one entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

// DeleteBySession removes all entries of a session.
func (s *Store) DeleteBySession(ctx context.Context, code string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.entries {
		if e.SessionCode == code {
			delete(s.entries, id)
			n++
		}
	}
	return n, nil
}

// Increment bumps the visit counter.
func (s *Store) Increment(ctx context.Context, unique bool) (model.VisitCounter, error) {
	if err := ctx.Err(); err != nil {
		return model.VisitCounter{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter.Total++
	if unique {
		s.counter.Unique++
	}
	return s.counter, nil
}

func cloneEntry(e model.Entry) model.Entry {
	if e.Attachment != nil {
		a := *e.Attachment
		e.Attachment = &a
	}
	return e
}
