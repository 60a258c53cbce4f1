package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/clipsync/internal/errs"
	"github.com/and161185/clipsync/internal/model"
	"github.com/and161185/clipsync/internal/repository"
)

// DefaultMaxContentChars is the content ceiling used when none is configured.
const DefaultMaxContentChars = 15000

// EntryService is the Entry Store: the ordered per-session entry collection.
type EntryService interface {
	// List returns a session's entries, newest first.
	List(ctx context.Context, code string) ([]model.Entry, error)
	// Append validates and persists a new entry, then announces it.
	Append(ctx context.Context, code, content string, att *model.Attachment) (*model.Entry, error)
	// Get returns one entry by id.
	Get(ctx context.Context, id string) (*model.Entry, error)
	// Delete removes one entry, releasing its attachment best-effort.
	Delete(ctx context.Context, id string) error
	// Clear removes every entry of a session.
	Clear(ctx context.Context, code string) (model.ClearResult, error)
}

// Publisher announces committed entry changes on a session topic.
type Publisher interface {
	Publish(ev model.Event) uint64
}

// BlobRemover releases attachment objects.
type BlobRemover interface {
	Remove(ctx context.Context, key string) error
}

type EntryServiceImpl struct {
	sessions repository.SessionRepository
	entries  repository.EntryRepository
	blobs    BlobRemover
	pub      Publisher
	maxChars int
	log      *zap.Logger

	// writes holds one lock per session so events leave in commit order.
	writes keyedMutex
}

// NewEntryService constructs EntryService. blobs may be nil when attachments are disabled.
func NewEntryService(sessions repository.SessionRepository, entries repository.EntryRepository,
	blobs BlobRemover, pub Publisher, maxChars int, log *zap.Logger) *EntryServiceImpl {
	if maxChars <= 0 {
		maxChars = DefaultMaxContentChars
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EntryServiceImpl{
		sessions: sessions,
		entries:  entries,
		blobs:    blobs,
		pub:      pub,
		maxChars: maxChars,
		log:      log,
	}
}

func (s *EntryServiceImpl) requireSession(ctx context.Context, code string) error {
	if code == "" {
		return errs.ErrSessionInvalid
	}
	ok, err := s.sessions.Exists(ctx, code)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrSessionInvalid
	}
	return nil
}

// List returns all entries ordered by CreatedAt descending.
func (s *EntryServiceImpl) List(ctx context.Context, code string) ([]model.Entry, error) {
	code = NormalizeCode(code)
	if err := s.requireSession(ctx, code); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return s.entries.ListBySession(ctx, code)
}

// Append is the single creation path for entries.
func (s *EntryServiceImpl) Append(ctx context.Context, code, content string, att *model.Attachment) (*model.Entry, error) {
	code = NormalizeCode(code)
	if err := model.ValidateContent(content, att, s.maxChars); err != nil {
		return nil, err
	}
	if att != nil {
		if att.Path == "" || att.URL == "" {
			return nil, fmt.Errorf("append entry: attachment without path/url: %w", errs.ErrContentEmpty)
		}
		if !ownedBy(att.Path, code) {
			return nil, fmt.Errorf("append entry: %q is outside session %s: %w", att.Path, code, errs.ErrInvalidAttachment)
		}
		if !att.Kind.Valid() {
			att.Kind = model.AttachmentFile
		}
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	e := &model.Entry{ID: id.String(), SessionCode: code, Content: content, Attachment: att}

	unlock := s.writes.Lock(code)
	defer unlock()

	if att != nil {
		if err := s.requireUnreferenced(ctx, code, att.Path); err != nil {
			return nil, fmt.Errorf("append entry: %w", err)
		}
	}
	if err := s.entries.Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("append entry: %w", err)
	}
	s.pub.Publish(model.Event{Kind: model.EventCreated, SessionCode: code, Entry: e})
	return e, nil
}

// Get fetches a single entry by id. Ids are UUIDs; anything else cannot
// name an entry and is reported as errs.ErrNotFound.
func (s *EntryServiceImpl) Get(ctx context.Context, id string) (*model.Entry, error) {
	if _, err := uuid.FromString(id); err != nil {
		return nil, errs.ErrNotFound
	}
	return s.entries.Get(ctx, id)
}

// Delete looks the entry up, releases its attachment, removes the row and
// announces the id. A failed release is logged and does not block deletion.
func (s *EntryServiceImpl) Delete(ctx context.Context, id string) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.writes.Lock(e.SessionCode)
	defer unlock()

	s.release(ctx, e)
	if err := s.entries.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	s.pub.Publish(model.Event{Kind: model.EventDeleted, SessionCode: e.SessionCode, EntryID: id})
	return nil
}

// Clear removes all entries of a session. One cleared event is published when
// something was removed; clearing an empty session publishes nothing.
func (s *EntryServiceImpl) Clear(ctx context.Context, code string) (model.ClearResult, error) {
	code = NormalizeCode(code)
	if err := s.requireSession(ctx, code); err != nil {
		return model.ClearResult{}, fmt.Errorf("clear session: %w", err)
	}

	unlock := s.writes.Lock(code)
	defer unlock()

	list, err := s.entries.ListBySession(ctx, code)
	if err != nil {
		return model.ClearResult{}, fmt.Errorf("clear session: %w", err)
	}
	for i := range list {
		s.release(ctx, &list[i])
	}
	n, err := s.entries.DeleteBySession(ctx, code)
	if err != nil {
		return model.ClearResult{}, fmt.Errorf("clear session: %w", err)
	}
	res := model.ClearResult{Removed: n}
	if !res.Nothing() {
		s.pub.Publish(model.Event{Kind: model.EventCleared, SessionCode: code})
	}
	return res, nil
}

// ownedBy reports whether blob key p lives under the session's upload prefix.
func ownedBy(p, code string) bool {
	prefix := "sessions/" + code + "/"
	return code != "" && path.Clean(p) == p && strings.HasPrefix(p, prefix) && len(p) > len(prefix)
}

// requireUnreferenced fails when another entry of the session already holds
// key. Caller holds the session write lock.
func (s *EntryServiceImpl) requireUnreferenced(ctx context.Context, code, key string) error {
	list, err := s.entries.ListBySession(ctx, code)
	if err != nil {
		return err
	}
	for _, e := range list {
		if e.HasAttachment() && e.Attachment.Path == key {
			return fmt.Errorf("%q already attached to entry %s: %w", key, e.ID, errs.ErrInvalidAttachment)
		}
	}
	return nil
}

func (s *EntryServiceImpl) release(ctx context.Context, e *model.Entry) {
	if s.blobs == nil || !e.HasAttachment() {
		return
	}
	if err := s.blobs.Remove(ctx, e.Attachment.Path); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("attachment release failed",
			zap.String("entry", e.ID), zap.String("path", e.Attachment.Path), zap.Error(err))
	}
}
