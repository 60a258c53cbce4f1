// Package model defines domain entities used by services, repositories and clients.
package model

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/and161185/clipsync/internal/errs"
)

// Session is a sharing scope identified by a short code. Immutable once created.
type Session struct {
	Code      string
	CreatedAt time.Time
}

// AttachmentKind tags the kind of externally stored content.
type AttachmentKind string

const (
	AttachmentFile  AttachmentKind = "file"
	AttachmentImage AttachmentKind = "image"
)

// Valid reports whether k is a known attachment kind.
func (k AttachmentKind) Valid() bool {
	return k == AttachmentFile || k == AttachmentImage
}

// Attachment references binary content held by the attachment backend.
type Attachment struct {
	Path string         // backend object key, used for release
	URL  string         // public retrieval URL
	Kind AttachmentKind // file or image
	Name string         // original file name (display only)
}

// Entry is one immutable clipboard write belonging to a session.
type Entry struct {
	ID          string
	SessionCode string
	Content     string
	Attachment  *Attachment // nil when the entry is text only
	CreatedAt   time.Time   // server-assigned
	Seq         int64       // store insertion order, breaks CreatedAt ties
}

// HasAttachment reports whether the entry references stored content.
func (e Entry) HasAttachment() bool {
	return e.Attachment != nil && e.Attachment.Path != ""
}

// EventKind enumerates Change Channel message kinds.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventDeleted EventKind = "deleted"
	EventCleared EventKind = "cleared"
)

// Event is one Change Channel message for a session topic.
type Event struct {
	Kind        EventKind
	SessionCode string
	Entry       *Entry // set for EventCreated
	EntryID     string // set for EventDeleted
	Seq         uint64 // per-topic publish sequence, starts at 1
}

// ClearResult reports the outcome of a session-wide clear.
// Removed == 0 is the "nothing to clear" condition; no event is published for it.
type ClearResult struct {
	Removed int
}

// Nothing reports whether the clear found no entries.
func (r ClearResult) Nothing() bool { return r.Removed == 0 }

// VisitCounter is the shared visitor counter record.
type VisitCounter struct {
	Total  int64
	Unique int64
}

// ValidateContent applies the entry content rules shared by server and client.
// Content is counted in characters, not bytes; whitespace-only counts as empty.
func ValidateContent(content string, att *Attachment, maxChars int) error {
	if strings.TrimSpace(content) == "" && att == nil {
		return errs.ErrContentEmpty
	}
	if utf8.RuneCountInString(content) > maxChars {
		return errs.ErrContentTooLarge
	}
	return nil
}
