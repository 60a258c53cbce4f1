// Package convert maps domain types to wire messages and back.
package convert

import (
	v1 "github.com/and161185/clipsync/api/clipsync/v1"
	"github.com/and161185/clipsync/internal/model"
)

// ToWireAttachment converts a domain attachment; nil stays nil.
func ToWireAttachment(a *model.Attachment) *v1.Attachment {
	if a == nil {
		return nil
	}
	return &v1.Attachment{Path: a.Path, URL: a.URL, Kind: string(a.Kind), Name: a.Name}
}

// FromWireAttachment converts a wire attachment. An attachment without a path
// is treated as absent.
func FromWireAttachment(a *v1.Attachment) *model.Attachment {
	if a == nil || a.Path == "" {
		return nil
	}
	kind := model.AttachmentKind(a.Kind)
	if !kind.Valid() {
		kind = model.AttachmentFile
	}
	return &model.Attachment{Path: a.Path, URL: a.URL, Kind: kind, Name: a.Name}
}

// ToWireEntry converts a domain entry.
func ToWireEntry(e *model.Entry) *v1.Entry {
	if e == nil {
		return nil
	}
	return &v1.Entry{
		ID:          e.ID,
		SessionCode: e.SessionCode,
		Content:     e.Content,
		Attachment:  ToWireAttachment(e.Attachment),
		CreatedAt:   e.CreatedAt.UTC(),
		Seq:         e.Seq,
	}
}

// FromWireEntry converts a wire entry.
func FromWireEntry(e *v1.Entry) model.Entry {
	if e == nil {
		return model.Entry{}
	}
	return model.Entry{
		ID:          e.ID,
		SessionCode: e.SessionCode,
		Content:     e.Content,
		Attachment:  FromWireAttachment(e.Attachment),
		CreatedAt:   e.CreatedAt,
		Seq:         e.Seq,
	}
}

// ToWireEntries converts a list, preserving order.
func ToWireEntries(list []model.Entry) []*v1.Entry {
	out := make([]*v1.Entry, 0, len(list))
	for i := range list {
		out = append(out, ToWireEntry(&list[i]))
	}
	return out
}

// FromWireEntries converts a list, preserving order and skipping nil items.
func FromWireEntries(list []*v1.Entry) []model.Entry {
	out := make([]model.Entry, 0, len(list))
	for _, e := range list {
		if e == nil {
			continue
		}
		out = append(out, FromWireEntry(e))
	}
	return out
}

// ToWireEvent converts a Change Channel event.
func ToWireEvent(ev model.Event) *v1.Event {
	return &v1.Event{
		Kind:        string(ev.Kind),
		SessionCode: ev.SessionCode,
		Entry:       ToWireEntry(ev.Entry),
		ID:          ev.EntryID,
		Seq:         ev.Seq,
	}
}

// FromWireEvent converts a wire event. ok is false for the ready marker and
// for kinds this build does not know.
func FromWireEvent(ev *v1.Event) (model.Event, bool) {
	if ev == nil {
		return model.Event{}, false
	}
	out := model.Event{Kind: model.EventKind(ev.Kind), SessionCode: ev.SessionCode, EntryID: ev.ID, Seq: ev.Seq}
	switch out.Kind {
	case model.EventCreated:
		if ev.Entry == nil {
			return model.Event{}, false
		}
		e := FromWireEntry(ev.Entry)
		out.Entry = &e
	case model.EventDeleted:
		if ev.ID == "" {
			return model.Event{}, false
		}
	case model.EventCleared:
	default:
		return model.Event{}, false
	}
	return out, true
}
