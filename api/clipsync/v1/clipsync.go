package clipsyncv1

import "time"

// Event kinds carried by Subscribe.
const (
	EventReady   = "ready"
	EventCreated = "created"
	EventDeleted = "deleted"
	EventCleared = "cleared"
)

// Attachment references externally stored binary content.
type Attachment struct {
	Path string `json:"path"`
	URL  string `json:"url"`
	Kind string `json:"kind"`
	Name string `json:"name,omitempty"`
}

// Entry is one clipboard write.
type Entry struct {
	ID          string      `json:"id"`
	SessionCode string      `json:"session_code"`
	Content     string      `json:"content"`
	Attachment  *Attachment `json:"attachment,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	Seq         int64       `json:"seq"`
}

type CreateSessionRequest struct{}

type CreateSessionResponse struct {
	Code string `json:"code"`
}

type JoinSessionRequest struct {
	Code string `json:"code"`
}

type JoinSessionResponse struct {
	Code string `json:"code"`
}

type ListEntriesRequest struct {
	Code string `json:"code"`
}

type ListEntriesResponse struct {
	Entries []*Entry `json:"entries"`
}

type AppendEntryRequest struct {
	Code       string      `json:"code"`
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

type AppendEntryResponse struct {
	Entry *Entry `json:"entry"`
}

type GetEntryRequest struct {
	ID string `json:"id"`
}

type GetEntryResponse struct {
	Entry *Entry `json:"entry"`
}

type DeleteEntryRequest struct {
	ID string `json:"id"`
}

type DeleteEntryResponse struct{}

type ClearSessionRequest struct {
	Code string `json:"code"`
}

type ClearSessionResponse struct {
	Removed int64 `json:"removed"`
}

type UploadAttachmentRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"data"`
}

type UploadAttachmentResponse struct {
	Attachment *Attachment `json:"attachment"`
}

type RecordVisitRequest struct {
	AlreadyCounted bool `json:"already_counted"`
}

type RecordVisitResponse struct {
	Total  int64 `json:"total"`
	Unique int64 `json:"unique"`
}

type SubscribeRequest struct {
	Code string `json:"code"`
}

// Event is one Change Channel message. Kind "ready" is sent once, first,
// to mark the subscription live; it carries no payload.
type Event struct {
	Kind        string `json:"kind"`
	SessionCode string `json:"session_code"`
	Entry       *Entry `json:"entry,omitempty"`
	ID          string `json:"id,omitempty"`
	Seq         uint64 `json:"seq"`
}
