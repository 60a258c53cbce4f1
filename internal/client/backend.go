package client

import (
	"context"

	"github.com/and161185/clipsync/internal/model"
)

// Backend is the remote side of a Session Client: the Session Registry, the
// Entry Store and the Change Channel. Errors are errs sentinels.
type Backend interface {
	CreateSession(ctx context.Context) (string, error)
	JoinSession(ctx context.Context, code string) (string, error)
	ListEntries(ctx context.Context, code string) ([]model.Entry, error)
	AppendEntry(ctx context.Context, code, content string, att *model.Attachment) (*model.Entry, error)
	GetEntry(ctx context.Context, id string) (*model.Entry, error)
	DeleteEntry(ctx context.Context, id string) error
	ClearSession(ctx context.Context, code string) (model.ClearResult, error)
	UploadAttachment(ctx context.Context, code, name, contentType string, data []byte) (*model.Attachment, error)
	RecordVisit(ctx context.Context, alreadyCounted bool) (model.VisitCounter, error)

	// Subscribe returns once the subscription is live. handler is called on
	// a single goroutine, in commit order, until the subscription ends.
	Subscribe(ctx context.Context, code string, handler func(model.Event)) (Subscription, error)
}

// Subscription is a live Change Channel registration.
type Subscription interface {
	// Done is closed when the subscription ends, by Unsubscribe or by failure.
	Done() <-chan struct{}
	// Err reports the failure that ended the subscription, nil after Unsubscribe.
	Err() error
	// Unsubscribe stops delivery. It does not wait for a running handler.
	Unsubscribe()
}
