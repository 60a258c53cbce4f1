package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"google.golang.org/grpc"

	v1 "github.com/and161185/clipsync/api/clipsync/v1"
	"github.com/and161185/clipsync/internal/convert"
	"github.com/and161185/clipsync/internal/errs"
	"github.com/and161185/clipsync/internal/model"
)

// GRPC is a Backend over the ClipSync gRPC service.
type GRPC struct {
	c v1.ClipSyncClient
}

// NewGRPC wraps a client connection.
func NewGRPC(cc grpc.ClientConnInterface) *GRPC {
	return &GRPC{c: v1.NewClipSyncClient(cc)}
}

func (g *GRPC) CreateSession(ctx context.Context) (string, error) {
	resp, err := g.c.CreateSession(ctx, &v1.CreateSessionRequest{})
	if err != nil {
		return "", convert.FromStatus(err)
	}
	return resp.Code, nil
}

func (g *GRPC) JoinSession(ctx context.Context, code string) (string, error) {
	resp, err := g.c.JoinSession(ctx, &v1.JoinSessionRequest{Code: code})
	if err != nil {
		return "", convert.FromStatus(err)
	}
	return resp.Code, nil
}

func (g *GRPC) ListEntries(ctx context.Context, code string) ([]model.Entry, error) {
	resp, err := g.c.ListEntries(ctx, &v1.ListEntriesRequest{Code: code})
	if err != nil {
		return nil, convert.FromStatus(err)
	}
	return convert.FromWireEntries(resp.Entries), nil
}

func (g *GRPC) AppendEntry(ctx context.Context, code, content string, att *model.Attachment) (*model.Entry, error) {
	resp, err := g.c.AppendEntry(ctx, &v1.AppendEntryRequest{
		Code:       code,
		Content:    content,
		Attachment: convert.ToWireAttachment(att),
	})
	if err != nil {
		return nil, convert.FromStatus(err)
	}
	if resp.Entry == nil {
		return nil, fmt.Errorf("append: empty response")
	}
	e := convert.FromWireEntry(resp.Entry)
	return &e, nil
}

func (g *GRPC) GetEntry(ctx context.Context, id string) (*model.Entry, error) {
	resp, err := g.c.GetEntry(ctx, &v1.GetEntryRequest{ID: id})
	if err != nil {
		return nil, convert.FromStatus(err)
	}
	if resp.Entry == nil {
		return nil, errs.ErrNotFound
	}
	e := convert.FromWireEntry(resp.Entry)
	return &e, nil
}

func (g *GRPC) DeleteEntry(ctx context.Context, id string) error {
	_, err := g.c.DeleteEntry(ctx, &v1.DeleteEntryRequest{ID: id})
	return convert.FromStatus(err)
}

func (g *GRPC) ClearSession(ctx context.Context, code string) (model.ClearResult, error) {
	resp, err := g.c.ClearSession(ctx, &v1.ClearSessionRequest{Code: code})
	if err != nil {
		return model.ClearResult{}, convert.FromStatus(err)
	}
	return model.ClearResult{Removed: int(resp.Removed)}, nil
}

func (g *GRPC) UploadAttachment(ctx context.Context, code, name, contentType string, data []byte) (*model.Attachment, error) {
	resp, err := g.c.UploadAttachment(ctx, &v1.UploadAttachmentRequest{
		Code:        code,
		Name:        name,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		return nil, convert.FromStatus(err)
	}
	att := convert.FromWireAttachment(resp.Attachment)
	if att == nil {
		return nil, fmt.Errorf("upload: %w", errs.ErrStorage)
	}
	return att, nil
}

func (g *GRPC) RecordVisit(ctx context.Context, alreadyCounted bool) (model.VisitCounter, error) {
	resp, err := g.c.RecordVisit(ctx, &v1.RecordVisitRequest{AlreadyCounted: alreadyCounted})
	if err != nil {
		return model.VisitCounter{}, convert.FromStatus(err)
	}
	return model.VisitCounter{Total: resp.Total, Unique: resp.Unique}, nil
}

// Subscribe opens the event stream and waits for the ready marker. ctx bounds
// only the handshake; the stream lives until Unsubscribe or failure.
func (g *GRPC) Subscribe(ctx context.Context, code string, handler func(model.Event)) (Subscription, error) {
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, cancel)

	stream, err := g.c.Subscribe(streamCtx, &v1.SubscribeRequest{Code: code})
	if err != nil {
		stop()
		cancel()
		return nil, convert.FromStatus(err)
	}
	first, err := stream.Recv()
	if !stop() {
		cancel()
		return nil, ctx.Err()
	}
	if err != nil {
		cancel()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("subscribe: %w", errs.ErrChannel)
		}
		return nil, convert.FromStatus(err)
	}
	if first.Kind != v1.EventReady {
		cancel()
		return nil, fmt.Errorf("subscribe: got %q before ready: %w", first.Kind, errs.ErrChannel)
	}

	s := &grpcSub{cancel: cancel, done: make(chan struct{})}
	go s.run(stream, handler)
	return s, nil
}

type grpcSub struct {
	cancel context.CancelFunc

	mu       sync.Mutex
	stopped  bool
	err      error
	done     chan struct{}
	stopOnce sync.Once
}

func (s *grpcSub) run(stream grpc.ServerStreamingClient[v1.Event], handler func(model.Event)) {
	defer close(s.done)
	for {
		msg, err := stream.Recv()
		if err != nil {
			s.mu.Lock()
			if !s.stopped {
				if errors.Is(err, io.EOF) {
					s.err = errs.ErrChannel
				} else {
					s.err = convert.FromStatus(err)
				}
			}
			s.mu.Unlock()
			return
		}
		ev, ok := convert.FromWireEvent(msg)
		if !ok {
			continue
		}
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return
		}
		handler(ev)
	}
}

func (s *grpcSub) Done() <-chan struct{} { return s.done }

func (s *grpcSub) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *grpcSub) Unsubscribe() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		s.cancel()
	})
}
