// Package grpcserver exposes the ClipSync gRPC API handlers.
package grpcserver

import (
	"bytes"
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	v1 "github.com/and161185/clipsync/api/clipsync/v1"
	"github.com/and161185/clipsync/internal/channel"
	"github.com/and161185/clipsync/internal/convert"
	"github.com/and161185/clipsync/internal/service"
)

// Subscriber opens Change Channel subscriptions.
type Subscriber interface {
	Subscribe(topic string) (*channel.Subscription, error)
}

// Deps groups the services the handlers delegate to.
type Deps struct {
	Sessions    service.SessionService
	Entries     service.EntryService
	Attachments service.AttachmentService
	Visits      service.VisitService
	Hub         Subscriber
	Logger      *zap.Logger
}

// Server wires services into gRPC handlers.
type Server struct {
	v1.UnimplementedClipSyncServer
	sessions    service.SessionService
	entries     service.EntryService
	attachments service.AttachmentService
	visits      service.VisitService
	hub         Subscriber
	log         *zap.Logger
}

// New constructs a gRPC server with injected services.
func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Server{
		sessions:    d.Sessions,
		entries:     d.Entries,
		attachments: d.Attachments,
		visits:      d.Visits,
		hub:         d.Hub,
		log:         d.Logger,
	}
}

func remoteAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

// --- Sessions ---

// CreateSession issues a new session code.
func (s *Server) CreateSession(ctx context.Context, _ *v1.CreateSessionRequest) (*v1.CreateSessionResponse, error) {
	code, err := s.sessions.Create(ctx)
	if err != nil {
		return nil, convert.ToStatus(err)
	}
	return &v1.CreateSessionResponse{Code: code}, nil
}

// JoinSession validates a code and returns it normalized.
func (s *Server) JoinSession(ctx context.Context, req *v1.JoinSessionRequest) (*v1.JoinSessionResponse, error) {
	code, err := s.sessions.Join(ctx, req.Code, remoteAddr(ctx))
	if err != nil {
		return nil, convert.ToStatus(err)
	}
	return &v1.JoinSessionResponse{Code: code}, nil
}

// --- Entries ---

// ListEntries returns a session's entries, newest first.
func (s *Server) ListEntries(ctx context.Context, req *v1.ListEntriesRequest) (*v1.ListEntriesResponse, error) {
	list, err := s.entries.List(ctx, req.Code)
	if err != nil {
		return nil, convert.ToStatus(err)
	}
	return &v1.ListEntriesResponse{Entries: convert.ToWireEntries(list)}, nil
}

// AppendEntry stores a new entry and fans it out to subscribers.
func (s *Server) AppendEntry(ctx context.Context, req *v1.AppendEntryRequest) (*v1.AppendEntryResponse, error) {
	e, err := s.entries.Append(ctx, req.Code, req.Content, convert.FromWireAttachment(req.Attachment))
	if err != nil {
		return nil, convert.ToStatus(err)
	}
	return &v1.AppendEntryResponse{Entry: convert.ToWireEntry(e)}, nil
}

// GetEntry returns a single entry by id.
func (s *Server) GetEntry(ctx context.Context, req *v1.GetEntryRequest) (*v1.GetEntryResponse, error) {
	e, err := s.entries.Get(ctx, req.ID)
	if err != nil {
		return nil, convert.ToStatus(err)
	}
	return &v1.GetEntryResponse{Entry: convert.ToWireEntry(e)}, nil
}

// DeleteEntry removes one entry.
func (s *Server) DeleteEntry(ctx context.Context, req *v1.DeleteEntryRequest) (*v1.DeleteEntryResponse, error) {
	if err := s.entries.Delete(ctx, req.ID); err != nil {
		return nil, convert.ToStatus(err)
	}
	return &v1.DeleteEntryResponse{}, nil
}

// ClearSession removes every entry of a session.
func (s *Server) ClearSession(ctx context.Context, req *v1.ClearSessionRequest) (*v1.ClearSessionResponse, error) {
	res, err := s.entries.Clear(ctx, req.Code)
	if err != nil {
		return nil, convert.ToStatus(err)
	}
	return &v1.ClearSessionResponse{Removed: int64(res.Removed)}, nil
}

// UploadAttachment stores attachment bytes and returns the reference.
func (s *Server) UploadAttachment(ctx context.Context, req *v1.UploadAttachmentRequest) (*v1.UploadAttachmentResponse, error) {
	if s.attachments == nil {
		return nil, status.Error(codes.Unimplemented, "attachments disabled")
	}
	att, err := s.attachments.Upload(ctx, req.Code, req.Name, req.ContentType,
		bytes.NewReader(req.Data), int64(len(req.Data)))
	if err != nil {
		return nil, convert.ToStatus(err)
	}
	return &v1.UploadAttachmentResponse{Attachment: convert.ToWireAttachment(att)}, nil
}

// RecordVisit bumps the shared visitor counter.
func (s *Server) RecordVisit(ctx context.Context, req *v1.RecordVisitRequest) (*v1.RecordVisitResponse, error) {
	c, err := s.visits.Record(ctx, req.AlreadyCounted)
	if err != nil {
		return nil, convert.ToStatus(err)
	}
	return &v1.RecordVisitResponse{Total: c.Total, Unique: c.Unique}, nil
}

// --- Change Channel ---

// Subscribe streams session events. The first message is a ready marker sent
// after the subscription is registered, so anything the client fetches after
// receiving it cannot miss a later event. A subscriber that falls behind is
// cut off with Unavailable and must reconcile.
func (s *Server) Subscribe(req *v1.SubscribeRequest, stream grpc.ServerStreamingServer[v1.Event]) error {
	ctx := stream.Context()
	code, err := s.sessions.Join(ctx, req.Code, remoteAddr(ctx))
	if err != nil {
		return convert.ToStatus(err)
	}
	sub, err := s.hub.Subscribe(code)
	if err != nil {
		return convert.ToStatus(err)
	}
	defer sub.Unsubscribe()

	if err := stream.Send(&v1.Event{Kind: v1.EventReady, SessionCode: code}); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Done():
			if err := sub.Err(); err != nil {
				s.log.Warn("subscription ended", zap.String("session", code), zap.Error(err))
				return convert.ToStatus(err)
			}
			return nil
		case ev := <-sub.C():
			if err := stream.Send(convert.ToWireEvent(ev)); err != nil {
				return err
			}
		}
	}
}
