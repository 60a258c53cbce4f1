package clipsyncv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ClipSync_CreateSession_FullMethodName    = "/clipsync.v1.ClipSync/CreateSession"
	ClipSync_JoinSession_FullMethodName      = "/clipsync.v1.ClipSync/JoinSession"
	ClipSync_ListEntries_FullMethodName      = "/clipsync.v1.ClipSync/ListEntries"
	ClipSync_AppendEntry_FullMethodName      = "/clipsync.v1.ClipSync/AppendEntry"
	ClipSync_GetEntry_FullMethodName         = "/clipsync.v1.ClipSync/GetEntry"
	ClipSync_DeleteEntry_FullMethodName      = "/clipsync.v1.ClipSync/DeleteEntry"
	ClipSync_ClearSession_FullMethodName     = "/clipsync.v1.ClipSync/ClearSession"
	ClipSync_UploadAttachment_FullMethodName = "/clipsync.v1.ClipSync/UploadAttachment"
	ClipSync_RecordVisit_FullMethodName      = "/clipsync.v1.ClipSync/RecordVisit"
	ClipSync_Subscribe_FullMethodName        = "/clipsync.v1.ClipSync/Subscribe"
)

// ClipSyncClient is the client API for the ClipSync service.
type ClipSyncClient interface {
	CreateSession(ctx context.Context, in *CreateSessionRequest, opts ...grpc.CallOption) (*CreateSessionResponse, error)
	JoinSession(ctx context.Context, in *JoinSessionRequest, opts ...grpc.CallOption) (*JoinSessionResponse, error)
	ListEntries(ctx context.Context, in *ListEntriesRequest, opts ...grpc.CallOption) (*ListEntriesResponse, error)
	AppendEntry(ctx context.Context, in *AppendEntryRequest, opts ...grpc.CallOption) (*AppendEntryResponse, error)
	GetEntry(ctx context.Context, in *GetEntryRequest, opts ...grpc.CallOption) (*GetEntryResponse, error)
	DeleteEntry(ctx context.Context, in *DeleteEntryRequest, opts ...grpc.CallOption) (*DeleteEntryResponse, error)
	ClearSession(ctx context.Context, in *ClearSessionRequest, opts ...grpc.CallOption) (*ClearSessionResponse, error)
	UploadAttachment(ctx context.Context, in *UploadAttachmentRequest, opts ...grpc.CallOption) (*UploadAttachmentResponse, error)
	RecordVisit(ctx context.Context, in *RecordVisitRequest, opts ...grpc.CallOption) (*RecordVisitResponse, error)
	Subscribe(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Event], error)
}

type clipSyncClient struct {
	cc grpc.ClientConnInterface
}

// NewClipSyncClient wraps cc; every call uses the JSON codec.
func NewClipSyncClient(cc grpc.ClientConnInterface) ClipSyncClient {
	return &clipSyncClient{cc}
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *clipSyncClient) CreateSession(ctx context.Context, in *CreateSessionRequest, opts ...grpc.CallOption) (*CreateSessionResponse, error) {
	out := new(CreateSessionResponse)
	if err := c.cc.Invoke(ctx, ClipSync_CreateSession_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clipSyncClient) JoinSession(ctx context.Context, in *JoinSessionRequest, opts ...grpc.CallOption) (*JoinSessionResponse, error) {
	out := new(JoinSessionResponse)
	if err := c.cc.Invoke(ctx, ClipSync_JoinSession_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clipSyncClient) ListEntries(ctx context.Context, in *ListEntriesRequest, opts ...grpc.CallOption) (*ListEntriesResponse, error) {
	out := new(ListEntriesResponse)
	if err := c.cc.Invoke(ctx, ClipSync_ListEntries_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clipSyncClient) AppendEntry(ctx context.Context, in *AppendEntryRequest, opts ...grpc.CallOption) (*AppendEntryResponse, error) {
	out := new(AppendEntryResponse)
	if err := c.cc.Invoke(ctx, ClipSync_AppendEntry_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clipSyncClient) GetEntry(ctx context.Context, in *GetEntryRequest, opts ...grpc.CallOption) (*GetEntryResponse, error) {
	out := new(GetEntryResponse)
	if err := c.cc.Invoke(ctx, ClipSync_GetEntry_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clipSyncClient) DeleteEntry(ctx context.Context, in *DeleteEntryRequest, opts ...grpc.CallOption) (*DeleteEntryResponse, error) {
	out := new(DeleteEntryResponse)
	if err := c.cc.Invoke(ctx, ClipSync_DeleteEntry_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clipSyncClient) ClearSession(ctx context.Context, in *ClearSessionRequest, opts ...grpc.CallOption) (*ClearSessionResponse, error) {
	out := new(ClearSessionResponse)
	if err := c.cc.Invoke(ctx, ClipSync_ClearSession_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clipSyncClient) UploadAttachment(ctx context.Context, in *UploadAttachmentRequest, opts ...grpc.CallOption) (*UploadAttachmentResponse, error) {
	out := new(UploadAttachmentResponse)
	if err := c.cc.Invoke(ctx, ClipSync_UploadAttachment_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clipSyncClient) RecordVisit(ctx context.Context, in *RecordVisitRequest, opts ...grpc.CallOption) (*RecordVisitResponse, error) {
	out := new(RecordVisitResponse)
	if err := c.cc.Invoke(ctx, ClipSync_RecordVisit_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clipSyncClient) Subscribe(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Event], error) {
	stream, err := c.cc.NewStream(ctx, &ClipSync_ServiceDesc.Streams[0], ClipSync_Subscribe_FullMethodName, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[SubscribeRequest, Event]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// ClipSyncServer is the server API for the ClipSync service.
// Implementations must embed UnimplementedClipSyncServer for forward compatibility.
type ClipSyncServer interface {
	CreateSession(context.Context, *CreateSessionRequest) (*CreateSessionResponse, error)
	JoinSession(context.Context, *JoinSessionRequest) (*JoinSessionResponse, error)
	ListEntries(context.Context, *ListEntriesRequest) (*ListEntriesResponse, error)
	AppendEntry(context.Context, *AppendEntryRequest) (*AppendEntryResponse, error)
	GetEntry(context.Context, *GetEntryRequest) (*GetEntryResponse, error)
	DeleteEntry(context.Context, *DeleteEntryRequest) (*DeleteEntryResponse, error)
	ClearSession(context.Context, *ClearSessionRequest) (*ClearSessionResponse, error)
	UploadAttachment(context.Context, *UploadAttachmentRequest) (*UploadAttachmentResponse, error)
	RecordVisit(context.Context, *RecordVisitRequest) (*RecordVisitResponse, error)
	Subscribe(*SubscribeRequest, grpc.ServerStreamingServer[Event]) error
	mustEmbedUnimplementedClipSyncServer()
}

// UnimplementedClipSyncServer must be embedded to have forward compatible implementations.
type UnimplementedClipSyncServer struct{}

func (UnimplementedClipSyncServer) CreateSession(context.Context, *CreateSessionRequest) (*CreateSessionResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CreateSession not implemented")
}
func (UnimplementedClipSyncServer) JoinSession(context.Context, *JoinSessionRequest) (*JoinSessionResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method JoinSession not implemented")
}
func (UnimplementedClipSyncServer) ListEntries(context.Context, *ListEntriesRequest) (*ListEntriesResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListEntries not implemented")
}
func (UnimplementedClipSyncServer) AppendEntry(context.Context, *AppendEntryRequest) (*AppendEntryResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method AppendEntry not implemented")
}
func (UnimplementedClipSyncServer) GetEntry(context.Context, *GetEntryRequest) (*GetEntryResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetEntry not implemented")
}
func (UnimplementedClipSyncServer) DeleteEntry(context.Context, *DeleteEntryRequest) (*DeleteEntryResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method DeleteEntry not implemented")
}
func (UnimplementedClipSyncServer) ClearSession(context.Context, *ClearSessionRequest) (*ClearSessionResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ClearSession not implemented")
}
func (UnimplementedClipSyncServer) UploadAttachment(context.Context, *UploadAttachmentRequest) (*UploadAttachmentResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method UploadAttachment not implemented")
}
func (UnimplementedClipSyncServer) RecordVisit(context.Context, *RecordVisitRequest) (*RecordVisitResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RecordVisit not implemented")
}
func (UnimplementedClipSyncServer) Subscribe(*SubscribeRequest, grpc.ServerStreamingServer[Event]) error {
	return status.Errorf(codes.Unimplemented, "method Subscribe not implemented")
}
func (UnimplementedClipSyncServer) mustEmbedUnimplementedClipSyncServer() {}

// RegisterClipSyncServer registers srv on s.
func RegisterClipSyncServer(s grpc.ServiceRegistrar, srv ClipSyncServer) {
	s.RegisterService(&ClipSync_ServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](
	fullMethod string,
	call func(ClipSyncServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ClipSyncServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ClipSyncServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func _ClipSync_Subscribe_Handler(srv any, stream grpc.ServerStream) error {
	m := new(SubscribeRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ClipSyncServer).Subscribe(m, &grpc.GenericServerStream[SubscribeRequest, Event]{ServerStream: stream})
}

// ClipSync_ServiceDesc is the grpc.ServiceDesc for the ClipSync service.
var ClipSync_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "clipsync.v1.ClipSync",
	HandlerType: (*ClipSyncServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateSession",
			Handler:    unaryHandler(ClipSync_CreateSession_FullMethodName, ClipSyncServer.CreateSession),
		},
		{
			MethodName: "JoinSession",
			Handler:    unaryHandler(ClipSync_JoinSession_FullMethodName, ClipSyncServer.JoinSession),
		},
		{
			MethodName: "ListEntries",
			Handler:    unaryHandler(ClipSync_ListEntries_FullMethodName, ClipSyncServer.ListEntries),
		},
		{
			MethodName: "AppendEntry",
			Handler:    unaryHandler(ClipSync_AppendEntry_FullMethodName, ClipSyncServer.AppendEntry),
		},
		{
			MethodName: "GetEntry",
			Handler:    unaryHandler(ClipSync_GetEntry_FullMethodName, ClipSyncServer.GetEntry),
		},
		{
			MethodName: "DeleteEntry",
			Handler:    unaryHandler(ClipSync_DeleteEntry_FullMethodName, ClipSyncServer.DeleteEntry),
		},
		{
			MethodName: "ClearSession",
			Handler:    unaryHandler(ClipSync_ClearSession_FullMethodName, ClipSyncServer.ClearSession),
		},
		{
			MethodName: "UploadAttachment",
			Handler:    unaryHandler(ClipSync_UploadAttachment_FullMethodName, ClipSyncServer.UploadAttachment),
		},
		{
			MethodName: "RecordVisit",
			Handler:    unaryHandler(ClipSync_RecordVisit_FullMethodName, ClipSyncServer.RecordVisit),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       _ClipSync_Subscribe_Handler,
			ServerStreams: true,
		},
	},
}
