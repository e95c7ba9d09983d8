package campusv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

const (
	SessionService_GetSessionStatus_FullMethodName = "/campusmsg.v1.SessionService/GetSessionStatus"
	SessionService_Touch_FullMethodName            = "/campusmsg.v1.SessionService/Touch"
	SessionService_SetForeground_FullMethodName    = "/campusmsg.v1.SessionService/SetForeground"
)

// SessionServiceServer reports daemon health and receives screen lifecycle signals.
type SessionServiceServer interface {
	GetSessionStatus(context.Context, *emptypb.Empty) (*SessionStatus, error)
	// Touch records a user interaction.
	Touch(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	SetForeground(context.Context, *SetForegroundRequest) (*emptypb.Empty, error)
}

func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionService_ServiceDesc, srv)
}

func sessionUnary[Req any, Resp any](name, full string, call func(SessionServiceServer, context.Context, *Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: unaryHandler(full, func(srv any, ctx context.Context, in *Req) (Resp, error) {
			return call(srv.(SessionServiceServer), ctx, in)
		}),
	}
}

var SessionService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "campusmsg.v1.SessionService",
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		sessionUnary("GetSessionStatus", SessionService_GetSessionStatus_FullMethodName, SessionServiceServer.GetSessionStatus),
		sessionUnary("Touch", SessionService_Touch_FullMethodName, SessionServiceServer.Touch),
		sessionUnary("SetForeground", SessionService_SetForeground_FullMethodName, SessionServiceServer.SetForeground),
	},
	Streams: []grpc.StreamDesc{},
}

type SessionServiceClient interface {
	GetSessionStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*SessionStatus, error)
	Touch(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	SetForeground(ctx context.Context, in *SetForegroundRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type sessionServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSessionServiceClient(cc grpc.ClientConnInterface) SessionServiceClient {
	return &sessionServiceClient{cc}
}

func (c *sessionServiceClient) GetSessionStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*SessionStatus, error) {
	return invoke[SessionStatus](ctx, c.cc, SessionService_GetSessionStatus_FullMethodName, in, opts)
}

func (c *sessionServiceClient) Touch(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, SessionService_Touch_FullMethodName, in, opts)
}

func (c *sessionServiceClient) SetForeground(ctx context.Context, in *SetForegroundRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, SessionService_SetForeground_FullMethodName, in, opts)
}
