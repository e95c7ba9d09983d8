package campusv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

const (
	ChatService_ListConversations_FullMethodName     = "/campusmsg.v1.ChatService/ListConversations"
	ChatService_LoadMoreConversations_FullMethodName = "/campusmsg.v1.ChatService/LoadMoreConversations"
	ChatService_RefreshConversations_FullMethodName  = "/campusmsg.v1.ChatService/RefreshConversations"
	ChatService_ListActiveUsers_FullMethodName       = "/campusmsg.v1.ChatService/ListActiveUsers"
	ChatService_LoadMoreActiveUsers_FullMethodName   = "/campusmsg.v1.ChatService/LoadMoreActiveUsers"
	ChatService_RefreshActiveUsers_FullMethodName    = "/campusmsg.v1.ChatService/RefreshActiveUsers"
	ChatService_SearchUsers_FullMethodName           = "/campusmsg.v1.ChatService/SearchUsers"
	ChatService_UnreadTotal_FullMethodName           = "/campusmsg.v1.ChatService/UnreadTotal"
	ChatService_WatchUpdates_FullMethodName          = "/campusmsg.v1.ChatService/WatchUpdates"
)

// ChatServiceServer serves the conversation and active-users lists.
type ChatServiceServer interface {
	ListConversations(context.Context, *emptypb.Empty) (*ListConversationsResponse, error)
	LoadMoreConversations(context.Context, *emptypb.Empty) (*ListConversationsResponse, error)
	// RefreshConversations refetches page 1 now, with the loading flag raised.
	RefreshConversations(context.Context, *emptypb.Empty) (*ListConversationsResponse, error)
	ListActiveUsers(context.Context, *emptypb.Empty) (*ListConversationsResponse, error)
	LoadMoreActiveUsers(context.Context, *emptypb.Empty) (*ListConversationsResponse, error)
	RefreshActiveUsers(context.Context, *emptypb.Empty) (*ListConversationsResponse, error)
	SearchUsers(context.Context, *SearchUsersRequest) (*SearchUsersResponse, error)
	UnreadTotal(context.Context, *emptypb.Empty) (*UnreadTotalResponse, error)
	WatchUpdates(*WatchRequest, grpc.ServerStreamingServer[Update]) error
}

func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ChatService_ServiceDesc, srv)
}

func chatUnary[Req any, Resp any](name, full string, call func(ChatServiceServer, context.Context, *Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: unaryHandler(full, func(srv any, ctx context.Context, in *Req) (Resp, error) {
			return call(srv.(ChatServiceServer), ctx, in)
		}),
	}
}

func _ChatService_WatchUpdates_Handler(srv any, stream grpc.ServerStream) error {
	m := new(WatchRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ChatServiceServer).WatchUpdates(m, &grpc.GenericServerStream[WatchRequest, Update]{ServerStream: stream})
}

var ChatService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "campusmsg.v1.ChatService",
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		chatUnary("ListConversations", ChatService_ListConversations_FullMethodName, ChatServiceServer.ListConversations),
		chatUnary("LoadMoreConversations", ChatService_LoadMoreConversations_FullMethodName, ChatServiceServer.LoadMoreConversations),
		chatUnary("RefreshConversations", ChatService_RefreshConversations_FullMethodName, ChatServiceServer.RefreshConversations),
		chatUnary("ListActiveUsers", ChatService_ListActiveUsers_FullMethodName, ChatServiceServer.ListActiveUsers),
		chatUnary("LoadMoreActiveUsers", ChatService_LoadMoreActiveUsers_FullMethodName, ChatServiceServer.LoadMoreActiveUsers),
		chatUnary("RefreshActiveUsers", ChatService_RefreshActiveUsers_FullMethodName, ChatServiceServer.RefreshActiveUsers),
		chatUnary("SearchUsers", ChatService_SearchUsers_FullMethodName, ChatServiceServer.SearchUsers),
		chatUnary("UnreadTotal", ChatService_UnreadTotal_FullMethodName, ChatServiceServer.UnreadTotal),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchUpdates",
			Handler:       _ChatService_WatchUpdates_Handler,
			ServerStreams: true,
		},
	},
}

type ChatServiceClient interface {
	ListConversations(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ListConversationsResponse, error)
	LoadMoreConversations(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ListConversationsResponse, error)
	RefreshConversations(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ListConversationsResponse, error)
	ListActiveUsers(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ListConversationsResponse, error)
	LoadMoreActiveUsers(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ListConversationsResponse, error)
	RefreshActiveUsers(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ListConversationsResponse, error)
	SearchUsers(ctx context.Context, in *SearchUsersRequest, opts ...grpc.CallOption) (*SearchUsersResponse, error)
	UnreadTotal(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*UnreadTotalResponse, error)
	WatchUpdates(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Update], error)
}

type chatServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewChatServiceClient(cc grpc.ClientConnInterface) ChatServiceClient {
	return &chatServiceClient{cc}
}

func (c *chatServiceClient) ListConversations(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ListConversationsResponse, error) {
	return invoke[ListConversationsResponse](ctx, c.cc, ChatService_ListConversations_FullMethodName, in, opts)
}

func (c *chatServiceClient) LoadMoreConversations(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ListConversationsResponse, error) {
	return invoke[ListConversationsResponse](ctx, c.cc, ChatService_LoadMoreConversations_FullMethodName, in, opts)
}

func (c *chatServiceClient) ListActiveUsers(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ListConversationsResponse, error) {
	return invoke[ListConversationsResponse](ctx, c.cc, ChatService_ListActiveUsers_FullMethodName, in, opts)
}

func (c *chatServiceClient) LoadMoreActiveUsers(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ListConversationsResponse, error) {
	return invoke[ListConversationsResponse](ctx, c.cc, ChatService_LoadMoreActiveUsers_FullMethodName, in, opts)
}

func (c *chatServiceClient) RefreshConversations(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ListConversationsResponse, error) {
	return invoke[ListConversationsResponse](ctx, c.cc, ChatService_RefreshConversations_FullMethodName, in, opts)
}

func (c *chatServiceClient) RefreshActiveUsers(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ListConversationsResponse, error) {
	return invoke[ListConversationsResponse](ctx, c.cc, ChatService_RefreshActiveUsers_FullMethodName, in, opts)
}

func (c *chatServiceClient) SearchUsers(ctx context.Context, in *SearchUsersRequest, opts ...grpc.CallOption) (*SearchUsersResponse, error) {
	return invoke[SearchUsersResponse](ctx, c.cc, ChatService_SearchUsers_FullMethodName, in, opts)
}

func (c *chatServiceClient) UnreadTotal(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*UnreadTotalResponse, error) {
	return invoke[UnreadTotalResponse](ctx, c.cc, ChatService_UnreadTotal_FullMethodName, in, opts)
}

func (c *chatServiceClient) WatchUpdates(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Update], error) {
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	stream, err := c.cc.NewStream(ctx, &ChatService_ServiceDesc.Streams[0], ChatService_WatchUpdates_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[WatchRequest, Update]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
