package campusv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

const (
	MessageService_OpenChat_FullMethodName          = "/campusmsg.v1.MessageService/OpenChat"
	MessageService_CloseChat_FullMethodName         = "/campusmsg.v1.MessageService/CloseChat"
	MessageService_ListMessages_FullMethodName      = "/campusmsg.v1.MessageService/ListMessages"
	MessageService_LoadOlderMessages_FullMethodName = "/campusmsg.v1.MessageService/LoadOlderMessages"
	MessageService_Send_FullMethodName              = "/campusmsg.v1.MessageService/Send"
	MessageService_Edit_FullMethodName              = "/campusmsg.v1.MessageService/Edit"
	MessageService_Unsend_FullMethodName            = "/campusmsg.v1.MessageService/Unsend"
	MessageService_MarkRead_FullMethodName          = "/campusmsg.v1.MessageService/MarkRead"
	MessageService_Eligibility_FullMethodName       = "/campusmsg.v1.MessageService/Eligibility"
	MessageService_SetInteraction_FullMethodName    = "/campusmsg.v1.MessageService/SetInteraction"
	MessageService_SetDraft_FullMethodName          = "/campusmsg.v1.MessageService/SetDraft"
	MessageService_SearchMessages_FullMethodName    = "/campusmsg.v1.MessageService/SearchMessages"
)

// MessageServiceServer serves the open chat and its mutations.
type MessageServiceServer interface {
	OpenChat(context.Context, *OpenChatRequest) (*ThreadResponse, error)
	CloseChat(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	ListMessages(context.Context, *emptypb.Empty) (*ThreadResponse, error)
	LoadOlderMessages(context.Context, *emptypb.Empty) (*ThreadResponse, error)
	Send(context.Context, *SendRequest) (*SendResponse, error)
	Edit(context.Context, *EditRequest) (*MessageResponse, error)
	Unsend(context.Context, *MessageRequest) (*MessageResponse, error)
	MarkRead(context.Context, *MarkReadRequest) (*emptypb.Empty, error)
	Eligibility(context.Context, *MessageRequest) (*EligibilityResponse, error)
	SetInteraction(context.Context, *InteractionRequest) (*GateState, error)
	SetDraft(context.Context, *DraftRequest) (*emptypb.Empty, error)
	SearchMessages(context.Context, *SearchMessagesRequest) (*SearchMessagesResponse, error)
}

func RegisterMessageServiceServer(s grpc.ServiceRegistrar, srv MessageServiceServer) {
	s.RegisterService(&MessageService_ServiceDesc, srv)
}

func messageUnary[Req any, Resp any](name, full string, call func(MessageServiceServer, context.Context, *Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: unaryHandler(full, func(srv any, ctx context.Context, in *Req) (Resp, error) {
			return call(srv.(MessageServiceServer), ctx, in)
		}),
	}
}

var MessageService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "campusmsg.v1.MessageService",
	HandlerType: (*MessageServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		messageUnary("OpenChat", MessageService_OpenChat_FullMethodName, MessageServiceServer.OpenChat),
		messageUnary("CloseChat", MessageService_CloseChat_FullMethodName, MessageServiceServer.CloseChat),
		messageUnary("ListMessages", MessageService_ListMessages_FullMethodName, MessageServiceServer.ListMessages),
		messageUnary("LoadOlderMessages", MessageService_LoadOlderMessages_FullMethodName, MessageServiceServer.LoadOlderMessages),
		messageUnary("Send", MessageService_Send_FullMethodName, MessageServiceServer.Send),
		messageUnary("Edit", MessageService_Edit_FullMethodName, MessageServiceServer.Edit),
		messageUnary("Unsend", MessageService_Unsend_FullMethodName, MessageServiceServer.Unsend),
		messageUnary("MarkRead", MessageService_MarkRead_FullMethodName, MessageServiceServer.MarkRead),
		messageUnary("Eligibility", MessageService_Eligibility_FullMethodName, MessageServiceServer.Eligibility),
		messageUnary("SetInteraction", MessageService_SetInteraction_FullMethodName, MessageServiceServer.SetInteraction),
		messageUnary("SetDraft", MessageService_SetDraft_FullMethodName, MessageServiceServer.SetDraft),
		messageUnary("SearchMessages", MessageService_SearchMessages_FullMethodName, MessageServiceServer.SearchMessages),
	},
	Streams: []grpc.StreamDesc{},
}

type MessageServiceClient interface {
	OpenChat(ctx context.Context, in *OpenChatRequest, opts ...grpc.CallOption) (*ThreadResponse, error)
	CloseChat(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	ListMessages(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ThreadResponse, error)
	LoadOlderMessages(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ThreadResponse, error)
	Send(ctx context.Context, in *SendRequest, opts ...grpc.CallOption) (*SendResponse, error)
	Edit(ctx context.Context, in *EditRequest, opts ...grpc.CallOption) (*MessageResponse, error)
	Unsend(ctx context.Context, in *MessageRequest, opts ...grpc.CallOption) (*MessageResponse, error)
	MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Eligibility(ctx context.Context, in *MessageRequest, opts ...grpc.CallOption) (*EligibilityResponse, error)
	SetInteraction(ctx context.Context, in *InteractionRequest, opts ...grpc.CallOption) (*GateState, error)
	SetDraft(ctx context.Context, in *DraftRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	SearchMessages(ctx context.Context, in *SearchMessagesRequest, opts ...grpc.CallOption) (*SearchMessagesResponse, error)
}

type messageServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewMessageServiceClient(cc grpc.ClientConnInterface) MessageServiceClient {
	return &messageServiceClient{cc}
}

func (c *messageServiceClient) OpenChat(ctx context.Context, in *OpenChatRequest, opts ...grpc.CallOption) (*ThreadResponse, error) {
	return invoke[ThreadResponse](ctx, c.cc, MessageService_OpenChat_FullMethodName, in, opts)
}

func (c *messageServiceClient) CloseChat(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, MessageService_CloseChat_FullMethodName, in, opts)
}

func (c *messageServiceClient) ListMessages(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ThreadResponse, error) {
	return invoke[ThreadResponse](ctx, c.cc, MessageService_ListMessages_FullMethodName, in, opts)
}

func (c *messageServiceClient) LoadOlderMessages(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ThreadResponse, error) {
	return invoke[ThreadResponse](ctx, c.cc, MessageService_LoadOlderMessages_FullMethodName, in, opts)
}

func (c *messageServiceClient) Send(ctx context.Context, in *SendRequest, opts ...grpc.CallOption) (*SendResponse, error) {
	return invoke[SendResponse](ctx, c.cc, MessageService_Send_FullMethodName, in, opts)
}

func (c *messageServiceClient) Edit(ctx context.Context, in *EditRequest, opts ...grpc.CallOption) (*MessageResponse, error) {
	return invoke[MessageResponse](ctx, c.cc, MessageService_Edit_FullMethodName, in, opts)
}

func (c *messageServiceClient) Unsend(ctx context.Context, in *MessageRequest, opts ...grpc.CallOption) (*MessageResponse, error) {
	return invoke[MessageResponse](ctx, c.cc, MessageService_Unsend_FullMethodName, in, opts)
}

func (c *messageServiceClient) MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, MessageService_MarkRead_FullMethodName, in, opts)
}

func (c *messageServiceClient) Eligibility(ctx context.Context, in *MessageRequest, opts ...grpc.CallOption) (*EligibilityResponse, error) {
	return invoke[EligibilityResponse](ctx, c.cc, MessageService_Eligibility_FullMethodName, in, opts)
}

func (c *messageServiceClient) SetInteraction(ctx context.Context, in *InteractionRequest, opts ...grpc.CallOption) (*GateState, error) {
	return invoke[GateState](ctx, c.cc, MessageService_SetInteraction_FullMethodName, in, opts)
}

func (c *messageServiceClient) SetDraft(ctx context.Context, in *DraftRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, MessageService_SetDraft_FullMethodName, in, opts)
}

func (c *messageServiceClient) SearchMessages(ctx context.Context, in *SearchMessagesRequest, opts ...grpc.CallOption) (*SearchMessagesResponse, error) {
	return invoke[SearchMessagesResponse](ctx, c.cc, MessageService_SearchMessages_FullMethodName, in, opts)
}
