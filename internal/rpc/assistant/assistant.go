// Package assistant defines the wire contract between the server and an
// out-of-process assistant adapter. The service descriptor is written by
// hand and exchanged as JSON so adapter authors need no protobuf toolchain.
package assistant

import (
	"context"

	"google.golang.org/grpc"
)

const (
	ServiceName = "pixelcraft.assistant.Assistant"

	MethodChat   = "/" + ServiceName + "/Chat"
	MethodHealth = "/" + ServiceName + "/Health"
)

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

type HealthRequest struct{}

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type AssistantServer interface {
	Chat(context.Context, *ChatRequest) (*ChatResponse, error)
	Health(context.Context, *HealthRequest) (*HealthResponse, error)
}

func RegisterAssistantServer(registrar grpc.ServiceRegistrar, srv AssistantServer) {
	registrar.RegisterService(&AssistantServiceDesc, srv)
}

var AssistantServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AssistantServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Chat", Handler: _Assistant_Chat_Handler},
		{MethodName: "Health", Handler: _Assistant_Health_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "proto/assistant.proto",
}

func _Assistant_Chat_Handler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(ChatRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AssistantServer).Chat(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: MethodChat,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AssistantServer).Chat(ctx, req.(*ChatRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Assistant_Health_Handler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(HealthRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AssistantServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: MethodHealth,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AssistantServer).Health(ctx, req.(*HealthRequest))
	}
	return interceptor(ctx, in, info, handler)
}

type AssistantClient interface {
	Chat(ctx context.Context, in *ChatRequest, opts ...grpc.CallOption) (*ChatResponse, error)
	Health(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error)
}

type assistantClient struct {
	cc grpc.ClientConnInterface
}

func NewAssistantClient(cc grpc.ClientConnInterface) AssistantClient {
	return &assistantClient{cc: cc}
}

func (c *assistantClient) Chat(ctx context.Context, in *ChatRequest, opts ...grpc.CallOption) (*ChatResponse, error) {
	out := new(ChatResponse)
	err := c.cc.Invoke(ctx, MethodChat, in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *assistantClient) Health(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error) {
	out := new(HealthResponse)
	err := c.cc.Invoke(ctx, MethodHealth, in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}
