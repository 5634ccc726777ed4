package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Method names of the relay.v1.Relay service.
const (
	ServiceName    = "relay.v1.Relay"
	RegisterMethod = "/relay.v1.Relay/Register"
	RetrieveMethod = "/relay.v1.Relay/Retrieve"
)

// RelayIface is the server API of relay.v1.Relay. Messages are
// well-known types so no generated code is needed:
//
//	rpc Register(google.protobuf.Struct) returns (google.protobuf.StringValue);
//	rpc Retrieve(google.protobuf.StringValue) returns (stream google.protobuf.BytesValue);
type RelayIface interface {
	Register(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	Retrieve(*wrapperspb.StringValue, RetrieveServer) error
}

// RetrieveServer is the server side of a Retrieve stream.
type RetrieveServer interface {
	Send(*wrapperspb.BytesValue) error
	grpc.ServerStream
}

// ServiceDesc describes relay.v1.Relay for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RelayIface)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Register",
			Handler:    registerHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Retrieve",
			Handler:       retrieveHandler,
			ServerStreams: true,
		},
	},
	Metadata: "relay/v1/relay.proto",
}

func registerHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RelayIface).Register(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: RegisterMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RelayIface).Register(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

func retrieveHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(wrapperspb.StringValue)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}

	return srv.(RelayIface).Retrieve(m, &retrieveServer{stream})
}

type retrieveServer struct {
	grpc.ServerStream
}

func (x *retrieveServer) Send(m *wrapperspb.BytesValue) error {
	return x.ServerStream.SendMsg(m)
}

// RelayClient calls relay.v1.Relay over a client connection.
type RelayClient struct {
	cc grpc.ClientConnInterface
}

func NewRelayClient(cc grpc.ClientConnInterface) *RelayClient {
	return &RelayClient{cc: cc}
}

// Register returns the short link for url. An empty userAgent is omitted.
func (c *RelayClient) Register(ctx context.Context, url, userAgent string, opts ...grpc.CallOption) (string, error) {
	fields := map[string]interface{}{"url": url}
	if userAgent != "" {
		fields["user_agent"] = userAgent
	}

	in, err := structpb.NewStruct(fields)
	if err != nil {
		return "", err
	}

	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, RegisterMethod, in, out, opts...); err != nil {
		return "", err
	}

	return out.GetValue(), nil
}

// RetrieveClient is the client side of a Retrieve stream.
type RetrieveClient interface {
	Recv() (*wrapperspb.BytesValue, error)
	grpc.ClientStream
}

// Retrieve opens the body stream of the link with the given id.
func (c *RelayClient) Retrieve(ctx context.Context, id string, opts ...grpc.CallOption) (RetrieveClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], RetrieveMethod, opts...)
	if err != nil {
		return nil, err
	}

	x := &retrieveClient{stream}
	if err := x.ClientStream.SendMsg(wrapperspb.String(id)); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}

	return x, nil
}

type retrieveClient struct {
	grpc.ClientStream
}

func (x *retrieveClient) Recv() (*wrapperspb.BytesValue, error) {
	m := new(wrapperspb.BytesValue)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}

	return m, nil
}
