package intel

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "flyvpn.intel.v1.Intel"

const (
	methodNeutralize = "/" + ServiceName + "/Neutralize"
	methodProgress   = "/" + ServiceName + "/Progress"
)

// IntelServer is the server API of the intel service. Messages are
// protobuf well-known types so no generated code is needed.
type IntelServer interface {
	Neutralize(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Progress(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IntelServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Neutralize", Handler: neutralizeHandler},
		{MethodName: "Progress", Handler: progressHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "flyvpn/intel/v1/intel.proto",
}

// RegisterIntelServer attaches srv to registrar.
func RegisterIntelServer(registrar grpc.ServiceRegistrar, srv IntelServer) {
	registrar.RegisterService(&serviceDesc, srv)
}

func neutralizeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IntelServer).Neutralize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodNeutralize}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IntelServer).Neutralize(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func progressHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IntelServer).Progress(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodProgress}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IntelServer).Progress(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls the intel service over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Neutralize reports a handled threat by id or category.
func (c *Client) Neutralize(ctx context.Context, ref string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodNeutralize, wrapperspb.String(ref), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Progress fetches the current progression.
func (c *Client) Progress(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodProgress, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
