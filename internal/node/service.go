package node

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name of the placement service.
const ServiceName = "kvring.v1.Ring"

// RingServer is the server API for the placement service. Requests and
// responses travel as well-known protobuf types.
type RingServer interface {
	AddNode(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	RemoveNode(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	SetWeight(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Locate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Snapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterRingServer registers srv on s.
func RegisterRingServer(s grpc.ServiceRegistrar, srv RingServer) {
	s.RegisterService(&ringServiceDesc, srv)
}

var ringServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RingServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AddNode",
			Handler: unaryHandler("AddNode", func(srv RingServer, ctx context.Context, req *structpb.Struct) (proto.Message, error) {
				return srv.AddNode(ctx, req)
			}),
		},
		{
			MethodName: "RemoveNode",
			Handler: unaryHandler("RemoveNode", func(srv RingServer, ctx context.Context, req *structpb.Struct) (proto.Message, error) {
				return srv.RemoveNode(ctx, req)
			}),
		},
		{
			MethodName: "SetWeight",
			Handler: unaryHandler("SetWeight", func(srv RingServer, ctx context.Context, req *structpb.Struct) (proto.Message, error) {
				return srv.SetWeight(ctx, req)
			}),
		},
		{
			MethodName: "Locate",
			Handler: unaryHandler("Locate", func(srv RingServer, ctx context.Context, req *structpb.Struct) (proto.Message, error) {
				return srv.Locate(ctx, req)
			}),
		},
		{
			MethodName: "Snapshot",
			Handler: unaryHandler("Snapshot", func(srv RingServer, ctx context.Context, req *emptypb.Empty) (proto.Message, error) {
				return srv.Snapshot(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kvring/v1/ring.proto",
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unaryHandler builds a grpc.MethodHandler that decodes into a fresh Req and
// runs call, going through the server's interceptor when one is installed.
func unaryHandler[Req any, PReq interface {
	*Req
	proto.Message
}](method string, call func(RingServer, context.Context, PReq) (proto.Message, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RingServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RingServer), ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}
