package grpcapi

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified gRPC service name
const ServiceName = "flux.replication.v1.Coordinator"

const (
	methodWrite        = "Write"
	methodRead         = "Read"
	methodSetPartition = "SetPartition"
	methodMetrics      = "Metrics"
	methodListReplicas = "ListReplicas"
)

// CoordinatorServer is the server API for the Coordinator service
type CoordinatorServer interface {
	Write(context.Context, *WriteRequest) (*WriteResponse, error)
	Read(context.Context, *ReadRequest) (*ReadResponse, error)
	SetPartition(context.Context, *SetPartitionRequest) (*SetPartitionResponse, error)
	Metrics(context.Context, *MetricsRequest) (*MetricsResponse, error)
	ListReplicas(context.Context, *ListReplicasRequest) (*ListReplicasResponse, error)
}

// CoordinatorServiceDesc describes the Coordinator service for grpc.Server
var CoordinatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CoordinatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: methodWrite, Handler: unaryHandler(methodWrite, CoordinatorServer.Write)},
		{MethodName: methodRead, Handler: unaryHandler(methodRead, CoordinatorServer.Read)},
		{MethodName: methodSetPartition, Handler: unaryHandler(methodSetPartition, CoordinatorServer.SetPartition)},
		{MethodName: methodMetrics, Handler: unaryHandler(methodMetrics, CoordinatorServer.Metrics)},
		{MethodName: methodListReplicas, Handler: unaryHandler(methodListReplicas, CoordinatorServer.ListReplicas)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "flux/replication/v1/coordinator",
}

// RegisterCoordinatorServer registers srv on s
func RegisterCoordinatorServer(s grpc.ServiceRegistrar, srv CoordinatorServer) {
	s.RegisterService(&CoordinatorServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler[Req, Resp any](method string, call func(CoordinatorServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	name := fullMethod(method)
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CoordinatorServer), ctx, in)
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CoordinatorServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: name}, handler)
	}
}
