package rpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "gatedev.v1.Device"

// ServiceDesc describes gatedev.v1.Device for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DeviceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Open", DeviceServer.Open),
		unary("Read", DeviceServer.Read),
		unary("Write", DeviceServer.Write),
		unary("Close", DeviceServer.Close),
		unary("Stats", DeviceServer.Stats),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gatedev/v1/device",
}

func unary[Req, Resp any](method string, call func(DeviceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DeviceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(DeviceServer), ctx, req.(*Req))
			})
		},
	}
}

// Recorder receives per-call metrics.
type Recorder interface {
	RecordRPC(method, code string, duration time.Duration)
}

// MetricsInterceptor records the method, status code and latency of every call.
func MetricsInterceptor(rec Recorder) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		rec.RecordRPC(info.FullMethod, status.Code(err).String(), time.Since(start))
		return resp, err
	}
}

// NewServer creates a grpc.Server with the device service registered.
// Interceptors run in the order given.
func NewServer(svc DeviceServer, interceptors ...grpc.UnaryServerInterceptor) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(interceptors...),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             30 * time.Second,
			PermitWithoutStream: false,
		}),
		grpc.MaxRecvMsgSize(1024*1024),
	)
	srv.RegisterService(&ServiceDesc, svc)
	return srv
}
