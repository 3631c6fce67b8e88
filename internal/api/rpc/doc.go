/*
Package rpc serves a device over gRPC as the gatedev.v1.Device service.

Messages are plain Go structs encoded as JSON by a codec registered under
the "json" content subtype, so there is no generated code. The client sets
that subtype on every call.

	srv := rpc.NewServer(rpc.NewService(ns, dev, logger),
		tracing.GRPCUnaryInterceptor(tracer),
		rpc.MetricsInterceptor(metrics),
	)

Device errors map to status codes: out of range to OutOfRange, unknown
endpoint or session to NotFound, interrupted reads to Canceled, shutdown to
Unavailable and closed sessions to FailedPrecondition. The client maps them
back, so errors.Is works against the chardev sentinels on both sides.
*/
package rpc
