/*
Package tracing provides lightweight request tracing.

# Overview

Every HTTP request and gRPC call gets a span with a ULID trace ID. Trace
context travels in the X-Trace-ID / X-Span-ID headers (HTTP) or the
x-trace-id / x-span-id metadata keys (gRPC). Finished spans are handed to a
buffered collector goroutine that logs them through zap; a full buffer drops
spans rather than blocking a request.

Spans for blocking reads cover the whole time the reader was parked on the
gate, which makes them handy for spotting readers that were never released.

# Usage

	tracer := tracing.New("gatedev", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	server := grpc.NewServer(
		grpc.UnaryInterceptor(tracing.GRPCUnaryInterceptor(tracer)),
	)

	conn, err := grpc.NewClient(addr,
		grpc.WithUnaryInterceptor(tracing.GRPCClientInterceptor(tracer)),
	)
*/
package tracing
