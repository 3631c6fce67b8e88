package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func newObserved(t *testing.T) (*Tracer, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	tracer := New("gatedev", zap.New(core))
	return tracer, logs
}

func TestStartSpan(t *testing.T) {
	tracer, _ := newObserved(t)
	defer tracer.Close()

	root, ctx := tracer.StartSpan(context.Background(), "root")
	assert.NotEmpty(t, root.TraceID)
	assert.Empty(t, root.ParentID)
	assert.Equal(t, root.TraceID, GetTraceID(ctx))
	assert.Equal(t, root.SpanID, GetSpanID(ctx))

	child, _ := tracer.StartSpan(ctx, "child")
	assert.Equal(t, root.TraceID, child.TraceID)
	assert.Equal(t, root.SpanID, child.ParentID)
	assert.NotEqual(t, root.SpanID, child.SpanID)
}

func TestSubmitLogsOnClose(t *testing.T) {
	tracer, logs := newObserved(t)

	ok, _ := tracer.StartSpan(context.Background(), "read")
	ok.SetTag("device.endpoint", "gate0")
	ok.Finish()
	tracer.Submit(ok)

	failed, _ := tracer.StartSpan(context.Background(), "write")
	failed.SetError(errors.New("offset out of range"))
	failed.Finish()
	tracer.Submit(failed)

	tracer.Close()
	tracer.Close()

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, 1, logs.FilterMessage("Span completed").Len())
	warn := logs.FilterMessage("Span completed with error").All()
	require.Len(t, warn, 1)
	assert.Equal(t, "write", warn[0].ContextMap()["operation"])

	// dropped silently after close
	tracer.Submit(ok)
	assert.Equal(t, 2, logs.Len())
}

func TestInjectExtract(t *testing.T) {
	ctx := WithTraceContext(context.Background(), "trace-1", "span-1")
	headers := map[string]string{}
	InjectTraceContext(ctx, headers)

	traceID, spanID := ExtractTraceContext(headers)
	assert.Equal(t, TraceID("trace-1"), traceID)
	assert.Equal(t, SpanID("span-1"), spanID)
	assert.Equal(t, "[trace:trace-1 span:span-1]", FormatTrace(traceID, spanID))

	empty := map[string]string{}
	InjectTraceContext(context.Background(), empty)
	assert.Empty(t, empty)
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer, logs := newObserved(t)

	var seen TraceID
	router := gin.New()
	router.Use(HTTPMiddleware(tracer))
	router.GET("/endpoints/:name", func(c *gin.Context) {
		seen = GetTraceID(c.Request.Context())
		c.Status(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/endpoints/gate0", nil)
	req.Header.Set(HeaderTraceID, "incoming")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	tracer.Close()

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, TraceID("incoming"), seen)
	assert.Equal(t, "incoming", w.Header().Get(HeaderTraceID))
	assert.NotEmpty(t, w.Header().Get(HeaderSpanID))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "418", fields["http.status"])
	assert.Equal(t, "gate0", fields["device.endpoint"])
	assert.Equal(t, "GET /endpoints/:name", fields["operation"])
}

func TestGRPCUnaryInterceptor(t *testing.T) {
	tracer, logs := newObserved(t)
	interceptor := GRPCUnaryInterceptor(tracer)

	md := metadata.Pairs("x-trace-id", "from-client", "x-span-id", "parent")
	ctx := metadata.NewIncomingContext(context.Background(), md)
	info := &grpc.UnaryServerInfo{FullMethod: "/gatedev.v1.Device/Read"}

	var gotTrace TraceID
	_, err := interceptor(ctx, nil, info, func(ctx context.Context, _ any) (any, error) {
		gotTrace = GetTraceID(ctx)
		return nil, status.Error(codes.OutOfRange, "offset out of range")
	})
	tracer.Close()

	require.Error(t, err)
	assert.Equal(t, TraceID("from-client"), gotTrace)
	entries := logs.FilterMessage("Span completed with error").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "OutOfRange", fields["rpc.code"])
	assert.Equal(t, "parent", fields["parent_id"])
}

func TestGRPCClientInterceptor(t *testing.T) {
	tracer, _ := newObserved(t)
	defer tracer.Close()
	interceptor := GRPCClientInterceptor(tracer)

	var outgoing metadata.MD
	invoker := func(ctx context.Context, _ string, _, _ any, _ *grpc.ClientConn, _ ...grpc.CallOption) error {
		outgoing, _ = metadata.FromOutgoingContext(ctx)
		return nil
	}
	err := interceptor(context.Background(), "/gatedev.v1.Device/Stats", nil, nil, nil, invoker)
	require.NoError(t, err)
	assert.Len(t, outgoing.Get(HeaderTraceID), 1)
	assert.Len(t, outgoing.Get(HeaderSpanID), 1)
}
