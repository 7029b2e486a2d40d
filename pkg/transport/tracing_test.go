package transport

import (
	"context"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/rhuss/expresso/pkg/api"
)

// recordingTracer records span names and start attributes, delegating the
// spans themselves to the no-op implementation.
type recordingTracer struct {
	noop.Tracer
	names []string
	attrs []attribute.KeyValue
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	t.names = append(t.names, name)
	t.attrs = append(t.attrs, cfg.Attributes()...)
	return t.Tracer.Start(ctx, name, opts...)
}

func TestTracingStartsServerSpan(t *testing.T) {
	tracer := &recordingTracer{}

	res := Execute(context.Background(), NewChain(Tracing(tracer), okHandler()), newRequest(api.MethodGet, "/hello"), api.NewResponse())

	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", res.StatusCode)
	}
	if len(tracer.names) != 1 || tracer.names[0] != "GET /hello" {
		t.Fatalf("span names = %v, want [GET /hello]", tracer.names)
	}

	found := map[attribute.Key]string{}
	for _, kv := range tracer.attrs {
		found[kv.Key] = kv.Value.Emit()
	}
	if found["http.request.method"] != "GET" {
		t.Errorf("http.request.method = %q, want GET", found["http.request.method"])
	}
	if found["url.path"] != "/hello" {
		t.Errorf("url.path = %q, want /hello", found["url.path"])
	}
}

func TestTracingNilTracerUsesGlobal(t *testing.T) {
	res := Execute(context.Background(), NewChain(Tracing(nil), okHandler()), newRequest(api.MethodGet, "/"), api.NewResponse())
	if string(res.Body) != "ok" {
		t.Errorf("body = %q, want %q", res.Body, "ok")
	}
}
