package transport

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rhuss/expresso/pkg/api"
)

// TracerName is the instrumentation scope used when no tracer is supplied.
const TracerName = "github.com/rhuss/expresso/pkg/transport"

// Tracing returns middleware that wraps the rest of the chain in a server
// span named "METHOD path". A nil tracer uses the global TracerProvider,
// which is a no-op until the application installs an SDK.
func Tracing(tracer trace.Tracer) Handler {
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return HandlerFunc(func(ctx context.Context, req *api.Request, res *api.Response, next Next) *api.Response {
		ctx, span := tracer.Start(ctx, req.Method.String()+" "+req.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", req.Method.String()),
				attribute.String("url.path", req.Path),
				attribute.String("network.protocol.version", req.Proto),
			),
		)
		defer span.End()

		if id := RequestIDFromContext(ctx); id != "" {
			span.SetAttributes(attribute.String("request.id", id))
		}

		out := next(ctx)

		span.SetAttributes(attribute.Int("http.response.status_code", out.StatusCode))
		if out.StatusCode >= 500 {
			span.SetStatus(codes.Error, api.StatusText(out.StatusCode))
		}
		return out
	})
}
