package transport

import (
	"context"

	"github.com/google/uuid"

	"github.com/rhuss/expresso/pkg/api"
)

// RequestIDHeader is the header used to propagate request IDs.
const RequestIDHeader = "X-Request-ID"

// RequestID returns middleware that assigns a unique request ID to each
// request. An inbound X-Request-ID header wins, then an ID already present
// in the context; otherwise a new UUID is generated. The ID is stored in
// the context for downstream handlers and echoed on the response.
func RequestID() Handler {
	return HandlerFunc(func(ctx context.Context, req *api.Request, res *api.Response, next Next) *api.Response {
		id := req.HeaderValue(RequestIDHeader)
		if id == "" {
			id = RequestIDFromContext(ctx)
		}
		if id == "" {
			id = generateRequestID()
		}
		ctx = ContextWithRequestID(ctx, id)

		out := next(ctx)
		if out.Header.Get(RequestIDHeader) == "" {
			out.SetHeader(RequestIDHeader, id)
		}
		return out
	})
}

// generateRequestID creates a new random (version 4) UUID string.
func generateRequestID() string {
	return uuid.NewString()
}
