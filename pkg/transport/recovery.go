package transport

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/rhuss/expresso/pkg/api"
)

// Recovery returns middleware that catches panics raised by the remainder
// of the chain, including handler contract violations, and converts them
// to a 500 response. The response keeps headers set before the panic.
func Recovery(logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return HandlerFunc(func(ctx context.Context, req *api.Request, res *api.Response, next Next) (out *api.Response) {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(ctx, "panic recovered",
					slog.String("request_id", RequestIDFromContext(ctx)),
					slog.String("method", req.Method.String()),
					slog.String("path", req.Path),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				out = WriteAPIError(res, api.NewServerError(fmt.Sprintf("internal server error: %v", r)))
			}
		}()
		return next(ctx)
	})
}
