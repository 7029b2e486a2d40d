package transport

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/rhuss/expresso/pkg/api"
)

// LoggingConfig tunes the log line emitted by LoggingWith.
type LoggingConfig struct {
	// Prefix is prepended to the log message, e.g. "[API]".
	Prefix string
	// Headers adds the request headers to every entry.
	Headers bool
}

// Logging returns middleware that emits one structured log entry per
// request, after the rest of the chain has produced a response. The entry
// includes method, path, status, duration and request ID (from context).
// 5xx responses log at error level, 4xx at warn, everything else at info.
func Logging(logger *slog.Logger) Handler {
	return LoggingWith(logger, LoggingConfig{})
}

// DetailedLogging is Logging with request headers included.
func DetailedLogging(logger *slog.Logger) Handler {
	return LoggingWith(logger, LoggingConfig{Headers: true})
}

// LoggingWithPrefix is Logging with a custom message prefix.
func LoggingWithPrefix(logger *slog.Logger, prefix string) Handler {
	return LoggingWith(logger, LoggingConfig{Prefix: prefix})
}

// LoggingWith returns logging middleware configured by cfg.
func LoggingWith(logger *slog.Logger, cfg LoggingConfig) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	msg := strings.TrimSpace(cfg.Prefix + " request completed")

	return HandlerFunc(func(ctx context.Context, req *api.Request, res *api.Response, next Next) *api.Response {
		start := time.Now()

		out := next(ctx)

		attrs := []slog.Attr{
			slog.String("request_id", RequestIDFromContext(ctx)),
			slog.String("method", req.Method.String()),
			slog.String("path", req.Path),
			slog.Int("status", out.StatusCode),
			slog.Int("bytes", len(out.Body)),
			slog.Duration("duration", time.Since(start)),
		}
		if req.RemoteAddr != "" {
			attrs = append(attrs, slog.String("remote_addr", req.RemoteAddr))
		}
		if cfg.Headers {
			attrs = append(attrs, slog.Any("headers", req.Header))
		}

		level := slog.LevelInfo
		switch {
		case out.StatusCode >= 500:
			level = slog.LevelError
		case out.StatusCode >= 400:
			level = slog.LevelWarn
		}
		logger.LogAttrs(ctx, level, msg, attrs...)

		return out
	})
}
