package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rhuss/expresso/pkg/api"
	"github.com/rhuss/expresso/pkg/app"
	"github.com/rhuss/expresso/pkg/config"
	"github.com/rhuss/expresso/pkg/observability"
	"github.com/rhuss/expresso/pkg/transport"
)

// rateLimitIdleTTL bounds how long an idle client's bucket is kept.
const rateLimitIdleTTL = 10 * time.Minute

// registerMiddleware installs the global middleware in execution order.
func registerMiddleware(e *app.Expresso, cfg *config.Config) {
	logger := e.Logger()

	e.Use(
		transport.Recovery(logger),
		transport.RequestID(),
		transport.Logging(logger),
	)

	if cfg.Observability.Tracing.Enabled {
		e.Use(transport.Tracing(nil))
	}

	if cfg.CORS.Enabled {
		e.Use(transport.CORS(transport.CORSConfig{
			Origins:         cfg.CORS.Origins,
			Methods:         cfg.CORS.Methods,
			Headers:         cfg.CORS.Headers,
			MaxAge:          cfg.CORS.MaxAge,
			HandlePreflight: cfg.CORS.Preflight,
		}))
	}

	if cfg.RateLimit.Enabled {
		e.Use(transport.RateLimit(transport.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			IdleTTL:           rateLimitIdleTTL,
			OnReject:          observability.CountRateLimitRejection,
		}))
	}

	if cfg.Observability.Metrics.Enabled {
		e.Use(observability.Metrics())
	}
}

// registerRoutes installs the demo routes and the operational endpoints.
func registerRoutes(e *app.Expresso, cfg *config.Config) {
	e.GetFunc("/hello", hello)
	e.PostFunc("/submit", submit)
	e.PostFunc("/resource", createResource)
	e.GetFunc("/healthz", healthz)

	if cfg.Observability.Metrics.Enabled {
		e.Get(cfg.Observability.Metrics.Path, observability.MetricsHandler(nil))
	}
}

func hello(_ context.Context, _ *api.Request, res *api.Response, _ transport.Next) *api.Response {
	return res.Text(200, "Hello, World!")
}

// submit echoes a JSON object body back to the client.
func submit(_ context.Context, req *api.Request, res *api.Response, _ transport.Next) *api.Response {
	if !req.HasBody() {
		return transport.WriteAPIError(res, api.NewInvalidRequestError("body", "request body is required"))
	}

	var payload map[string]any
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		return transport.WriteAPIError(res, api.NewInvalidRequestError("body", "request body must be a JSON object"))
	}

	out, err := res.JSON(map[string]any{"received": payload})
	if err != nil {
		return transport.WriteAPIError(res, api.NewServerError("encoding response"))
	}
	return out
}

func createResource(_ context.Context, _ *api.Request, res *api.Response, _ transport.Next) *api.Response {
	return res.Text(201, "Created")
}

func healthz(_ context.Context, _ *api.Request, res *api.Response, _ transport.Next) *api.Response {
	return res.Text(200, "ok")
}
