package observability

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/rhuss/expresso/pkg/api"
	"github.com/rhuss/expresso/pkg/transport"
)

// unmatchedRoute is the route label for requests that reached no route.
// Using the raw path there would let clients create unbounded label values.
const unmatchedRoute = "unmatched"

// Metrics returns middleware that records request metrics:
//   - expresso_requests_total (counter): method, status class, and route labels
//   - expresso_request_duration_seconds (histogram): method and route labels
//
// The route label is the matched route from the context. Requests that
// reached no route share the "unmatched" label whatever status the
// not-found handler chose.
func Metrics() transport.Handler {
	return transport.HandlerFunc(func(ctx context.Context, req *api.Request, _ *api.Response, next transport.Next) *api.Response {
		start := time.Now()

		out := next(ctx)

		route, ok := transport.RouteFromContext(ctx)
		if !ok {
			route = unmatchedRoute
		}

		// Build a status class label like "2xx", "4xx", "5xx".
		statusStr := strconv.Itoa(out.StatusCode/100) + "xx"

		RequestsTotal.WithLabelValues(req.Method.String(), statusStr, route).Inc()
		RequestDuration.WithLabelValues(req.Method.String(), route).Observe(time.Since(start).Seconds())

		return out
	})
}

// CountRateLimitRejection is a transport.RateLimitConfig OnReject hook.
func CountRateLimitRejection(*api.Request) {
	RateLimitRejectedTotal.Inc()
}

// MetricsHandler returns a terminal handler that renders every family
// collected by gatherer in the Prometheus text exposition format. A nil
// gatherer uses the default registry.
func MetricsHandler(gatherer prometheus.Gatherer) transport.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	format := expfmt.NewFormat(expfmt.TypeTextPlain)

	return transport.HandlerFunc(func(_ context.Context, _ *api.Request, res *api.Response, _ transport.Next) *api.Response {
		families, err := gatherer.Gather()
		if err != nil && len(families) == 0 {
			return transport.WriteAPIError(res, api.NewServerError("gathering metrics: "+err.Error()))
		}

		var buf bytes.Buffer
		enc := expfmt.NewEncoder(&buf, format)
		for _, mf := range families {
			if err := enc.Encode(mf); err != nil {
				return transport.WriteAPIError(res, api.NewServerError("encoding metrics: "+err.Error()))
			}
		}

		return res.Status(http.StatusOK).
			SetHeader("Content-Type", string(format)).
			SendBytes(buf.Bytes())
	})
}
