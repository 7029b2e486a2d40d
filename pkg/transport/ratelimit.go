package transport

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rhuss/expresso/pkg/api"
)

// RateLimitConfig holds per-client token bucket settings.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client. <= 0 disables limiting.
	RequestsPerSecond float64
	// Burst is the bucket size. Defaults to 1 when unset.
	Burst int
	// IdleTTL drops buckets for clients not seen within this window.
	IdleTTL time.Duration
	// OnReject is called for every rejected request, e.g. to count it.
	OnReject func(req *api.Request)
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keys token buckets by client host.
type rateLimiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	clients map[string]*clientBucket
	sweepAt time.Time
	now     func() time.Time
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 5 * time.Minute
	}
	return &rateLimiter{
		cfg:     cfg,
		clients: make(map[string]*clientBucket),
		now:     time.Now,
	}
}

// allow reports whether key may proceed now.
func (l *rateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.After(l.sweepAt) {
		for k, b := range l.clients {
			if now.Sub(b.lastSeen) > l.cfg.IdleTTL {
				delete(l.clients, k)
			}
		}
		l.sweepAt = now.Add(l.cfg.IdleTTL)
	}

	b, ok := l.clients[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.clients[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// RateLimit returns middleware enforcing a per-client request rate. Clients
// are identified by the host part of the connection's remote address.
// Rejected requests short-circuit with 429 and a Retry-After header.
func RateLimit(cfg RateLimitConfig) Handler {
	if cfg.RequestsPerSecond <= 0 {
		return HandlerFunc(func(ctx context.Context, _ *api.Request, _ *api.Response, next Next) *api.Response {
			return next(ctx)
		})
	}

	l := newRateLimiter(cfg)
	retryAfter := strconv.Itoa(max(1, int(1/cfg.RequestsPerSecond)))

	return HandlerFunc(func(ctx context.Context, req *api.Request, res *api.Response, next Next) *api.Response {
		if l.allow(clientKey(req.RemoteAddr)) {
			return next(ctx)
		}
		if cfg.OnReject != nil {
			cfg.OnReject(req)
		}
		res.SetHeader("Retry-After", retryAfter)
		return WriteAPIError(res, api.NewTooManyRequestsError("rate limit exceeded"))
	})
}

func clientKey(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
