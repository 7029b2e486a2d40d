package transport

import (
	"context"
	"sync"

	"github.com/rhuss/expresso/pkg/debug"
)

// Manager stores the application-wide middleware list. Handlers are
// appended during setup and read once per request by BuildChain.
//
// All methods are safe for concurrent access. Adding middleware while
// the server is handling requests is allowed by the locking but gives no
// guarantee about which in-flight requests observe the new handler.
type Manager struct {
	mu       sync.RWMutex
	handlers Chain
}

// NewManager creates an empty middleware manager.
func NewManager() *Manager {
	return &Manager{}
}

// Add appends middleware to the global list. It panics on a nil handler.
func (m *Manager) Add(handlers ...Handler) {
	for _, h := range handlers {
		if h == nil {
			panic("transport: nil middleware passed to Add")
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handlers...)
	debug.Log(debug.Middleware, "middleware added", "added", len(handlers), "total", len(m.handlers))
}

// BuildChain returns a fresh chain holding the global middleware in
// registration order followed by route. Neither input is modified.
func (m *Manager) BuildChain(route Chain) Chain {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(Chain, 0, len(m.handlers)+len(route))
	out = append(out, m.handlers...)
	return append(out, route...)
}

// Count reports the number of registered global middleware.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers)
}

// requestIDKeyType is the context key type for request IDs.
type requestIDKeyType struct{}

// requestIDKey is the context key for storing and retrieving request IDs.
var requestIDKey = requestIDKeyType{}

// RequestIDFromContext extracts the request ID from the context.
// Returns an empty string if no request ID is set.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithRequestID returns a new context with the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

type routeKeyType struct{}

var routeKey = routeKeyType{}

// ContextWithRoute marks ctx as belonging to a request that matched the
// registered route path.
func ContextWithRoute(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, routeKey, path)
}

// RouteFromContext returns the matched route path. ok is false for
// requests that reached no registered route.
func RouteFromContext(ctx context.Context) (path string, ok bool) {
	path, ok = ctx.Value(routeKey).(string)
	return path, ok
}
