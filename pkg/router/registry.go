package router

import (
	"cmp"
	"slices"
	"sync"

	"github.com/rhuss/expresso/pkg/api"
	"github.com/rhuss/expresso/pkg/debug"
	"github.com/rhuss/expresso/pkg/transport"
)

// Route identifies a registered endpoint.
type Route struct {
	Method api.Method
	Path   string
}

// String renders the route as "METHOD /path".
func (r Route) String() string {
	return r.Method.String() + " " + r.Path
}

// Registry maps routes to handler chains.
//
// Routes are normally registered during setup and looked up concurrently
// by connection goroutines. Writers take the lock exclusively, lookups
// share it.
type Registry struct {
	mu     sync.RWMutex
	routes map[Route]transport.Chain
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		routes: make(map[Route]transport.Chain),
	}
}

// Add registers chain for method and path. Registering the same pair again
// replaces the previous chain. An empty chain panics.
func (r *Registry) Add(method api.Method, path string, chain transport.Chain) {
	if len(chain) == 0 {
		panic("router: route " + method.String() + " " + path + " registered without handlers")
	}

	key := Route{Method: method, Path: path}
	stored := slices.Clone(chain)

	r.mu.Lock()
	_, exists := r.routes[key]
	r.routes[key] = stored
	r.mu.Unlock()

	if exists {
		debug.Log(debug.Router, "route replaced", "route", key.String(), "handlers", len(stored))
		return
	}
	debug.Log(debug.Router, "route added", "route", key.String(), "handlers", len(stored))
}

// Find returns a copy of the chain registered for method and path.
func (r *Registry) Find(method api.Method, path string) (transport.Chain, bool) {
	r.mu.RLock()
	chain, ok := r.routes[Route{Method: method, Path: path}]
	r.mu.RUnlock()

	if !ok {
		return nil, false
	}
	return slices.Clone(chain), true
}

// Methods returns the methods registered for path in canonical order.
// The connection handler uses it to build Allow headers.
func (r *Registry) Methods(path string) []api.Method {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []api.Method
	for _, m := range api.Methods() {
		if _, ok := r.routes[Route{Method: m, Path: path}]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Routes returns a snapshot of every registered route, sorted by path and
// then by method.
func (r *Registry) Routes() []Route {
	r.mu.RLock()
	out := make([]Route, 0, len(r.routes))
	for key := range r.routes {
		out = append(out, key)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Route) int {
		if c := cmp.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return cmp.Compare(a.Method, b.Method)
	})
	return out
}

// Len reports the number of registered routes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}
