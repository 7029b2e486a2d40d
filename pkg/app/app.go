package app

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rhuss/expresso/pkg/api"
	"github.com/rhuss/expresso/pkg/debug"
	"github.com/rhuss/expresso/pkg/router"
	"github.com/rhuss/expresso/pkg/transport"
	transporthttp "github.com/rhuss/expresso/pkg/transport/http"
)

// Expresso is an application: routes, global middleware and the server
// that dispatches to them.
type Expresso struct {
	routes     *router.Registry
	middleware *transport.Manager
	notFound   transport.Handler
	logger     *slog.Logger
	host       string
	serverOpts []transporthttp.ServerOption

	listening atomic.Bool
	mu        sync.Mutex
	addr      string
}

// Option configures an Expresso application.
type Option func(*Expresso)

// WithLogger sets the logger used by the application and its server.
func WithLogger(l *slog.Logger) Option {
	return func(e *Expresso) { e.logger = l }
}

// WithHost sets the interface Listen binds to. The default binds all
// interfaces.
func WithHost(host string) Option {
	return func(e *Expresso) { e.host = host }
}

// WithNotFound replaces the handler that answers requests without a route.
// It runs after the global middleware.
func WithNotFound(h transport.Handler) Option {
	return func(e *Expresso) { e.notFound = h }
}

// WithServerOptions passes options through to the connection handler.
func WithServerOptions(opts ...transporthttp.ServerOption) Option {
	return func(e *Expresso) { e.serverOpts = append(e.serverOpts, opts...) }
}

// New creates an application with no routes and no middleware.
func New(opts ...Option) *Expresso {
	e := &Expresso{
		routes:     router.New(),
		middleware: transport.NewManager(),
		notFound:   transport.NotFound(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.notFound == nil {
		e.notFound = transport.NotFound()
	}
	return e
}

// Use appends global middleware. Global middleware runs before the route
// chain of every request, including requests that match no route.
func (e *Expresso) Use(handlers ...transport.Handler) {
	e.warnIfListening("middleware added after listen")
	e.middleware.Add(handlers...)
}

// UseFunc is Use for plain functions.
func (e *Expresso) UseFunc(fns ...transport.HandlerFunc) {
	e.Use(transport.Funcs(fns...)...)
}

// Handle registers handlers, in order, as the chain for method and path.
// Registering an existing method and path replaces its chain. It panics
// when no handler is given or any handler is nil.
func (e *Expresso) Handle(method api.Method, path string, handlers ...transport.Handler) {
	e.warnIfListening("route added after listen", "method", method, "path", path)
	e.routes.Add(method, path, transport.NewChain(handlers...))
}

// Get registers a GET route.
func (e *Expresso) Get(path string, handlers ...transport.Handler) {
	e.Handle(api.MethodGet, path, handlers...)
}

// Post registers a POST route.
func (e *Expresso) Post(path string, handlers ...transport.Handler) {
	e.Handle(api.MethodPost, path, handlers...)
}

// Put registers a PUT route.
func (e *Expresso) Put(path string, handlers ...transport.Handler) {
	e.Handle(api.MethodPut, path, handlers...)
}

// Delete registers a DELETE route.
func (e *Expresso) Delete(path string, handlers ...transport.Handler) {
	e.Handle(api.MethodDelete, path, handlers...)
}

// Patch registers a PATCH route.
func (e *Expresso) Patch(path string, handlers ...transport.Handler) {
	e.Handle(api.MethodPatch, path, handlers...)
}

// Head registers a HEAD route.
func (e *Expresso) Head(path string, handlers ...transport.Handler) {
	e.Handle(api.MethodHead, path, handlers...)
}

// Options registers an OPTIONS route.
func (e *Expresso) Options(path string, handlers ...transport.Handler) {
	e.Handle(api.MethodOptions, path, handlers...)
}

// HandleFunc is Handle for plain functions.
func (e *Expresso) HandleFunc(method api.Method, path string, fns ...transport.HandlerFunc) {
	e.Handle(method, path, transport.Funcs(fns...)...)
}

// GetFunc registers plain functions for GET path.
func (e *Expresso) GetFunc(path string, fns ...transport.HandlerFunc) {
	e.HandleFunc(api.MethodGet, path, fns...)
}

// PostFunc registers plain functions for POST path.
func (e *Expresso) PostFunc(path string, fns ...transport.HandlerFunc) {
	e.HandleFunc(api.MethodPost, path, fns...)
}

// PutFunc registers plain functions for PUT path.
func (e *Expresso) PutFunc(path string, fns ...transport.HandlerFunc) {
	e.HandleFunc(api.MethodPut, path, fns...)
}

// DeleteFunc registers plain functions for DELETE path.
func (e *Expresso) DeleteFunc(path string, fns ...transport.HandlerFunc) {
	e.HandleFunc(api.MethodDelete, path, fns...)
}

// PatchFunc registers plain functions for PATCH path.
func (e *Expresso) PatchFunc(path string, fns ...transport.HandlerFunc) {
	e.HandleFunc(api.MethodPatch, path, fns...)
}

// HeadFunc registers plain functions for HEAD path.
func (e *Expresso) HeadFunc(path string, fns ...transport.HandlerFunc) {
	e.HandleFunc(api.MethodHead, path, fns...)
}

// OptionsFunc registers plain functions for OPTIONS path.
func (e *Expresso) OptionsFunc(path string, fns ...transport.HandlerFunc) {
	e.HandleFunc(api.MethodOptions, path, fns...)
}

// Dispatch runs the global middleware followed by the chain registered for
// the request, or by the not-found handler when there is none, against a
// fresh 200 response. It implements transporthttp.Dispatcher.
//
// Handler contract violations panic out of Dispatch; the connection
// handler and the Recovery middleware turn them into 500 responses.
func (e *Expresso) Dispatch(ctx context.Context, req *api.Request) *api.Response {
	route, ok := e.routes.Find(req.Method, req.Path)
	if ok {
		ctx = transport.ContextWithRoute(ctx, req.Path)
	} else {
		debug.Log(debug.Router, "no route", "method", req.Method, "path", req.Path)
		route = transport.Chain{e.notFound}
	}
	return transport.Execute(ctx, e.middleware.BuildChain(route), req, api.NewResponse())
}

// Handler exposes the application as a net/http Handler.
func (e *Expresso) Handler() http.Handler {
	return transporthttp.NewAdapter(e, transporthttp.Limits{})
}

// Listen binds host:port, calls onStart once the socket is bound, and
// serves until ctx is cancelled, then shuts down gracefully. Bind errors
// are returned without calling onStart. Port 0 picks a free port; Addr
// reports it.
func (e *Expresso) Listen(ctx context.Context, port int, onStart func()) error {
	addr := net.JoinHostPort(e.host, strconv.Itoa(port))

	opts := append([]transporthttp.ServerOption{transporthttp.WithLogger(e.logger)}, e.serverOpts...)
	opts = append(opts, transporthttp.WithAddr(addr))
	srv := transporthttp.NewServer(e, opts...)

	ln, err := srv.Listen(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.addr = ln.Addr().String()
	e.mu.Unlock()
	e.listening.Store(true)
	defer e.listening.Store(false)

	debug.Log(debug.Server, "listening", "addr", ln.Addr().String(), "routes", e.routes.Len(), "middleware", e.middleware.Count())
	if onStart != nil {
		onStart()
	}
	return srv.ServeOn(ctx, ln)
}

// Addr returns the address the application is serving on, or "" before
// Listen has bound.
func (e *Expresso) Addr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addr
}

// Routes returns the registered routes as "METHOD /path", sorted by path
// and then method.
func (e *Expresso) Routes() []string {
	routes := e.routes.Routes()
	out := make([]string, len(routes))
	for i, r := range routes {
		out[i] = r.String()
	}
	return out
}

// Logger returns the logger the application and its server write to.
func (e *Expresso) Logger() *slog.Logger {
	return e.logger
}

// MiddlewareCount reports the number of global middleware.
func (e *Expresso) MiddlewareCount() int {
	return e.middleware.Count()
}

func (e *Expresso) warnIfListening(msg string, args ...any) {
	if e.listening.Load() {
		e.logger.Warn(msg, args...)
	}
}
