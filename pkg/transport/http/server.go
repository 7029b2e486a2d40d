package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rhuss/expresso/pkg/api"
	"github.com/rhuss/expresso/pkg/debug"
	"github.com/rhuss/expresso/pkg/observability"
	"github.com/rhuss/expresso/pkg/transport"
)

// Bounds for draining a rejected request before closing.
const (
	drainTimeout  = 500 * time.Millisecond
	maxDrainBytes = 256 << 10
)

// ErrServerClosed is returned by the accept loop after Shutdown.
var ErrServerClosed = errors.New("http: server closed")

// Dispatcher turns a parsed request into a response. The application
// implements it by looking up the route and executing the chain.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *api.Request) *api.Response
}

// DispatcherFunc is an adapter that allows using an ordinary function as a Dispatcher.
type DispatcherFunc func(ctx context.Context, req *api.Request) *api.Response

// Dispatch calls f(ctx, req).
func (f DispatcherFunc) Dispatch(ctx context.Context, req *api.Request) *api.Response {
	return f(ctx, req)
}

// Server accepts TCP connections and serves one request per connection,
// then closes it.
type Server struct {
	dispatcher Dispatcher
	config     ServerConfig
	logger     *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	loopDone chan struct{}

	closed   atomic.Bool
	connSeq  atomic.Uint64
	conns    sync.WaitGroup
	inflight *transport.InFlightRegistry
}

// ServerConfig holds configuration for the connection handler.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxHeaderBytes  int
	MaxBodySize     int64
	ShutdownTimeout time.Duration
	ReusePort       bool
	Logger          *slog.Logger
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	limits := DefaultLimits()
	return ServerConfig{
		Addr:            ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		MaxHeaderBytes:  limits.MaxHeaderBytes,
		MaxBodySize:     limits.MaxBodySize,
		ShutdownTimeout: 30 * time.Second,
		Logger:          slog.Default(),
	}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) ServerOption {
	return func(s *Server) { s.config.Addr = addr }
}

// WithReadTimeout bounds the time spent reading a request.
func WithReadTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.config.ReadTimeout = d }
}

// WithWriteTimeout bounds the time spent writing a response.
func WithWriteTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.config.WriteTimeout = d }
}

// WithMaxHeaderBytes sets the maximum size of the request line and headers.
func WithMaxHeaderBytes(n int) ServerOption {
	return func(s *Server) { s.config.MaxHeaderBytes = n }
}

// WithMaxBodySize sets the maximum request body size.
func WithMaxBodySize(n int64) ServerOption {
	return func(s *Server) { s.config.MaxBodySize = n }
}

// WithShutdownTimeout sets the graceful shutdown deadline.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.config.ShutdownTimeout = d }
}

// WithReusePort sets SO_REUSEPORT on the listener.
func WithReusePort(enabled bool) ServerOption {
	return func(s *Server) { s.config.ReusePort = enabled }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.config.Logger = l; s.logger = l }
}

// NewServer creates a connection handler that passes every parsed request
// to d.
func NewServer(d Dispatcher, opts ...ServerOption) *Server {
	s := &Server{
		dispatcher: d,
		config:     DefaultServerConfig(),
		logger:     slog.Default(),
		inflight:   transport.NewInFlightRegistry(),
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Addr returns the bound listener address once serving, and the configured
// address before that.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// ListenAndServe starts the server and blocks until a shutdown signal
// (SIGINT or SIGTERM) is received. It then gracefully shuts down,
// waiting for in-flight requests to complete within the configured timeout.
func (s *Server) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.ListenAndServeContext(ctx)
}

// ListenAndServeContext binds the configured address and serves until ctx
// is cancelled. Bind errors are returned immediately.
func (s *Server) ListenAndServeContext(ctx context.Context) error {
	ln, err := s.Listen(ctx)
	if err != nil {
		return err
	}
	return s.ServeOn(ctx, ln)
}

// Listen binds the configured address without serving. Callers that need
// to act between bind and serve pass the listener to ServeOn.
func (s *Server) Listen(ctx context.Context) (net.Listener, error) {
	ln, err := Listen(ctx, s.config.Addr, s.config.ReusePort)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	return ln, nil
}

// ServeOn serves connections from ln until ctx is cancelled, then shuts
// down gracefully. The listener is closed on return.
func (s *Server) ServeOn(ctx context.Context, ln net.Listener) error {
	loopDone := make(chan struct{})
	s.mu.Lock()
	s.listener = ln
	s.loopDone = loopDone
	s.mu.Unlock()

	s.logger.Info("server starting", slog.String("addr", ln.Addr().String()))

	// Connections outlive ctx so that graceful shutdown can let them finish.
	base := context.WithoutCancel(ctx)

	errCh := make(chan error, 1)
	go func() {
		defer close(loopDone)
		errCh <- s.acceptLoop(base, ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	return s.shutdown()
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	var tempDelay time.Duration

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay = min(2*tempDelay, time.Second)
			}
			s.logger.Warn("accept error, retrying",
				slog.String("error", err.Error()),
				slog.Duration("delay", tempDelay),
			)
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0

		id := "conn_" + strconv.FormatUint(s.connSeq.Add(1), 10)
		s.conns.Add(1)
		go s.serveConn(ctx, conn, id)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn, id string) {
	defer s.conns.Done()
	defer conn.Close()

	observability.ConnectionsActive.Inc()
	defer observability.ConnectionsActive.Dec()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.inflight.Register(id, cancel)
	defer s.inflight.Remove(id)

	remote := conn.RemoteAddr().String()
	debug.Log(debug.Server, "connection accepted", "conn", id, "remote", remote)

	// A panic anywhere in the exchange closes this connection only.
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("connection panicked",
				slog.String("conn", id),
				slog.String("remote_addr", remote),
				slog.Any("panic", r),
			)
		}
	}()

	if s.config.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	}

	req, err := ReadRequest(conn, Limits{
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		MaxBodySize:    s.config.MaxBodySize,
	})

	var res *api.Response
	if err != nil {
		var reqErr *RequestError
		if !errors.As(err, &reqErr) {
			if !errors.Is(err, io.EOF) {
				s.logger.Warn("read failed, dropping connection",
					slog.String("conn", id),
					slog.String("remote_addr", remote),
					slog.String("error", err.Error()),
				)
			}
			return
		}
		observability.ParseErrorsTotal.WithLabelValues(string(reqErr.Err.Type)).Inc()
		debug.Log(debug.Server, "request rejected", "conn", id, "type", reqErr.Err.Type, "error", reqErr.Err.Message)
		res = reqErr.Response()
	} else {
		req.RemoteAddr = remote
		if debug.TraceIsEnabled(debug.Server) {
			debug.Trace(debug.Server, "request head",
				"conn", id,
				"request_line", debug.Truncate(req.Method.String()+" "+req.Path+" "+req.Proto, 256),
				"headers", len(req.Header),
				"body_bytes", len(req.Body),
			)
		}
		res = s.dispatch(ctx, id, req)
	}

	// A cancelled exchange writes nothing rather than a partial response.
	if ctx.Err() != nil {
		debug.Log(debug.Server, "exchange cancelled, dropping response", "conn", id)
		return
	}

	if s.config.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	}
	if err := WriteResponse(conn, req, res); err != nil {
		s.logger.Warn("write failed",
			slog.String("conn", id),
			slog.String("remote_addr", remote),
			slog.String("error", err.Error()),
		)
		return
	}
	if req == nil {
		closeWriteAndDrain(conn)
	}
}

// closeWriteAndDrain half-closes conn and discards what the client is still
// sending. Closing with unread input makes the kernel send RST, which can
// destroy the error response before the client reads it.
func closeWriteAndDrain(conn net.Conn) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tc.CloseWrite()
	_ = tc.SetReadDeadline(time.Now().Add(drainTimeout))
	_, _ = io.Copy(io.Discard, io.LimitReader(tc, maxDrainBytes))
}

// dispatch runs the dispatcher, converting panics and nil results into 500
// responses so one faulty handler cannot take down the accept loop.
func (s *Server) dispatch(ctx context.Context, id string, req *api.Request) (res *api.Response) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panicked",
				slog.String("conn", id),
				slog.String("method", req.Method.String()),
				slog.String("path", req.Path),
				slog.Any("panic", r),
			)
			res = transport.WriteAPIError(api.NewResponse(), api.NewServerError("internal server error"))
		}
	}()

	res = s.dispatcher.Dispatch(ctx, req)
	if res == nil {
		s.logger.Error("dispatcher returned nil response",
			slog.String("method", req.Method.String()),
			slog.String("path", req.Path),
		)
		res = transport.WriteAPIError(api.NewResponse(), api.NewServerError("internal server error"))
	}
	return res
}

func (s *Server) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down gracefully", slog.Duration("timeout", s.config.ShutdownTimeout))
	if err := s.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("shutdown error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// Shutdown stops accepting connections and waits for in-flight exchanges
// to finish. If ctx expires first, the remaining exchanges are cancelled
// and ctx's error is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closed.Store(true)

	s.mu.Lock()
	ln, loopDone := s.listener, s.loopDone
	s.mu.Unlock()
	if ln != nil {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Warn("closing listener", slog.String("error", err.Error()))
		}
	}

	// No connection is added to the wait group once the accept loop exits.
	if loopDone != nil {
		select {
		case <-loopDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		n := s.inflight.CancelAll()
		s.logger.Warn("shutdown deadline exceeded, cancelled in-flight connections", slog.Int("count", n))
		return ctx.Err()
	}
}
