package transport

import (
	"context"

	"github.com/rhuss/expresso/pkg/api"
)

// Next runs the remainder of the current chain and returns its response.
// A nil ctx continues with the caller's context.
type Next func(ctx context.Context) *api.Response

// Handler is a unit of request processing. See the package documentation
// for the short-circuit and pass-through rules.
type Handler interface {
	Serve(ctx context.Context, req *api.Request, res *api.Response, next Next) *api.Response
}

// HandlerFunc is an adapter that allows using an ordinary function as a Handler.
type HandlerFunc func(ctx context.Context, req *api.Request, res *api.Response, next Next) *api.Response

// Serve calls f(ctx, req, res, next).
func (f HandlerFunc) Serve(ctx context.Context, req *api.Request, res *api.Response, next Next) *api.Response {
	return f(ctx, req, res, next)
}

// Chain is an ordered sequence of handlers executed by Execute.
type Chain []Handler

// NewChain builds a Chain preserving argument order. It panics on a nil
// handler, which is a registration-time programmer error.
func NewChain(handlers ...Handler) Chain {
	c := make(Chain, 0, len(handlers))
	for _, h := range handlers {
		if h == nil {
			panic("transport: nil handler in chain")
		}
		c = append(c, h)
	}
	return c
}

// Funcs converts plain functions into a Chain.
func Funcs(fns ...HandlerFunc) Chain {
	handlers := make([]Handler, len(fns))
	for i, fn := range fns {
		if fn == nil {
			panic("transport: nil handler in chain")
		}
		handlers[i] = fn
	}
	return NewChain(handlers...)
}
