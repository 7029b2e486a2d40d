package transport

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rhuss/expresso/pkg/api"
	"github.com/rhuss/expresso/pkg/debug"
)

// Sentinel errors for handler contract violations.
var (
	// ErrNextCalledTwice is reported when a handler invokes its Next more than once.
	ErrNextCalledTwice = errors.New("next called more than once")

	// ErrNilResponse is reported when a handler returns a nil response.
	ErrNilResponse = errors.New("handler returned nil response")
)

// ContractError describes a handler that broke the Handler contract.
// It is raised as a panic value at the continuation boundary.
type ContractError struct {
	Index int
	Err   error
}

// Error implements the error interface.
func (e *ContractError) Error() string {
	return fmt.Sprintf("transport: handler %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying sentinel error.
func (e *ContractError) Unwrap() error {
	return e.Err
}

// Execute runs chain against req, threading res through every handler
// that is reached, and returns the response produced by the chain. An
// empty or exhausted chain returns res unchanged.
func Execute(ctx context.Context, chain Chain, req *api.Request, res *api.Response) *api.Response {
	return run(ctx, chain, 0, req, res)
}

func run(ctx context.Context, chain Chain, index int, req *api.Request, res *api.Response) *api.Response {
	if index >= len(chain) {
		return res
	}

	var called atomic.Bool
	next := func(nextCtx context.Context) *api.Response {
		if !called.CompareAndSwap(false, true) {
			panic(&ContractError{Index: index, Err: ErrNextCalledTwice})
		}
		if nextCtx == nil {
			nextCtx = ctx
		}
		return run(nextCtx, chain, index+1, req, res)
	}

	out := chain[index].Serve(ctx, req, res, next)
	if out == nil {
		panic(&ContractError{Index: index, Err: ErrNilResponse})
	}
	if !called.Load() && index < len(chain)-1 {
		debug.Log(debug.Pipeline, "chain short-circuited", "index", index, "len", len(chain), "status", out.StatusCode)
	}
	return out
}
