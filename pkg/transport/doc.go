// Package transport defines the handler contract and the middleware
// pipeline that every expresso request flows through.
//
// # Handler Contract
//
// A [Handler] receives the parsed request, the request's single
// [api.Response] and a [Next] continuation. It either returns a response
// directly, which short-circuits the chain, or calls next exactly once to
// run the remainder of the chain and returns that result, optionally after
// post-processing it. Global middleware and route handlers share this one
// contract; built-in middleware has no special casing.
//
// # Chains
//
// A [Chain] is an ordered slice of handlers fixed at composition time.
// [Manager] keeps the application-wide middleware list and composes it
// with a route's own handlers via [Manager.BuildChain]. [Execute] runs a
// composed chain with index-based continuations: the Next handed to the
// handler at index i runs i+1..end on the same response value.
//
// Calling next more than once, or returning a nil response, is a contract
// violation. Both panic with a [*ContractError]; the connection handler
// and [Recovery] turn the panic into a 500 response.
//
// # Middleware
//
// Built-in middleware covers panic recovery, request ID assignment
// (X-Request-ID), structured logging via log/slog, CORS, per-client rate
// limiting (golang.org/x/time/rate) and OpenTelemetry spans.
package transport
