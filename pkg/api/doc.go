// Package api defines the core types shared by every layer of expresso.
//
// The package performs no I/O. It provides the parsed inbound [Request],
// the outbound [Response] builder that handlers thread through a chain,
// the supported [Method] set, and the [APIError] taxonomy used when the
// framework itself has to synthesize a response (malformed input, route
// misses, contract violations).
//
// Core types:
//   - [Method]: One of GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS
//   - [Request]: Immutable view of one parsed HTTP/1.1 request
//   - [Response]: Mutable status, headers and body, one per request
//   - [APIError]: Structured error with type, code, param, and message
package api
