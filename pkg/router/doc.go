// Package router holds the route registry: an exact-match table from
// (method, path) to the handler chain registered for it.
//
// Paths are compared byte for byte. There are no parameters, wildcards or
// prefix matches; "/users" and "/users/" are different routes.
package router
