package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rhuss/expresso/pkg/api"
)

// HTTPStatusFromError maps an APIError type to the corresponding HTTP
// status code. Unknown types map to 500.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case api.ErrorTypePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case api.ErrorTypeHeaderTooLarge:
		return http.StatusRequestHeaderFieldsTooLarge
	case api.ErrorTypeTooManyRequests:
		return http.StatusTooManyRequests
	case api.ErrorTypeNotImplemented:
		return http.StatusNotImplemented
	case api.ErrorTypeVersionNotSupported:
		return http.StatusHTTPVersionNotSupported
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse fills res with a JSON error envelope and the given
// status code. Headers already present on res are kept.
func WriteErrorResponse(res *api.Response, apiErr *api.APIError, statusCode int) *api.Response {
	body, err := json.Marshal(api.ErrorResponse{Error: apiErr})
	if err != nil {
		// APIError holds only strings; this is unreachable in practice.
		body = []byte(`{"error":{"type":"server_error","message":"error encoding failed"}}`)
	}
	return res.Status(statusCode).
		SetHeader("Content-Type", "application/json").
		SendBytes(body)
}

// WriteAPIError fills res with an APIError response, deriving the HTTP
// status code from the error type.
func WriteAPIError(res *api.Response, apiErr *api.APIError) *api.Response {
	return WriteErrorResponse(res, apiErr, HTTPStatusFromError(apiErr))
}

// NotFound is the terminal handler used when no route matches. It never
// calls next.
func NotFound() Handler {
	return HandlerFunc(func(_ context.Context, req *api.Request, res *api.Response, _ Next) *api.Response {
		return WriteAPIError(res, api.NewNotFoundError(fmt.Sprintf("no route for %s %s", req.Method, req.Path)))
	})
}
