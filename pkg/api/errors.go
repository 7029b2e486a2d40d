package api

import "fmt"

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeInvalidRequest      ErrorType = "invalid_request"
	ErrorTypeNotFound            ErrorType = "not_found"
	ErrorTypeMethodNotAllowed    ErrorType = "method_not_allowed"
	ErrorTypePayloadTooLarge     ErrorType = "payload_too_large"
	ErrorTypeHeaderTooLarge      ErrorType = "header_too_large"
	ErrorTypeTooManyRequests     ErrorType = "too_many_requests"
	ErrorTypeServerError         ErrorType = "server_error"
	ErrorTypeNotImplemented      ErrorType = "not_implemented"
	ErrorTypeVersionNotSupported ErrorType = "version_not_supported"
)

// APIError represents a structured API error with type, code, param, and message.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewInvalidRequestError creates an APIError for malformed request lines,
// headers, or framing.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewNotFoundError creates an APIError for requests that match no route.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewMethodNotAllowedError creates an APIError for method tokens outside
// the supported set.
func NewMethodNotAllowedError(method string) *APIError {
	return &APIError{
		Type:    ErrorTypeMethodNotAllowed,
		Param:   "method",
		Message: fmt.Sprintf("method %q is not supported", method),
	}
}

// NewPayloadTooLargeError creates an APIError for bodies over the configured limit.
func NewPayloadTooLargeError(limit int64) *APIError {
	return &APIError{
		Type:    ErrorTypePayloadTooLarge,
		Param:   "Content-Length",
		Message: fmt.Sprintf("request body exceeds %d bytes", limit),
	}
}

// NewHeaderTooLargeError creates an APIError for request heads over the configured limit.
func NewHeaderTooLargeError(limit int) *APIError {
	return &APIError{
		Type:    ErrorTypeHeaderTooLarge,
		Message: fmt.Sprintf("request header exceeds %d bytes", limit),
	}
}

// NewTooManyRequestsError creates an APIError for rate limiting.
func NewTooManyRequestsError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeTooManyRequests,
		Message: message,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}

// NewNotImplementedError creates an APIError for protocol features the
// server does not implement, such as chunked request bodies.
func NewNotImplementedError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotImplemented,
		Param:   param,
		Message: message,
	}
}

// NewVersionNotSupportedError creates an APIError for protocol versions
// other than HTTP/1.0 and HTTP/1.1.
func NewVersionNotSupportedError(proto string) *APIError {
	return &APIError{
		Type:    ErrorTypeVersionNotSupported,
		Param:   "version",
		Message: fmt.Sprintf("protocol %q is not supported", proto),
	}
}
