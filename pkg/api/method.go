package api

// Method is an HTTP request method supported by the framework.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

var methods = []Method{
	MethodGet,
	MethodPost,
	MethodPut,
	MethodDelete,
	MethodPatch,
	MethodHead,
	MethodOptions,
}

// Methods returns the supported methods in canonical order.
func Methods() []Method {
	out := make([]Method, len(methods))
	copy(out, methods)
	return out
}

// ParseMethod maps a request-line token to a Method. Method tokens are
// case-sensitive, so "get" is not a supported method.
func ParseMethod(token string) (Method, bool) {
	switch m := Method(token); m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch, MethodHead, MethodOptions:
		return m, true
	}
	return "", false
}

// String returns the method token.
func (m Method) String() string {
	return string(m)
}
