package api

import "net/textproto"

// Request is a parsed HTTP request. It is populated once by the connection
// handler and then treated as read-only by every handler in the chain.
type Request struct {
	Method Method
	// Path is the request target without query string or fragment.
	Path   string
	Proto  string
	Header textproto.MIMEHeader
	Body   []byte
	// RemoteAddr is the peer address of the connection, "host:port".
	RemoteAddr string
}

// HeaderValue returns the first value of the named header. Lookup is
// case-insensitive.
func (r *Request) HeaderValue(name string) string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get(name)
}

// HasBody reports whether the request carried a non-empty body.
func (r *Request) HasBody() bool {
	return len(r.Body) > 0
}
