package api

import (
	"encoding/json"
	"net/http"
	"net/textproto"
)

// Response is the outbound response for a single request. Exactly one
// Response exists per request; handlers mutate it in place and return it
// (or the result of Next) so the builder methods can be chained:
//
//	return res.Status(201).Send("Created")
type Response struct {
	StatusCode int
	Header     textproto.MIMEHeader
	Body       []byte
}

// NewResponse returns a Response with status 200, no headers and an empty body.
func NewResponse() *Response {
	return &Response{
		StatusCode: http.StatusOK,
		Header:     make(textproto.MIMEHeader),
	}
}

// Status sets the status code.
func (r *Response) Status(code int) *Response {
	r.StatusCode = code
	return r
}

// SetHeader replaces any existing values of the named header.
func (r *Response) SetHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = make(textproto.MIMEHeader)
	}
	r.Header.Set(key, value)
	return r
}

// AddHeader appends a value to the named header.
func (r *Response) AddHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = make(textproto.MIMEHeader)
	}
	r.Header.Add(key, value)
	return r
}

// Send sets the body to the given string.
func (r *Response) Send(body string) *Response {
	r.Body = []byte(body)
	return r
}

// SendBytes sets the body to b.
func (r *Response) SendBytes(b []byte) *Response {
	r.Body = b
	return r
}

// Text sets status, a plain text content type and the body in one call.
func (r *Response) Text(code int, body string) *Response {
	return r.Status(code).
		SetHeader("Content-Type", "text/plain; charset=utf-8").
		Send(body)
}

// JSON encodes v as the body and sets Content-Type to application/json.
// The response is left untouched if encoding fails.
func (r *Response) JSON(v any) (*Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return r, err
	}
	r.SetHeader("Content-Type", "application/json")
	r.Body = data
	return r, nil
}

// StatusText returns the reason phrase for code, or "Unknown" when the
// code has no registered text.
func StatusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "Unknown"
}
