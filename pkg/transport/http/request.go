package http

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/rhuss/expresso/pkg/api"
	"github.com/rhuss/expresso/pkg/transport"
)

// readBufferSize is the size of the per-connection read buffer. The header
// read limit is padded by this amount because bufio reads ahead.
const readBufferSize = 4096

// Limits bounds the size of a single request.
type Limits struct {
	// MaxHeaderBytes bounds the request line plus header block (431).
	MaxHeaderBytes int
	// MaxBodySize bounds Content-Length (413). <= 0 means unlimited.
	MaxBodySize int64
}

// DefaultLimits returns 1 MB of headers and 10 MB of body.
func DefaultLimits() Limits {
	return Limits{
		MaxHeaderBytes: 1 << 20,
		MaxBodySize:    10 << 20,
	}
}

// RequestError is returned by ReadRequest when the input is not a request
// the server can handle. It carries the client-visible error.
type RequestError struct {
	Err *api.APIError
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return "parse request: " + e.Err.Message
}

// Unwrap returns the underlying APIError.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Response renders the error as the response sent before closing the
// connection. Method errors carry an Allow header listing the supported
// methods.
func (e *RequestError) Response() *api.Response {
	res := transport.WriteAPIError(api.NewResponse(), e.Err)
	if e.Err.Type == api.ErrorTypeMethodNotAllowed {
		res.SetHeader("Allow", allowHeader())
	}
	return res
}

func allowHeader() string {
	methods := api.Methods()
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = m.String()
	}
	return strings.Join(names, ", ")
}

func badRequest(param, format string, args ...any) error {
	return &RequestError{Err: api.NewInvalidRequestError(param, fmt.Sprintf(format, args...))}
}

// ReadRequest reads and frames one HTTP/1.x request from r.
//
// The returned error is a *RequestError for input the client got wrong,
// io.EOF when the peer closed before sending anything, and any other error
// for transport failures such as read timeouts.
func ReadRequest(r io.Reader, limits Limits) (*api.Request, error) {
	if limits.MaxHeaderBytes <= 0 {
		limits.MaxHeaderBytes = DefaultLimits().MaxHeaderBytes
	}

	headerBudget := int64(limits.MaxHeaderBytes) + readBufferSize
	lr := &io.LimitedReader{R: r, N: headerBudget}
	br := bufio.NewReaderSize(lr, readBufferSize)
	tp := textproto.NewReader(br)

	headerTooLarge := func() bool {
		consumed := headerBudget - lr.N - int64(br.Buffered())
		return lr.N <= 0 || consumed > int64(limits.MaxHeaderBytes)
	}

	line, err := tp.ReadLine()
	if err == nil && line == "" {
		// RFC 9112 section 2.2: ignore an empty line before the request line.
		line, err = tp.ReadLine()
	}
	if err != nil {
		switch {
		case errors.Is(err, io.EOF) && line == "":
			if lr.N <= 0 {
				return nil, &RequestError{Err: api.NewHeaderTooLargeError(limits.MaxHeaderBytes)}
			}
			return nil, io.EOF
		case isTransportError(err):
			return nil, err
		case headerTooLarge():
			return nil, &RequestError{Err: api.NewHeaderTooLargeError(limits.MaxHeaderBytes)}
		}
		return nil, badRequest("request_line", "malformed request line")
	}

	req, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}

	header, err := tp.ReadMIMEHeader()
	if err != nil {
		if isTransportError(err) {
			return nil, err
		}
		if headerTooLarge() {
			return nil, &RequestError{Err: api.NewHeaderTooLargeError(limits.MaxHeaderBytes)}
		}
		return nil, badRequest("header", "malformed header: %v", err)
	}
	if headerTooLarge() {
		return nil, &RequestError{Err: api.NewHeaderTooLargeError(limits.MaxHeaderBytes)}
	}
	for name, values := range header {
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, badRequest("header", "invalid header field name %q", name)
		}
		for _, v := range values {
			if !httpguts.ValidHeaderFieldValue(v) {
				return nil, badRequest(name, "invalid header field value")
			}
		}
	}
	req.Header = header

	if te := header.Values("Transfer-Encoding"); len(te) > 0 {
		if len(te) != 1 || !strings.EqualFold(textproto.TrimString(te[0]), "identity") {
			return nil, &RequestError{Err: api.NewNotImplementedError("Transfer-Encoding", "transfer encoding "+strings.Join(te, ", ")+" is not supported")}
		}
	}

	length, err := contentLength(header)
	if err != nil {
		return nil, err
	}
	if limits.MaxBodySize > 0 && length > limits.MaxBodySize {
		return nil, &RequestError{Err: api.NewPayloadTooLargeError(limits.MaxBodySize)}
	}

	if length > 0 {
		lr.N = length
		body, err := readBody(br, length)
		if err != nil {
			if isTransportError(err) {
				return nil, err
			}
			return nil, badRequest("body", "body shorter than Content-Length %d", length)
		}
		req.Body = body
	}

	return req, nil
}

// readBody reads exactly length bytes. The buffer grows with the bytes
// that actually arrive, so a declared but unsent body costs nothing.
func readBody(r io.Reader, length int64) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(int(min(length, readBufferSize)))
	n, err := buf.ReadFrom(io.LimitReader(r, length))
	if err != nil {
		return nil, err
	}
	if n < length {
		return nil, io.ErrUnexpectedEOF
	}
	return buf.Bytes(), nil
}

// parseRequestLine parses "METHOD SP request-target SP HTTP-version".
func parseRequestLine(line string) (*api.Request, error) {
	method, rest, ok1 := strings.Cut(line, " ")
	target, proto, ok2 := strings.Cut(rest, " ")
	if !ok1 || !ok2 || method == "" || target == "" || strings.Contains(proto, " ") {
		return nil, badRequest("request_line", "malformed request line %q", line)
	}

	if strings.IndexFunc(method, isNotToken) >= 0 {
		return nil, badRequest("method", "invalid method token %q", method)
	}

	major, minor, ok := http.ParseHTTPVersion(proto)
	if !ok {
		return nil, badRequest("version", "malformed HTTP version %q", proto)
	}
	if major != 1 || minor > 1 {
		return nil, &RequestError{Err: api.NewVersionNotSupportedError(proto)}
	}

	m, ok := api.ParseMethod(method)
	if !ok {
		return nil, &RequestError{Err: api.NewMethodNotAllowedError(method)}
	}

	if !strings.HasPrefix(target, "/") {
		return nil, badRequest("path", "request target %q must start with /", target)
	}
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		target = target[:i]
	}

	return &api.Request{
		Method: m,
		Path:   target,
		Proto:  proto,
	}, nil
}

func isNotToken(r rune) bool {
	return !httpguts.IsTokenRune(r)
}

// contentLength validates the Content-Length header. Repeated headers must
// agree, otherwise the request is rejected to prevent smuggling.
func contentLength(header textproto.MIMEHeader) (int64, error) {
	values := header.Values("Content-Length")
	if len(values) == 0 {
		return 0, nil
	}

	first := textproto.TrimString(values[0])
	for _, v := range values[1:] {
		if textproto.TrimString(v) != first {
			return 0, badRequest("Content-Length", "message cannot contain multiple Content-Length headers; got %q", values)
		}
	}
	if first == "" {
		return 0, badRequest("Content-Length", "empty Content-Length")
	}

	n, err := strconv.ParseUint(first, 10, 63)
	if err != nil {
		return 0, badRequest("Content-Length", "invalid Content-Length %q", first)
	}
	if len(values) > 1 {
		header.Del("Content-Length")
		header.Add("Content-Length", first)
	}
	return int64(n), nil
}

// isTransportError reports whether err came from the connection rather
// than from the bytes the client sent.
func isTransportError(err error) bool {
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) {
		return true
	}
	var tpErr textproto.ProtocolError
	if errors.As(err, &tpErr) {
		return false
	}
	return !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF)
}
