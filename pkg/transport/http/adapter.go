package http

import (
	"errors"
	"io"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/rhuss/expresso/pkg/api"
	"github.com/rhuss/expresso/pkg/transport"
)

// Adapter exposes a Dispatcher as a net/http Handler, so an application can
// be mounted on an http.Server or exercised with httptest. Requests are
// converted with the same method and size rules the raw server applies.
type Adapter struct {
	dispatcher Dispatcher
	limits     Limits
}

// NewAdapter creates an adapter for d. Zero limits use DefaultLimits.
func NewAdapter(d Dispatcher, limits Limits) *Adapter {
	if limits.MaxHeaderBytes <= 0 {
		limits.MaxHeaderBytes = DefaultLimits().MaxHeaderBytes
	}
	return &Adapter{dispatcher: d, limits: limits}
}

// ServeHTTP implements http.Handler.
func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, apiErr := a.convert(w, r)
	if apiErr != nil {
		writeNetHTTP(w, r, (&RequestError{Err: apiErr}).Response())
		return
	}

	res := a.dispatcher.Dispatch(r.Context(), req)
	if res == nil {
		res = transport.WriteAPIError(api.NewResponse(), api.NewServerError("internal server error"))
	}
	writeNetHTTP(w, r, res)
}

func (a *Adapter) convert(w http.ResponseWriter, r *http.Request) (*api.Request, *api.APIError) {
	method, ok := api.ParseMethod(r.Method)
	if !ok {
		return nil, api.NewMethodNotAllowedError(r.Method)
	}

	var body []byte
	if r.Body != nil {
		reader := io.Reader(r.Body)
		if a.limits.MaxBodySize > 0 {
			reader = http.MaxBytesReader(w, r.Body, a.limits.MaxBodySize)
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return nil, api.NewPayloadTooLargeError(a.limits.MaxBodySize)
			}
			return nil, api.NewInvalidRequestError("body", "failed to read request body")
		}
		body = data
	}

	return &api.Request{
		Method:     method,
		Path:       r.URL.EscapedPath(),
		Proto:      r.Proto,
		Header:     textproto.MIMEHeader(r.Header.Clone()),
		Body:       body,
		RemoteAddr: r.RemoteAddr,
	}, nil
}

func writeNetHTTP(w http.ResponseWriter, r *http.Request, res *api.Response) {
	status := res.StatusCode
	if status < 100 || status > 999 {
		status = http.StatusInternalServerError
	}

	h := w.Header()
	for name, values := range res.Header {
		if framingHeaders[textproto.CanonicalMIMEHeaderKey(name)] {
			continue
		}
		for _, v := range values {
			h.Add(name, v)
		}
	}
	if bodyAllowed(status) {
		h.Set("Content-Length", strconv.Itoa(len(res.Body)))
	}
	w.WriteHeader(status)
	if r.Method != http.MethodHead && bodyAllowed(status) {
		_, _ = w.Write(res.Body)
	}
}
