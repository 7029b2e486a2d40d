package http

import (
	"bytes"
	"io"
	"net/http"
	"net/textproto"
	"slices"
	"strconv"
	"time"

	"golang.org/x/net/http/httpguts"

	"github.com/rhuss/expresso/pkg/api"
	"github.com/rhuss/expresso/pkg/debug"
)

// Headers the serializer owns. Values set by handlers are ignored.
var framingHeaders = map[string]bool{
	"Content-Length":    true,
	"Connection":        true,
	"Transfer-Encoding": true,
}

// bodyAllowed reports whether a response with the given status may carry a
// body (RFC 9110 section 6.4.1).
func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status <= 199:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}

// AppendResponse serializes res as an HTTP/1.1 response into dst.
//
// The output always closes the connection, carries a Date header unless
// the handler set one, and has user headers in sorted order. Responses to
// HEAD keep Content-Length but omit the body. req may be nil when the
// request could not be parsed.
func AppendResponse(dst []byte, req *api.Request, res *api.Response) []byte {
	status := res.StatusCode
	if status < 100 || status > 999 {
		debug.Log(debug.Server, "invalid status code replaced", "status", status)
		status = http.StatusInternalServerError
	}

	buf := bytes.NewBuffer(dst)
	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(strconv.Itoa(status))
	buf.WriteByte(' ')
	buf.WriteString(api.StatusText(status))
	buf.WriteString("\r\n")

	withBody := bodyAllowed(status)
	if withBody {
		buf.WriteString("Content-Length: ")
		buf.WriteString(strconv.Itoa(len(res.Body)))
		buf.WriteString("\r\n")
	}
	buf.WriteString("Connection: close\r\n")
	if res.Header.Get("Date") == "" {
		buf.WriteString("Date: ")
		buf.WriteString(time.Now().UTC().Format(http.TimeFormat))
		buf.WriteString("\r\n")
	}

	names := make([]string, 0, len(res.Header))
	for name := range res.Header {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		key := textproto.CanonicalMIMEHeaderKey(name)
		if framingHeaders[key] {
			continue
		}
		if !httpguts.ValidHeaderFieldName(name) {
			debug.Log(debug.Server, "invalid response header name dropped", "name", name)
			continue
		}
		for _, v := range res.Header[name] {
			if !httpguts.ValidHeaderFieldValue(v) {
				debug.Log(debug.Server, "invalid response header value dropped", "name", name)
				continue
			}
			buf.WriteString(key)
			buf.WriteString(": ")
			buf.WriteString(v)
			buf.WriteString("\r\n")
		}
	}
	buf.WriteString("\r\n")

	if withBody && (req == nil || req.Method != api.MethodHead) {
		buf.Write(res.Body)
	}
	return buf.Bytes()
}

// WriteResponse serializes res and writes it to w with a single Write.
func WriteResponse(w io.Writer, req *api.Request, res *api.Response) error {
	_, err := w.Write(AppendResponse(nil, req, res))
	return err
}
