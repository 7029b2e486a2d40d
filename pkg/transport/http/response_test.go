package http

import (
	"bufio"
	"bytes"
	"io"
	gohttp "net/http"
	"strings"
	"testing"

	"github.com/rhuss/expresso/pkg/api"
)

func parseWire(t *testing.T, wire []byte, method string) (*gohttp.Response, string) {
	t.Helper()
	resp, err := gohttp.ReadResponse(bufio.NewReader(bytes.NewReader(wire)), &gohttp.Request{Method: method})
	if err != nil {
		t.Fatalf("ReadResponse error: %v\n%s", err, wire)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp, string(body)
}

func TestAppendResponseBasic(t *testing.T) {
	req := &api.Request{Method: api.MethodGet, Path: "/hello"}
	res := api.NewResponse().Text(200, "Hello, World!")

	wire := AppendResponse(nil, req, res)

	if !bytes.HasPrefix(wire, []byte("HTTP/1.1 200 OK\r\n")) {
		t.Errorf("status line wrong:\n%s", wire)
	}
	for _, want := range []string{"Content-Length: 13\r\n", "Connection: close\r\n", "Date: "} {
		if !bytes.Contains(wire, []byte(want)) {
			t.Errorf("wire missing %q:\n%s", want, wire)
		}
	}

	resp, body := parseWire(t, wire, "GET")
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if body != "Hello, World!" {
		t.Errorf("body = %q, want %q", body, "Hello, World!")
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestAppendResponseHeadOmitsBody(t *testing.T) {
	req := &api.Request{Method: api.MethodHead, Path: "/hello"}
	res := api.NewResponse().Send("Hello, World!")

	wire := AppendResponse(nil, req, res)

	if !bytes.HasSuffix(wire, []byte("\r\n\r\n")) {
		t.Errorf("HEAD response should end after headers:\n%s", wire)
	}
	if !bytes.Contains(wire, []byte("Content-Length: 13\r\n")) {
		t.Errorf("HEAD response should keep Content-Length:\n%s", wire)
	}
}

func TestAppendResponseNoBodyStatuses(t *testing.T) {
	for _, status := range []int{100, 204, 304} {
		res := api.NewResponse().Status(status).Send("ignored")
		wire := string(AppendResponse(nil, nil, res))

		if strings.Contains(wire, "Content-Length") {
			t.Errorf("status %d should not carry Content-Length:\n%s", status, wire)
		}
		if strings.Contains(wire, "ignored") {
			t.Errorf("status %d should not carry a body:\n%s", status, wire)
		}
	}
}

func TestAppendResponseHeaders(t *testing.T) {
	res := api.NewResponse().
		SetHeader("X-B", "2").
		SetHeader("X-A", "1").
		SetHeader("Content-Length", "999").
		SetHeader("Connection", "keep-alive").
		SetHeader("X-Evil", "bad\r\nInjected: yes").
		SetHeader("Date", "Mon, 01 Jan 2024 00:00:00 GMT").
		Send("ok")

	wire := string(AppendResponse(nil, nil, res))

	if strings.Index(wire, "X-A: 1") > strings.Index(wire, "X-B: 2") {
		t.Errorf("headers not sorted:\n%s", wire)
	}
	if strings.Contains(wire, "999") || strings.Contains(wire, "keep-alive") {
		t.Errorf("framing headers from handler should be ignored:\n%s", wire)
	}
	if strings.Contains(wire, "Injected") {
		t.Errorf("invalid header value should be dropped:\n%s", wire)
	}
	if strings.Count(wire, "Date: ") != 1 || !strings.Contains(wire, "Date: Mon, 01 Jan 2024") {
		t.Errorf("handler Date should be used exactly once:\n%s", wire)
	}
}

func TestAppendResponseStatusText(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{201, "HTTP/1.1 201 Created\r\n"},
		{404, "HTTP/1.1 404 Not Found\r\n"},
		{599, "HTTP/1.1 599 Unknown\r\n"},
		{42, "HTTP/1.1 500 Internal Server Error\r\n"},
	}
	for _, tt := range tests {
		wire := AppendResponse(nil, nil, api.NewResponse().Status(tt.status))
		if !bytes.HasPrefix(wire, []byte(tt.want)) {
			t.Errorf("status %d: got %q, want prefix %q", tt.status, wire, tt.want)
		}
	}
}

type countingWriter struct {
	bytes.Buffer
	writes int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes++
	return w.Buffer.Write(p)
}

func TestWriteResponseSingleWrite(t *testing.T) {
	var w countingWriter
	if err := WriteResponse(&w, nil, api.NewResponse().Send(strings.Repeat("x", 10000))); err != nil {
		t.Fatalf("WriteResponse error: %v", err)
	}
	if w.writes != 1 {
		t.Errorf("writes = %d, want 1", w.writes)
	}
}
