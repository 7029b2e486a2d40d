package http

import (
	"io"
	gohttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAdapterServesDispatcher(t *testing.T) {
	srv := httptest.NewServer(NewAdapter(testDispatcher(), Limits{}))
	defer srv.Close()

	resp, err := gohttp.Get(srv.URL + "/hello")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != gohttp.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if string(body) != "Hello, World!" {
		t.Errorf("body = %q, want %q", body, "Hello, World!")
	}
}

func TestAdapterStatusMapping(t *testing.T) {
	srv := httptest.NewServer(NewAdapter(testDispatcher(), Limits{MaxBodySize: 4}))
	defer srv.Close()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"created", gohttp.MethodPost, "/resource", "", gohttp.StatusCreated},
		{"miss", gohttp.MethodDelete, "/missing", "", gohttp.StatusNotFound},
		{"unsupported method", "BREW", "/pot", "", gohttp.StatusMethodNotAllowed},
		{"body over limit", gohttp.MethodPut, "/echo", "hello", gohttp.StatusRequestEntityTooLarge},
		{"nil response", gohttp.MethodGet, "/nil", "", gohttp.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := gohttp.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("NewRequest error: %v", err)
			}
			resp, err := gohttp.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request error: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestAdapterHead(t *testing.T) {
	srv := httptest.NewServer(NewAdapter(testDispatcher(), Limits{}))
	defer srv.Close()

	resp, err := gohttp.Head(srv.URL + "/hello")
	if err != nil {
		t.Fatalf("HEAD error: %v", err)
	}
	defer resp.Body.Close()

	if resp.ContentLength != 13 {
		t.Errorf("ContentLength = %d, want 13", resp.ContentLength)
	}
}
