package transport

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/skygrid/zinc/internal/logging"
)

func drain(t *testing.T, body interface {
	Next(ctx context.Context) ([]byte, bool, error)
}) []byte {
	t.Helper()
	ctx := context.Background()
	var buf bytes.Buffer
	for {
		chunk, ok, err := body.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		buf.Write(chunk)
		if !ok {
			break
		}
	}
	return buf.Bytes()
}

func TestHTTPTransportGetReturnsBodyAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/demo/eval" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "bearer authtoken=tok" {
			t.Errorf("Authorization header = %q", got)
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ver:\"3.0\"\nid\n@a\n"))
	}))
	defer srv.Close()

	var logBuf bytes.Buffer
	logger := logging.NewPlain(&logBuf, logging.LevelWarn)
	tr := New(srv.URL, 64, logger)

	status, headers, body, err := tr.Get(context.Background(), "/api/demo/eval", nil, map[string]string{"Authorization": "bearer authtoken=tok"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}
	if headers.Get("Content-Type") != "text/plain" {
		t.Errorf("Content-Type header = %q", headers.Get("Content-Type"))
	}
	got := drain(t, body)
	if string(got) != "ver:\"3.0\"\nid\n@a\n" {
		t.Errorf("body = %q", got)
	}
	if logBuf.Len() != 0 {
		t.Errorf("expected no warning for matching content type, got %q", logBuf.String())
	}
}

func TestHTTPTransportWarnsOnContentTypeMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ver:\"3.0\"\nid\n@a\n"))
	}))
	defer srv.Close()

	var logBuf bytes.Buffer
	logger := logging.NewPlain(&logBuf, logging.LevelWarn)
	tr := New(srv.URL, 64, logger)

	_, _, body, err := tr.Get(context.Background(), "/api/demo/eval", nil, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	drain(t, body)

	if !strings.Contains(logBuf.String(), "declared Content-Type") {
		t.Fatalf("expected a content-type mismatch warning, got %q", logBuf.String())
	}
}

func TestHTTPTransportDefaultsChunkSize(t *testing.T) {
	tr := New("http://example.invalid", 0, nil)
	if tr.ChunkSize != 4096 {
		t.Errorf("ChunkSize = %d, want 4096 default", tr.ChunkSize)
	}
}

func TestSniffMismatch(t *testing.T) {
	if got := sniffMismatch("", []byte("whatever")); got != "" {
		t.Errorf("empty declared type should never mismatch, got %q", got)
	}
	if got := sniffMismatch("text/plain", nil); got != "" {
		t.Errorf("empty body should never mismatch, got %q", got)
	}
	if got := sniffMismatch("application/json", []byte("ver:\"3.0\"\nid\n@a\n")); got == "" {
		t.Error("expected a mismatch between application/json and grid-language text")
	}
	if got := sniffMismatch("text/plain", []byte("ver:\"3.0\"\nid\n@a\n")); got != "" {
		t.Errorf("text/plain should match plain-text sniffing, got %q", got)
	}
}
