package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchPrintHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/internal/cvs/42/print" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("X-Internal-Secret") != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	html, err := fetchPrintHTML(context.Background(), srv.URL, 42, "s3cret")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if html != "<html><body>ok</body></html>" {
		t.Fatalf("unexpected document %q", html)
	}
}

func TestFetchPrintHTML_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := fetchPrintHTML(context.Background(), srv.URL, 1, "wrong"); err == nil {
		t.Fatal("expected error on non-2xx status")
	}
}

func TestFetchPrintHTML_MissingSecret(t *testing.T) {
	if _, err := fetchPrintHTML(context.Background(), "http://localhost:1", 1, "  "); err == nil {
		t.Fatal("expected error when secret is blank")
	}
}
