package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"hybridrag/internal/domain"
)

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("document body"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(0)
	body, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "document body" {
		t.Errorf("body = %q", body)
	}
}

func TestFetchNon2xxReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(0)
	_, err := f.Fetch(context.Background(), srv.URL)

	var fetchErr *domain.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fetchErr.Status != http.StatusNotFound {
		t.Errorf("status = %d", fetchErr.Status)
	}
	if fetchErr.URL != srv.URL {
		t.Errorf("url = %q", fetchErr.URL)
	}
}

func TestFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	f := NewHTTPFetcher(0)
	_, err := f.Fetch(context.Background(), srv.URL)

	var fetchErr *domain.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fetchErr.Status != 0 {
		t.Errorf("transport failure should carry no status, got %d", fetchErr.Status)
	}
	if fetchErr.Unwrap() == nil {
		t.Error("transport failure should wrap the underlying error")
	}
}
