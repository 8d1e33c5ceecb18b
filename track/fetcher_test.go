package track

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const validBody = `{"aircraft": [{"hex": "abc123", "lat": 40.0, "lon": -74.0}]}`

func TestFetchPayload_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q, want application/json", r.Header.Get("Accept"))
		}
		_, _ = w.Write([]byte(validBody))
	}))
	defer server.Close()

	payload, err := FetchPayload(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchPayload failed: %v", err)
	}
	if len(payload.Aircraft) != 1 || payload.Aircraft[0].HexID != "abc123" {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestFetchPayload_RetriesTransientFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(validBody))
	}))
	defer server.Close()

	payload, err := FetchPayload(context.Background(), server.URL,
		WithBaseBackoff(time.Millisecond))
	if err != nil {
		t.Fatalf("FetchPayload failed: %v", err)
	}
	if len(payload.Aircraft) != 1 {
		t.Errorf("len(Aircraft) = %d, want 1", len(payload.Aircraft))
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d, want 2 (one failure, one retry)", got)
	}
}

func TestFetchPayload_ExhaustsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := FetchPayload(context.Background(), server.URL,
		WithMaxRetries(3), WithBaseBackoff(time.Millisecond))
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestFetchPayload_ParseErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"aircraft": [`))
	}))
	defer server.Close()

	_, err := FetchPayload(context.Background(), server.URL,
		WithMaxRetries(3), WithBaseBackoff(time.Millisecond))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1 (parse errors are not transient)", got)
	}
}

func TestFetchPayload_EmptyURL(t *testing.T) {
	if _, err := FetchPayload(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestFetchPayload_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FetchPayload(ctx, server.URL,
		WithMaxRetries(3), WithBaseBackoff(time.Hour))
	if err == nil {
		t.Fatal("expected context error")
	}
}
