package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"intermark-scraper/utils"
)

func newTestClient(maxAttempts int) *Client {
	policy := &utils.RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
	}
	return NewClient(policy, 5*time.Second, utils.NewLogger())
}

func TestClientRetriesTransientStatusThenSucceeds(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&hits, 1) <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	body, status, err := newTestClient(5).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if body != "<html>ok</html>" {
		t.Errorf("body = %q", body)
	}
	if got := atomic.LoadInt64(&hits); got != 4 {
		t.Errorf("server hit %d times, want 4 (3 retried 503s then 200)", got)
	}
}

func TestClientSurfacesFinalResponseAfterCeiling(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, status, err := newTestClient(2).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("an exhausted retry budget must not become an error: %v", err)
	}
	if status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want the final 503", status)
	}
	// Initial send plus two retries.
	if got := atomic.LoadInt64(&hits); got != 3 {
		t.Errorf("server hit %d times, want 3", got)
	}
}

func TestClientDoesNotRetryHardStatuses(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, status, err := newTestClient(5).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
	if got := atomic.LoadInt64(&hits); got != 1 {
		t.Errorf("404 must not be retried, server hit %d times", got)
	}
}
