package summarize

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgallion1/pdfsift/internal/fault"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-key", "test-model", 15000)
	c.SetBaseURL(srv.URL)
	return c
}

func TestSummarize_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if !strings.Contains(r.URL.Path, "test-model") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"A concise summary."}]}}]}`))
	})

	summary, err := c.Summarize(context.Background(), "long document text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "A concise summary." {
		t.Errorf("got %q", summary)
	}
	if c.Stats.Snapshot().Count != 1 {
		t.Errorf("expected 1 recorded latency sample")
	}
}

func TestSummarize_RateLimitedIsRetryable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Summarize(context.Background(), "text")
	var retryErr *RetryableError
	if !errors.As(err, &retryErr) {
		t.Fatalf("expected RetryableError, got %v", err)
	}
	if retryErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("got status %d", retryErr.StatusCode)
	}
}

func TestSummarize_WellFormedRefusalIsNotRetryable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"status":"INVALID_ARGUMENT","message":"bad request"}}`))
	})

	_, err := c.Summarize(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error")
	}
	var retryErr *RetryableError
	if errors.As(err, &retryErr) {
		t.Fatal("a well-formed error response must not be retryable")
	}
	if !fault.Is(err, fault.SummarizeUnavailable) {
		t.Errorf("expected SummarizeUnavailable, got %v", fault.KindOf(err))
	}
}

func TestSummarize_EmptyCandidates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := c.Summarize(context.Background(), "text")
	if !fault.Is(err, fault.SummarizeUnavailable) {
		t.Errorf("expected SummarizeUnavailable, got %v", err)
	}
}

func TestSummarize_HonorsContextDeadline(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Summarize(ctx, "text")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context error, got %v", err)
	}
}

func TestSummarize_PayloadBounded(t *testing.T) {
	var gotLen int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 1<<20)
		n, _ := r.Body.Read(buf)
		gotLen = n
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	})
	c.maxChars = 100

	long := strings.Repeat("x", 10000)
	if _, err := c.Summarize(context.Background(), long); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Prompt preamble plus at most 100 chars of document text.
	if gotLen > 1000 {
		t.Errorf("outbound payload not truncated: %d bytes", gotLen)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("hello", 3); got != "hel" {
		t.Errorf("got %q", got)
	}
	// Never split a multi-byte rune.
	if got := Truncate("héllo", 2); got != "h" {
		t.Errorf("got %q", got)
	}
}
