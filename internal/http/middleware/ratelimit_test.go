package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimitBurstThenRejects(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := RateLimit(1, 2)

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/chat/message", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		rec := httptest.NewRecorder()
		mw(handler).ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("request %d: expected status %d, got %d", i, want, rec.Code)
		}
		if want == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
			t.Fatal("expected Retry-After header on rejection")
		}
	}
}

func TestRateLimitBucketsPerClient(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := RateLimit(1, 1)

	for _, ip := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodPost, "/chat/message", nil)
		req.Header.Set("X-Real-Ip", ip)
		rec := httptest.NewRecorder()
		mw(handler).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("client %s should have its own bucket, got %d", ip, rec.Code)
		}
	}
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	if !rl.Allow("203.0.113.9") {
		t.Fatal("fresh bucket should allow")
	}
	if rl.Allow("203.0.113.9") {
		t.Fatal("drained bucket should reject")
	}

	// Backdate the bucket a full second instead of sleeping.
	rl.mu.Lock()
	rl.buckets["203.0.113.9"].last = time.Now().Add(-time.Second)
	rl.mu.Unlock()

	if !rl.Allow("203.0.113.9") {
		t.Fatal("bucket should refill after a second at rate 1")
	}
}
