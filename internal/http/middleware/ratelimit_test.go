package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }

	if !rl.Allow("1.1.1.1") || !rl.Allow("1.1.1.1") {
		t.Fatalf("expected burst of 2 to pass")
	}
	if rl.Allow("1.1.1.1") {
		t.Fatalf("expected third request to be limited")
	}
	if !rl.Allow("2.2.2.2") {
		t.Fatalf("expected other IP to have its own bucket")
	}

	rl.now = func() time.Time { return base.Add(time.Second) }
	if !rl.Allow("1.1.1.1") {
		t.Fatalf("expected a token after refill")
	}
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }
	rl.Allow("1.1.1.1")

	rl.now = func() time.Time { return base.Add(limiterIdleTTL + time.Minute) }
	rl.Allow("2.2.2.2")
	rl.Sweep()

	if got := rl.size(); got != 1 {
		t.Fatalf("expected idle bucket swept, have %d", got)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	done := make(chan struct{})
	defer close(done)
	handler := RateLimit(0.001, 1, done)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req.Header.Set("X-Real-Ip", "9.9.9.9")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != `{"error":"Too many requests"}` {
		t.Fatalf("unexpected body %q", got)
	}
}
