package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newLimiter(limit int) (*Limiter, *fakeClock) {
	clk := &fakeClock{now: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)}
	return NewLimiter(Config{RequestsPerMinute: limit}).WithClock(clk.Now), clk
}

func TestAllowWindow(t *testing.T) {
	rl, clk := newLimiter(3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("alice") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("alice") {
		t.Fatal("fourth request in window should be rejected")
	}
	if !rl.Allow("bob") {
		t.Fatal("other clients have their own window")
	}

	clk.now = clk.now.Add(time.Minute)
	if !rl.Allow("alice") {
		t.Fatal("a new window should reset the counter")
	}
	if m := rl.GetMetrics(); m.TotalHits != 1 || m.ClientCount != 2 {
		t.Errorf("GetMetrics() = %+v", m)
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, clk := newLimiter(1)
	rl.Allow("alice")
	clk.now = clk.now.Add(5 * time.Minute)
	rl.Allow("bob")
	clk.now = clk.now.Add(6 * time.Minute)

	if n := rl.cleanupStaleEntries(); n != 1 {
		t.Errorf("cleanupStaleEntries() = %d, want 1", n)
	}
	if m := rl.GetMetrics(); m.ClientCount != 1 {
		t.Errorf("ClientCount = %d, want 1", m.ClientCount)
	}
}

func TestMiddlewareOnlyLimitsMutations(t *testing.T) {
	rl, _ := newLimiter(1)
	h := rl.Middleware(func(r *http.Request) string { return "k" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(method string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/api/transactions", nil))
		return rec.Code
	}

	if code := do(http.MethodPost); code != http.StatusOK {
		t.Fatalf("first POST = %d", code)
	}
	if code := do(http.MethodPost); code != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d, want 429", code)
	}
	for i := 0; i < 5; i++ {
		if code := do(http.MethodGet); code != http.StatusOK {
			t.Fatalf("GET should never be limited, got %d", code)
		}
	}
}

func TestMiddlewareCustomRejection(t *testing.T) {
	rl, _ := newLimiter(1)
	rl.Allow("k")
	h := rl.Middleware(func(r *http.Request) string { return "k" }, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/budgets/1", nil))
	if rec.Code != http.StatusTeapot || rec.Header().Get("Retry-After") != "60" {
		t.Errorf("status = %d, Retry-After = %q", rec.Code, rec.Header().Get("Retry-After"))
	}
}
