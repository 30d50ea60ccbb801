package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"spendwise/internal/middleware/auth"
)

func TestIdempotencyWrap(t *testing.T) {
	var calls atomic.Int32
	status := http.StatusCreated
	handler := NewIdempotency(10, time.Minute).Wrap(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		NewJSONResponse().Status(status).Message("made").Write(w)
	})

	send := func(owner, path, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		if key != "" {
			req.Header.Set(IdempotencyHeader, key)
		}
		req = req.WithContext(auth.WithOwner(req.Context(), owner))
		rec := httptest.NewRecorder()
		handler(rec, req)
		return rec
	}

	tests := []struct {
		name      string
		owner     string
		path      string
		key       string
		wantCalls int32
		replayed  bool
	}{
		{"first", "alice", "/api/transactions", "k", 1, false},
		{"replay", "alice", "/api/transactions", "k", 1, true},
		{"other owner", "bob", "/api/transactions", "k", 2, false},
		{"other path", "alice", "/api/sms/import", "k", 3, false},
		{"no key", "alice", "/api/transactions", "", 4, false},
		{"no key again", "alice", "/api/transactions", "", 5, false},
	}
	for _, tt := range tests {
		rec := send(tt.owner, tt.path, tt.key)
		if rec.Code != http.StatusCreated {
			t.Fatalf("%s: status=%d", tt.name, rec.Code)
		}
		if got := calls.Load(); got != tt.wantCalls {
			t.Fatalf("%s: calls=%d, want %d", tt.name, got, tt.wantCalls)
		}
		if got := rec.Header().Get("Idempotent-Replayed") == "true"; got != tt.replayed {
			t.Fatalf("%s: replayed=%v", tt.name, got)
		}
		if !strings.Contains(rec.Body.String(), `"made"`) || rec.Header().Get("Content-Type") != "application/json" {
			t.Fatalf("%s: body=%q headers=%v", tt.name, rec.Body.String(), rec.Header())
		}
	}
}

func TestIdempotencySkipsFailures(t *testing.T) {
	var calls atomic.Int32
	handler := NewIdempotency(10, time.Minute).Wrap(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			InternalServerError().Write(w)
			return
		}
		NewJSONResponse().Status(http.StatusCreated).Message("ok").Write(w)
	})

	for i, want := range []int{http.StatusInternalServerError, http.StatusCreated, http.StatusCreated} {
		req := httptest.NewRequest(http.MethodPost, "/api/transactions", nil)
		req.Header.Set(IdempotencyHeader, "retry")
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != want {
			t.Fatalf("attempt %d: status=%d, want %d", i, rec.Code, want)
		}
	}
	if calls.Load() != 2 {
		t.Fatalf("calls=%d, want 2", calls.Load())
	}
}

func TestIdempotencyRejectsLongKey(t *testing.T) {
	handler := NewIdempotency(10, time.Minute).Wrap(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", nil)
	req.Header.Set(IdempotencyHeader, strings.Repeat("k", maxIdempotencyKeyLen+1))
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestIdempotencyExpiry(t *testing.T) {
	idem := NewIdempotency(10, time.Millisecond)
	var calls atomic.Int32
	handler := idem.Wrap(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		NewJSONResponse().Status(http.StatusCreated).Write(w)
	})
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", nil)
	req.Header.Set(IdempotencyHeader, "short")
	handler(httptest.NewRecorder(), req)

	time.Sleep(5 * time.Millisecond)
	if n := idem.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired=%d, want 1", n)
	}
	handler(httptest.NewRecorder(), req)
	if calls.Load() != 2 {
		t.Fatalf("calls=%d, want 2", calls.Load())
	}
}
