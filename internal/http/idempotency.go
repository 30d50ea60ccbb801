package http

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"spendwise/internal/cache"
	"spendwise/internal/middleware/auth"
)

// IdempotencyHeader lets a client retry a create without recording it twice.
const IdempotencyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

// storedResponse is a replayable copy of a handler's response.
type storedResponse struct {
	status      int
	contentType string
	body        []byte
}

// Idempotency replays the first successful response recorded for an
// (owner, route, key) triple. Concurrent requests with the same key share
// one execution.
type Idempotency struct {
	responses *cache.LRUCache[storedResponse]
	group     singleflight.Group
}

func NewIdempotency(maxEntries int, ttl time.Duration) *Idempotency {
	return &Idempotency{responses: cache.NewLRUCache[storedResponse](maxEntries, ttl)}
}

// CleanExpired lets a cache.Manager sweep stale responses.
func (i *Idempotency) CleanExpired() int {
	return i.responses.CleanExpired()
}

// Wrap applies idempotency to next. Requests without the header pass
// straight through.
func (i *Idempotency) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
		if key == "" {
			next(w, r)
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			BadRequestError("Idempotency-Key is too long").Write(w)
			return
		}

		cacheKey := auth.Owner(r.Context()) + "\x00" + r.Method + " " + r.URL.Path + "\x00" + key
		if stored, ok := i.responses.Get(cacheKey); ok {
			replay(w, stored, true)
			return
		}

		v, _, shared := i.group.Do(cacheKey, func() (any, error) {
			if stored, ok := i.responses.Get(cacheKey); ok {
				return stored, nil
			}
			rec := &recordingWriter{header: make(http.Header), status: http.StatusOK}
			next(rec, r)
			stored := storedResponse{
				status:      rec.status,
				contentType: rec.header.Get("Content-Type"),
				body:        rec.body.Bytes(),
			}
			// Only successful writes are remembered so a failed attempt can be retried.
			if stored.status < 300 {
				i.responses.Set(cacheKey, stored)
			}
			return stored, nil
		})
		replay(w, v.(storedResponse), shared)
	}
}

func replay(w http.ResponseWriter, s storedResponse, replayed bool) {
	if s.contentType != "" {
		w.Header().Set("Content-Type", s.contentType)
	}
	if replayed {
		w.Header().Set("Idempotent-Replayed", "true")
	}
	w.WriteHeader(s.status)
	_, _ = w.Write(s.body)
}

// recordingWriter buffers a response for storage.
type recordingWriter struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (rw *recordingWriter) Header() http.Header { return rw.header }

func (rw *recordingWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.body.Write(b)
}
