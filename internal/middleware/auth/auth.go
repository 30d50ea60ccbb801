// Package auth resolves the owner of a request. Credentials are checked by
// the gateway in front of the service; it forwards the authenticated owner
// in a header that this package trusts.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// OwnerHeader carries the authenticated owner ID.
const OwnerHeader = "X-Owner-ID"

type contextKey struct{}

// WithOwner returns a copy of ctx carrying owner.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, contextKey{}, owner)
}

// Owner returns the owner stored by the middleware, or "".
func Owner(ctx context.Context) string {
	owner, _ := ctx.Value(contextKey{}).(string)
	return owner
}

// RequireOwner rejects requests without an owner header with 401.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
		if owner == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Not authorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
	})
}
