package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

type contextKey string

const ownerIDKey contextKey = "ownerID"

// OwnerHeader carries the authenticated owner on HTTP requests.
const OwnerHeader = "X-Owner-ID"

// ContextWithOwnerID returns a new context that carries the authenticated owner.
func ContextWithOwnerID(ctx context.Context, owner string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ownerIDKey, owner)
}

// OwnerIDFromContext retrieves the authenticated owner from the context, if any.
func OwnerIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	owner, ok := ctx.Value(ownerIDKey).(string)
	if !ok || owner == "" {
		return "", false
	}
	return owner, true
}

// RequireOwner returns the authenticated owner or an error when the context
// carries none.
func RequireOwner(ctx context.Context) (string, error) {
	owner, ok := OwnerIDFromContext(ctx)
	if !ok {
		return "", fmt.Errorf("no authenticated owner in context")
	}
	return owner, nil
}

// OwnerMiddleware copies the owner header into the request context.
func OwnerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if owner := strings.TrimSpace(r.Header.Get(OwnerHeader)); owner != "" {
			r = r.WithContext(ContextWithOwnerID(r.Context(), owner))
		}
		next.ServeHTTP(w, r)
	})
}
