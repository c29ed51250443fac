package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOwnerIDFromContext(t *testing.T) {
	if _, ok := OwnerIDFromContext(context.Background()); ok {
		t.Fatalf("expected no owner on a bare context")
	}
	if _, ok := OwnerIDFromContext(ContextWithOwnerID(context.Background(), "")); ok {
		t.Fatalf("expected empty owner to be ignored")
	}
	owner, ok := OwnerIDFromContext(ContextWithOwnerID(context.Background(), "u1"))
	if !ok || owner != "u1" {
		t.Fatalf("expected owner u1, got %q (%v)", owner, ok)
	}
	if _, err := RequireOwner(context.Background()); err == nil {
		t.Fatalf("expected RequireOwner to fail without an owner")
	}
}

func TestOwnerMiddleware(t *testing.T) {
	var seen string
	handler := OwnerMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = OwnerIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(OwnerHeader, " u7 ")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "u7" {
		t.Fatalf("expected owner u7, got %q", seen)
	}
}
