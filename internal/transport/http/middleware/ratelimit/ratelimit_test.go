package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quillfox/devgate/internal/storage"
	"github.com/quillfox/devgate/internal/transport/http/middleware/auth"
)

func TestAllowUnlimited(t *testing.T) {
	l := New()
	for i := 0; i < 1000; i++ {
		if !l.Allow("key", 0) {
			t.Fatal("unlimited key was throttled")
		}
	}
}

func TestAllowExhaustsBucket(t *testing.T) {
	l := New()
	limit := 5
	for i := 0; i < limit; i++ {
		if !l.Allow("key", limit) {
			t.Fatalf("request %d throttled before bucket emptied", i)
		}
	}
	if l.Allow("key", limit) {
		t.Error("request allowed after bucket emptied")
	}
}

func TestAllowIndependentKeys(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		l.Allow("a", 3)
	}
	if l.Allow("a", 3) {
		t.Error("exhausted key still allowed")
	}
	if !l.Allow("b", 3) {
		t.Error("fresh key throttled by another key's bucket")
	}
}

func TestMiddleware(t *testing.T) {
	l := New()
	handler := Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	key := &storage.ClientAPIKey{ID: "key_1", RateLimit: 1}
	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
		return req.WithContext(context.WithValue(req.Context(), auth.APIKeyContextKey{}, key))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newReq())
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, newReq())
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}

	// Requests without a key pass through untouched
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("unauthenticated request status = %d", rec.Code)
	}
}
