package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/quillfox/devgate/internal/storage"
)

// fakeStore stubs the key lookup surface of storage.Storage.
type fakeStore struct {
	storage.Storage
	keys []*storage.ClientAPIKey

	mu       sync.Mutex
	lastUsed []string
}

func (f *fakeStore) GetAPIKeyByPrefix(prefix string) ([]*storage.ClientAPIKey, error) {
	var out []*storage.ClientAPIKey
	for _, k := range f.keys {
		if k.KeyPrefix == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateAPIKeyLastUsed(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUsed = append(f.lastUsed, id)
	return nil
}

func fastParams() *storage.Argon2Params {
	return &storage.Argon2Params{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func keyFor(t *testing.T, raw string) *storage.ClientAPIKey {
	t.Helper()
	hash, err := storage.HashPassword(raw, fastParams())
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	return &storage.ClientAPIKey{
		ID:        "key_1",
		Name:      "test",
		KeyHash:   hash,
		KeyPrefix: storage.ExtractKeyPrefix(raw),
		Scopes:    []string{"proxy"},
		IsActive:  true,
	}
}

func authHandler(store storage.Storage) (http.Handler, *bool) {
	called := false
	h := APIKeyAuth(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	return h, &called
}

func TestAPIKeyAuthValidKey(t *testing.T) {
	raw := "dg_abcdefgh" + "0123456789012345678901234567890123456789012345678901234567"
	store := &fakeStore{keys: []*storage.ClientAPIKey{keyFor(t, raw)}}
	handler, called := authHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if !*called {
		t.Error("next handler not called")
	}
}

func TestAPIKeyAuthRejections(t *testing.T) {
	raw := "dg_abcdefgh" + "0123456789012345678901234567890123456789012345678901234567"
	store := &fakeStore{keys: []*storage.ClientAPIKey{keyFor(t, raw)}}

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "not bearer", header: "Basic abc"},
		{name: "foreign key prefix", header: "Bearer sk-or-v1-something"},
		{name: "unknown prefix", header: "Bearer dg_zzzzzzzz" + "0123456789012345678901234567890123456789012345678901234567"},
		{name: "wrong key same prefix", header: "Bearer dg_abcdefgh" + "9999999999999999999999999999999999999999999999999999999999"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler, called := authHandler(store)
			req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if *called {
				t.Error("next handler called for rejected request")
			}
		})
	}
}

func TestAPIKeyAuthInactiveKey(t *testing.T) {
	raw := "dg_abcdefgh" + "0123456789012345678901234567890123456789012345678901234567"
	key := keyFor(t, raw)
	key.IsActive = false
	store := &fakeStore{keys: []*storage.ClientAPIKey{key}}
	handler, _ := authHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAPIKeyAuthExpiredKey(t *testing.T) {
	raw := "dg_abcdefgh" + "0123456789012345678901234567890123456789012345678901234567"
	key := keyFor(t, raw)
	past := time.Now().Add(-time.Hour)
	key.ExpiresAt = &past
	store := &fakeStore{keys: []*storage.ClientAPIKey{key}}
	handler, _ := authHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireScope(t *testing.T) {
	key := &storage.ClientAPIKey{ID: "key_1", Scopes: []string{"proxy"}}

	handler := RequireScope("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/usage", nil)
	req = req.WithContext(context.WithValue(req.Context(), APIKeyContextKey{}, key))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
