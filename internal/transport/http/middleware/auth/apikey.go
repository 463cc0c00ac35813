package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/quillfox/devgate/internal/storage"
)

// APIKeyContextKey is the context key for the authenticated API key.
type APIKeyContextKey struct{}

// CachedAPIKey holds validated key info for caching.
type CachedAPIKey struct {
	Key        *storage.ClientAPIKey
	ValidUntil time.Time
}

// cacheTTL bounds how long a validated key skips the database lookup.
const cacheTTL = 5 * time.Minute

// APIKeyAuth middleware authenticates requests using devgate API keys.
// Only keys starting with "dg_" are accepted; all other keys are rejected.
func APIKeyAuth(store storage.Storage, cache *ristretto.Cache[string, *CachedAPIKey]) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				writeUnauthorized(w, "API key required")
				return
			}
			apiKey := strings.TrimPrefix(auth, "Bearer ")

			if !strings.HasPrefix(apiKey, storage.APIKeyPrefix) {
				writeUnauthorized(w, "only devgate API keys (dg_*) are accepted")
				return
			}

			prefix := storage.ExtractKeyPrefix(apiKey)
			cacheKey := "apikey:" + prefix

			// Cached entries still verify the full key hash; the cache only
			// skips the database lookup.
			if cache != nil {
				if cached, found := cache.Get(cacheKey); found {
					if time.Now().Before(cached.ValidUntil) {
						valid, _ := storage.VerifyPassword(apiKey, cached.Key.KeyHash)
						if valid && cached.Key.IsActive && !cached.Key.IsExpired() {
							ctx := context.WithValue(r.Context(), APIKeyContextKey{}, cached.Key)
							next.ServeHTTP(w, r.WithContext(ctx))
							return
						}
					}
				}
			}

			keys, err := store.GetAPIKeyByPrefix(prefix)
			if err != nil || len(keys) == 0 {
				writeUnauthorized(w, "invalid API key")
				return
			}

			var validKey *storage.ClientAPIKey
			for _, k := range keys {
				valid, _ := storage.VerifyPassword(apiKey, k.KeyHash)
				if valid {
					validKey = k
					break
				}
			}

			if validKey == nil || !validKey.IsActive || validKey.IsExpired() {
				writeUnauthorized(w, "invalid or expired API key")
				return
			}

			if cache != nil {
				cache.Set(cacheKey, &CachedAPIKey{
					Key:        validKey,
					ValidUntil: time.Now().Add(cacheTTL),
				}, 1)
			}

			// Last-used bookkeeping must not delay the request
			go func() { _ = store.UpdateAPIKeyLastUsed(validKey.ID) }()

			ctx := context.WithValue(r.Context(), APIKeyContextKey{}, validKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAPIKey retrieves the authenticated API key from context.
func GetAPIKey(ctx context.Context) *storage.ClientAPIKey {
	if key, ok := ctx.Value(APIKeyContextKey{}).(*storage.ClientAPIKey); ok {
		return key
	}
	return nil
}

// RequireScope checks if the authenticated API key has a required scope.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := GetAPIKey(r.Context())
			if key == nil {
				writeUnauthorized(w, "authentication required")
				return
			}

			if !key.HasScope(scope) {
				writeForbidden(w, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeForbidden writes a JSON 403 response.
func writeForbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"error":{"message":"` + message + `","type":"permission_error"}}`))
}
