// Package ratelimit provides per-key rate limiting using a token bucket.
package ratelimit

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/quillfox/devgate/internal/transport/http/middleware/auth"
)

// bucket represents a token bucket for one API key.
type bucket struct {
	tokens   float64
	lastFill time.Time
	mu       sync.Mutex
}

// Limiter tracks rate limits per API key.
type Limiter struct {
	buckets sync.Map // map[keyID]*bucket
}

// New creates a new rate limiter.
func New() *Limiter {
	return &Limiter{}
}

// Allow checks if a request is allowed under the rate limit.
// rateLimit is requests per minute; 0 means unlimited.
func (l *Limiter) Allow(keyID string, rateLimit int) bool {
	if rateLimit <= 0 {
		return true
	}

	val, _ := l.buckets.LoadOrStore(keyID, &bucket{
		tokens:   float64(rateLimit),
		lastFill: time.Now(),
	})
	b := val.(*bucket)

	b.mu.Lock()
	defer b.mu.Unlock()

	// Refill tokens based on elapsed time, capped at capacity
	now := time.Now()
	elapsed := now.Sub(b.lastFill).Seconds()
	refillRate := float64(rateLimit) / 60.0
	b.tokens += elapsed * refillRate
	if b.tokens > float64(rateLimit) {
		b.tokens = float64(rateLimit)
	}
	b.lastFill = now

	if b.tokens >= 1.0 {
		b.tokens--
		return true
	}
	return false
}

// Middleware returns an HTTP middleware that enforces rate limits.
// Must run after APIKeyAuth so the key is present in the context.
func Middleware(limiter *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := auth.GetAPIKey(r.Context())
			if key == nil {
				// Not authenticated; let the handler decide
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(key.ID, key.RateLimit) {
				writeTooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeTooManyRequests writes a JSON 429 response.
func writeTooManyRequests(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"message": "rate limit exceeded",
			"type":    "rate_limit_error",
		},
	})
}
