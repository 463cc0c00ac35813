package app

import (
	"log/slog"
	"net/http"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/quillfox/devgate/internal/storage"
	"github.com/quillfox/devgate/internal/transport/http/handler"
	"github.com/quillfox/devgate/internal/transport/http/middleware"
	"github.com/quillfox/devgate/internal/transport/http/middleware/auth"
	"github.com/quillfox/devgate/internal/transport/http/middleware/ratelimit"
)

// RouterOptions configures the HTTP router behavior.
type RouterOptions struct {
	Logger      *slog.Logger
	Storage     storage.Storage
	APIKeyCache *ristretto.Cache[string, *auth.CachedAPIKey]
	Limiter     *ratelimit.Limiter
}

// NewRouter creates and configures the HTTP router with all application routes.
// Returns an http.Handler with middleware applied.
// opts must not be nil - all routes require authentication configuration.
func NewRouter(repo *handler.Repo, opts *RouterOptions) http.Handler {
	mux := http.NewServeMux()

	// Public routes (no auth)
	mux.HandleFunc("GET /api/health", repo.Infra.HealthCheck)

	// Proxy routes require an API key; rate limiting runs after auth so
	// the bucket is keyed by the authenticated key
	apiKeyAuth := auth.APIKeyAuth(opts.Storage, opts.APIKeyCache)
	rateLimit := ratelimit.Middleware(opts.Limiter)
	withKey := func(h http.HandlerFunc) http.Handler {
		return apiKeyAuth(rateLimit(h))
	}

	mux.Handle("POST /v1/chat/completions", withKey(repo.Proxy.ChatCompletions))
	mux.Handle("GET /v1/models", withKey(repo.Proxy.ListModels))
	mux.Handle("GET /v1/models/{model}", withKey(repo.Proxy.GetModel))

	// Admin API routes (require admin auth)
	registerAdminRoutes(mux, repo, opts)

	// Root returns JSON status
	mux.HandleFunc("GET /", repo.Infra.RootStatus)

	// Apply middleware chain (order: outer to inner)
	var h http.Handler = mux

	// Request logging (if logger provided)
	if opts.Logger != nil {
		h = middleware.RequestLogger(opts.Logger)(h)
	}

	// Request ID (always applied)
	h = middleware.RequestID(h)

	// CORS (always applied)
	h = middleware.CORS(h)

	return h
}

// registerAdminRoutes adds all admin API routes to the router.
func registerAdminRoutes(mux *http.ServeMux, repo *handler.Repo, opts *RouterOptions) {
	adminAuth := auth.AdminAuth(opts.Storage)

	withAuth := func(h http.HandlerFunc) http.Handler {
		return adminAuth(h)
	}

	// API key management
	mux.Handle("POST /api/admin/apikeys", withAuth(repo.Admin.CreateAPIKey))
	mux.Handle("GET /api/admin/apikeys", withAuth(repo.Admin.ListAPIKeys))
	mux.Handle("GET /api/admin/apikeys/{id}", withAuth(repo.Admin.GetAPIKeyByID))
	mux.Handle("PUT /api/admin/apikeys/{id}", withAuth(repo.Admin.UpdateAPIKey))
	mux.Handle("DELETE /api/admin/apikeys/{id}", withAuth(repo.Admin.DeleteAPIKey))
	mux.Handle("POST /api/admin/apikeys/{id}/rotate", withAuth(repo.Admin.RotateAPIKey))

	// Password management
	mux.Handle("PUT /api/admin/password", withAuth(repo.Admin.ChangeAdminPassword))

	// Usage and logs
	mux.Handle("GET /api/admin/usage", withAuth(repo.Admin.GetUsageStats))
	mux.Handle("GET /api/admin/usage/daily", withAuth(repo.Admin.GetDailyUsage))
	mux.Handle("GET /api/admin/logs", withAuth(repo.Admin.GetRequestLogs))
	mux.Handle("DELETE /api/admin/logs", withAuth(repo.Admin.DeleteRequestLogs))

	// System info
	mux.Handle("GET /api/admin/health", withAuth(repo.Admin.AdminHealth))
	mux.Handle("GET /api/admin/info", withAuth(repo.Admin.AdminInfo))
}
