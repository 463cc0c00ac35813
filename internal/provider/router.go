package provider

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/quillfox/devgate/internal/config"
)

// ErrModelNotFound is returned when a model slug cannot be resolved.
var ErrModelNotFound = errors.New("model not found")

// resolvedRoute holds a pre-resolved provider and model for fast lookup.
type resolvedRoute struct {
	provider Provider
	model    string
}

// Router routes requests to the appropriate provider based on model aliases.
// It implements the Provider interface.
type Router struct {
	providers map[string]Provider
	slugMap   map[string]*resolvedRoute // Pre-resolved for O(1) lookup
	default_  *config.DefaultRoute
}

// NewRouter creates a Router with pre-resolved model aliases.
func NewRouter(providers map[string]Provider, cfg *config.Config) *Router {
	r := &Router{
		providers: providers,
		slugMap:   make(map[string]*resolvedRoute),
		default_:  cfg.Default,
	}

	// Build slug map at startup (not per-request)
	for _, alias := range cfg.Models {
		if p, ok := providers[alias.Provider]; ok {
			r.slugMap[alias.Slug] = &resolvedRoute{
				provider: p,
				model:    alias.Model,
			}
		}
	}
	return r
}

// Name returns the router identifier.
func (r *Router) Name() string {
	return "router"
}

// BaseURL returns empty since the router delegates to actual providers.
func (r *Router) BaseURL() string {
	return ""
}

// ProxyRequest resolves the model, then delegates to the appropriate provider.
func (r *Router) ProxyRequest(ctx context.Context, w http.ResponseWriter, req *http.Request, opts *ProxyOptions) (*ProxyResult, error) {
	resolved, err := r.resolveModel(opts.Model)
	if err != nil {
		http.Error(w, "Model not found: "+opts.Model, http.StatusBadRequest)
		return &ProxyResult{
			Model:      opts.Model,
			StatusCode: http.StatusBadRequest,
			Error:      err,
		}, err
	}

	opts.Model = resolved.model
	return resolved.provider.ProxyRequest(ctx, w, req, opts)
}

// ModelInfo describes a routable model alias.
type ModelInfo struct {
	Slug     string
	Provider string
	Model    string
}

// Models returns all configured model aliases in sorted slug order.
func (r *Router) Models() []ModelInfo {
	models := make([]ModelInfo, 0, len(r.slugMap))
	for slug, route := range r.slugMap {
		models = append(models, ModelInfo{
			Slug:     slug,
			Provider: route.provider.Name(),
			Model:    route.model,
		})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Slug < models[j].Slug })
	return models
}

// resolveModel performs O(1) lookup for a model slug.
func (r *Router) resolveModel(slug string) (*resolvedRoute, error) {
	// Check explicit aliases first
	if route, ok := r.slugMap[slug]; ok {
		return route, nil
	}

	// Fall back to default provider if configured
	if r.default_ != nil {
		if p, ok := r.providers[r.default_.Provider]; ok {
			return &resolvedRoute{
				provider: p,
				model:    slug, // Use original slug as model name
			}, nil
		}
	}

	return nil, ErrModelNotFound
}
