package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quillfox/devgate/internal/config"
)

// fakeProvider records the options it was called with.
type fakeProvider struct {
	name     string
	lastOpts *ProxyOptions
	calls    int
}

func (f *fakeProvider) Name() string    { return f.name }
func (f *fakeProvider) BaseURL() string { return "http://fake" }

func (f *fakeProvider) ProxyRequest(ctx context.Context, w http.ResponseWriter, req *http.Request, opts *ProxyOptions) (*ProxyResult, error) {
	f.lastOpts = opts
	f.calls++
	w.WriteHeader(http.StatusOK)
	return &ProxyResult{Model: opts.Model, StatusCode: http.StatusOK}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Models: []config.ModelAlias{
			{Slug: "fast", Provider: "dev", Model: "model-fast"},
			{Slug: "smart", Provider: "dev", Model: "model-smart"},
			{Slug: "orphan", Provider: "missing", Model: "x"},
		},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) (*Router, *fakeProvider) {
	t.Helper()
	fake := &fakeProvider{name: "dev"}
	return NewRouter(map[string]Provider{"dev": fake}, cfg), fake
}

func TestRouterResolvesAlias(t *testing.T) {
	router, fake := newTestRouter(t, testConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)

	result, err := router.ProxyRequest(context.Background(), rec, req, &ProxyOptions{Model: "fast"})
	if err != nil {
		t.Fatalf("ProxyRequest: %v", err)
	}
	if fake.lastOpts.Model != "model-fast" {
		t.Errorf("resolved model = %q, want model-fast", fake.lastOpts.Model)
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", result.StatusCode)
	}
}

func TestRouterUnknownModelWithoutDefault(t *testing.T) {
	router, fake := newTestRouter(t, testConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)

	result, err := router.ProxyRequest(context.Background(), rec, req, &ProxyOptions{Model: "nope"})
	if err != ErrModelNotFound {
		t.Fatalf("err = %v, want ErrModelNotFound", err)
	}
	if fake.calls != 0 {
		t.Error("provider should not be called for unknown model")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if result.StatusCode != http.StatusBadRequest {
		t.Errorf("result status = %d, want 400", result.StatusCode)
	}
}

func TestRouterDefaultRoutePassesSlugThrough(t *testing.T) {
	cfg := testConfig()
	cfg.Default = &config.DefaultRoute{Provider: "dev"}
	router, fake := newTestRouter(t, cfg)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)

	if _, err := router.ProxyRequest(context.Background(), rec, req, &ProxyOptions{Model: "custom-model"}); err != nil {
		t.Fatalf("ProxyRequest: %v", err)
	}
	if fake.lastOpts.Model != "custom-model" {
		t.Errorf("default route model = %q, want custom-model", fake.lastOpts.Model)
	}
}

func TestRouterModels(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	models := router.Models()
	// The orphan alias points at a provider that was never registered
	if len(models) != 2 {
		t.Fatalf("len(models) = %d, want 2", len(models))
	}
	if models[0].Slug != "fast" || models[1].Slug != "smart" {
		t.Errorf("models not sorted by slug: %+v", models)
	}
	if models[0].Provider != "dev" || models[0].Model != "model-fast" {
		t.Errorf("unexpected model info: %+v", models[0])
	}
}
