// Package provider defines the interface all upstream backends implement and
// the model-alias router that fronts them.
package provider

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Provider defines the interface all chat backends must implement
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// BaseURL returns the provider's API endpoint
	BaseURL() string

	// ProxyRequest handles a chat completion request against the backend.
	// MUST maintain streaming semantics (no buffering) for streaming
	// requests. Returns ProxyResult with request metadata for logging.
	ProxyRequest(ctx context.Context, w http.ResponseWriter, req *http.Request, opts *ProxyOptions) (*ProxyResult, error)
}

// ProxyOptions contains options for proxying a request
type ProxyOptions struct {
	// RequestID for tracing; also stamped on every emitted chunk
	RequestID string

	// PromptTokens pre-calculated by the handler
	PromptTokens int

	// Model from the parsed request (resolved by the Router before the
	// provider sees it)
	Model string

	// IsStreaming indicates if this is a streaming request
	IsStreaming bool

	// Body is the request body (already read, needs to be replayed)
	Body io.Reader
}

// ProxyResult contains the result of a proxied request
type ProxyResult struct {
	// Model used for the request
	Model string

	// Token counts (calculated by the gateway; the Dev backend reports none)
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int

	// Request metadata
	StatusCode   int
	FinishReason string
	Duration     time.Duration
	IsStreaming  bool

	// Error info (if any)
	Error        error
	ErrorMessage string
}
