package types

// ChatCompletionRequest represents an OpenAI chat completion request.
// Optional fields use pointers to distinguish between unset and zero values.
type ChatCompletionRequest struct {
	// Required fields
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`

	// Sampling parameters (accepted for compatibility; the Dev backend
	// does not expose generation knobs, so these are not forwarded)
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`

	// Streaming
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *StreamOptions `json:"stream_options,omitempty"`

	// End-user identifier
	User string `json:"user,omitempty"`
}

// StreamOptions controls streaming behavior.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage,omitempty"` // Include usage in final chunk
}

// IsStreaming returns true if this is a streaming request.
func (r *ChatCompletionRequest) IsStreaming() bool {
	return r.Stream
}
