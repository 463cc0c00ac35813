package proxy

import (
	"time"

	"github.com/google/uuid"
	"github.com/quillfox/devgate/internal/provider"
	"github.com/quillfox/devgate/internal/storage"
	"github.com/quillfox/devgate/internal/tokenizer"
)

// Handlers holds the dependencies for proxy HTTP handlers.
type Handlers struct {
	Router    *provider.Router
	Storage   storage.Storage
	Tokenizer tokenizer.Tokenizer
}

// New creates a new instance of proxy handlers.
func New(router *provider.Router, store storage.Storage, tok tokenizer.Tokenizer) *Handlers {
	return &Handlers{
		Router:    router,
		Storage:   store,
		Tokenizer: tok,
	}
}

// logChatRequest logs the proxy request to storage asynchronously.
func (h *Handlers) logChatRequest(requestID, apiKeyID string, result *provider.ProxyResult, promptTokens int) {
	if h.Storage == nil || result == nil {
		return
	}

	// Use upstream token counts if available, otherwise use pre-calculated
	prompt := result.PromptTokens
	if prompt == 0 {
		prompt = promptTokens
	}
	completion := result.CompletionTokens
	total := result.TotalTokens
	if total == 0 {
		total = prompt + completion
	}

	log := &storage.RequestLog{
		ID:               uuid.New().String(),
		RequestID:        requestID,
		APIKeyID:         apiKeyID,
		Model:            result.Model,
		Provider:         h.Router.Name(),
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      total,
		IsStreaming:      result.IsStreaming,
		StatusCode:       result.StatusCode,
		ErrorMessage:     result.ErrorMessage,
		DurationMs:       result.Duration.Milliseconds(),
		CreatedAt:        time.Now(),
	}

	// Log to storage (ignore errors in async context)
	_ = h.Storage.LogRequest(log)

	h.updateDailyUsage(apiKeyID, result, prompt, completion, total)
}

// updateDailyUsage updates the daily usage aggregate for a request.
func (h *Handlers) updateDailyUsage(apiKeyID string, result *provider.ProxyResult, prompt, completion, total int) {
	errorCount := 0
	if result.StatusCode >= 400 {
		errorCount = 1
	}

	usage := &storage.DailyUsage{
		Date:             time.Now().Format("2006-01-02"),
		APIKeyID:         apiKeyID,
		Model:            result.Model,
		RequestCount:     1,
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      total,
		ErrorCount:       errorCount,
	}

	_ = h.Storage.UpdateDailyUsage(usage)
}
