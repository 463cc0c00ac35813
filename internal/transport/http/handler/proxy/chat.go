package proxy

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/quillfox/devgate/internal/provider"
	"github.com/quillfox/devgate/internal/transport/http/middleware/auth"
	"github.com/quillfox/devgate/internal/types"
)

// tokenCountTimeout is the maximum time to wait for token counting before proceeding.
const tokenCountTimeout = 100 * time.Millisecond

// ChatCompletions forwards requests to the configured backend with logging.
// Token counting runs in parallel with request parsing to minimize latency.
func (h *Handlers) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	requestID := "chatcmpl-" + uuid.New().String()

	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest("Failed to read request body"))
		return
	}
	r.Body.Close()

	// Parse request to extract model and messages
	var req types.ChatCompletionRequest
	if err := json.Unmarshal(bodyBytes, &req); err != nil {
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest("Invalid request format"))
		return
	}

	// Count prompt tokens in the background. The backend never reports
	// token usage, so the local count is all we have.
	tokensChan := make(chan int, 1)
	go func() {
		defer close(tokensChan)
		if h.Tokenizer != nil {
			if tokens, err := h.Tokenizer.CountRequest(&req); err == nil {
				tokensChan <- tokens
			}
		}
	}()

	// Collect the count with a short grace period. Counting is fast once
	// the encoding is cached; a cold cache should not stall the request.
	var promptTokens int
	select {
	case tokens, ok := <-tokensChan:
		if ok {
			promptTokens = tokens
		}
	case <-time.After(tokenCountTimeout):
	}

	opts := &provider.ProxyOptions{
		RequestID:    requestID,
		PromptTokens: promptTokens,
		Model:        req.Model,
		IsStreaming:  req.IsStreaming(),
		Body:         bytes.NewReader(bodyBytes),
	}

	result, _ := h.Router.ProxyRequest(r.Context(), w, r, opts)

	apiKeyID := ""
	if key := auth.GetAPIKey(r.Context()); key != nil {
		apiKeyID = key.ID
	}

	go h.logChatRequest(requestID, apiKeyID, result, promptTokens)
}
