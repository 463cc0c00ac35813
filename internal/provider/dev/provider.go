// Package dev implements the Dev backend provider: a signed HTTP client,
// an SSE-to-chat-completion stream translator, and the per-stream
// accumulator behind the non-streaming response path.
package dev

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/quillfox/devgate/internal/provider"
	"github.com/quillfox/devgate/internal/tokenizer"
	"github.com/quillfox/devgate/internal/types"
)

// Provider bridges OpenAI-compatible chat completions onto the Dev backend.
type Provider struct {
	client    *Client
	tokenizer tokenizer.Tokenizer
	endpoint  string
	logger    *slog.Logger
}

// NewProvider creates a Dev provider backed by a signed client.
func NewProvider(client *Client, tok tokenizer.Tokenizer, logger *slog.Logger) *Provider {
	return &Provider{
		client:    client,
		tokenizer: tok,
		endpoint:  client.cfg.Endpoint,
		logger:    logger,
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "dev"
}

// BaseURL returns the backend endpoint.
func (p *Provider) BaseURL() string {
	return p.endpoint
}

// ProxyRequest translates one chat completion request into a signed backend
// call and writes the translated response, streaming or aggregated.
func (p *Provider) ProxyRequest(ctx context.Context, w http.ResponseWriter, req *http.Request, opts *provider.ProxyOptions) (*provider.ProxyResult, error) {
	start := time.Now()
	result := &provider.ProxyResult{
		Model:        opts.Model,
		PromptTokens: opts.PromptTokens,
		IsStreaming:  opts.IsStreaming,
	}

	var chatReq types.ChatCompletionRequest
	if err := json.NewDecoder(opts.Body).Decode(&chatReq); err != nil {
		result.StatusCode = http.StatusBadRequest
		result.Error = err
		result.Duration = time.Since(start)
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest("Invalid request body"))
		return result, nil
	}
	if len(chatReq.Messages) == 0 {
		result.StatusCode = http.StatusBadRequest
		result.ErrorMessage = "messages must not be empty"
		result.Duration = time.Since(start)
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest("messages must not be empty"))
		return result, nil
	}

	content := messagesToContent(chatReq.Messages)

	body, err := p.client.OpenStream(ctx, content, RequestOptions{Model: opts.Model})
	if err != nil {
		result.StatusCode = http.StatusBadGateway
		result.Error = err
		result.Duration = time.Since(start)
		types.WriteError(w, http.StatusBadGateway, types.ErrServer("Upstream request failed"))
		return result, nil
	}

	stream := NewStream(body, opts.RequestID, opts.Model, p.logger)
	defer stream.Close()

	if opts.IsStreaming {
		err = p.streamResponse(w, stream, result)
	} else {
		err = p.aggregateResponse(w, stream, result)
	}
	result.Duration = time.Since(start)
	return result, err
}

// streamResponse forwards translated chunks as SSE, flushing after each one.
func (p *Provider) streamResponse(w http.ResponseWriter, stream *Stream, result *provider.ProxyResult) error {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	result.StatusCode = http.StatusOK

	flusher, ok := w.(http.Flusher)
	if !ok {
		result.Error = io.ErrNoProgress
		return result.Error
	}

	for {
		chunk, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			result.Error = err
			return err
		}

		payload, err := json.Marshal(chunk)
		if err != nil {
			result.Error = err
			return err
		}
		if _, err := w.Write(types.FormatSSE(payload)); err != nil {
			result.Error = err
			return err
		}
		flusher.Flush()

		if len(chunk.Choices) > 0 && chunk.Choices[0].IsFinal() {
			result.FinishReason = chunk.Choices[0].FinishReason
		}
	}

	if _, err := w.Write([]byte(types.SSEDone)); err != nil {
		result.Error = err
		return err
	}
	flusher.Flush()

	p.fillUsage(stream.Accumulator(), result)
	if msg := stream.Accumulator().Error; msg != "" {
		result.ErrorMessage = msg
	}
	return nil
}

// aggregateResponse drains the stream and writes a single JSON completion.
func (p *Provider) aggregateResponse(w http.ResponseWriter, stream *Stream, result *provider.ProxyResult) error {
	for {
		_, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			result.Error = err
			result.StatusCode = http.StatusBadGateway
			types.WriteError(w, http.StatusBadGateway, types.ErrServer("Upstream stream failed"))
			return err
		}
	}

	acc := stream.Accumulator()
	if acc.Error != "" {
		result.StatusCode = http.StatusBadGateway
		result.ErrorMessage = acc.Error
		types.WriteError(w, http.StatusBadGateway, types.ErrServer(acc.Error))
		return nil
	}

	p.fillUsage(acc, result)
	result.FinishReason = types.FinishReasonStop
	result.StatusCode = http.StatusOK

	resp := types.ChatCompletionResponse{
		ID:      stream.requestID,
		Object:  types.ObjectChatCompletion,
		Created: time.Now().Unix(),
		Model:   result.Model,
		Choices: []types.Choice{
			{
				Index: 0,
				Message: types.Message{
					Role:    types.RoleAssistant,
					Content: acc.Text,
				},
				FinishReason: types.FinishReasonStop,
			},
		},
		Usage: &types.Usage{
			PromptTokens:     result.PromptTokens,
			CompletionTokens: result.CompletionTokens,
			TotalTokens:      result.TotalTokens,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	return json.NewEncoder(w).Encode(resp)
}

// fillUsage computes completion tokens from the accumulated text. The
// backend reports no usage of its own.
func (p *Provider) fillUsage(acc *Accumulator, result *provider.ProxyResult) {
	if p.tokenizer == nil {
		result.TotalTokens = result.PromptTokens
		return
	}
	count, err := p.tokenizer.CountTokens(acc.Text, result.Model)
	if err != nil {
		p.logger.Warn("token count failed", "model", result.Model, "error", err)
		result.TotalTokens = result.PromptTokens
		return
	}
	result.CompletionTokens = count
	result.TotalTokens = result.PromptTokens + count
}

// messagesToContent flattens a chat history into the single prompt string
// the backend accepts.
func messagesToContent(messages []types.Message) string {
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case types.RoleAssistant:
			parts = append(parts, "Assistant: "+msg.Content)
		case types.RoleSystem:
			parts = append(parts, "System: "+msg.Content)
		default:
			parts = append(parts, "User: "+msg.Content)
		}
	}
	return strings.Join(parts, "\n")
}
