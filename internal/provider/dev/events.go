package dev

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/quillfox/devgate/internal/types"
)

// streamErrorPrefix tags error chunks so clients can tell transported
// failures from model output.
const streamErrorPrefix = "[STREAM_ERROR]: "

// applyEvent applies one complete SSE event to the accumulator and returns
// the chunk to emit, if any. Malformed JSON payloads are logged and the
// event dropped; the stream continues unaffected.
func applyEvent(acc *Accumulator, event, data, requestID, model string, logger *slog.Logger) *types.ChatCompletionChunk {
	switch event {
	case "message", "content", "c":
		if data == "" {
			return nil
		}
		acc.Text += data
		return contentChunk(requestID, model, data)

	case "action":
		var a Action
		if err := json.Unmarshal([]byte(data), &a); err != nil {
			logger.Warn("dropping malformed action event", "request_id", requestID, "error", err)
			return nil
		}
		acc.Actions = append(acc.Actions, a)

	case "sources":
		var s []Source
		if err := json.Unmarshal([]byte(data), &s); err != nil {
			logger.Warn("dropping malformed sources event", "request_id", requestID, "error", err)
			return nil
		}
		// Each sources event carries the full list; replace, don't append.
		acc.Sources = s

	case "repoSources":
		var gs []GithubSource
		if err := json.Unmarshal([]byte(data), &gs); err != nil {
			logger.Warn("dropping malformed repoSources event", "request_id", requestID, "error", err)
			return nil
		}
		acc.GithubSources = gs

	case "rlq", "q":
		if data != "" {
			acc.appendRelated(data)
		}

	case "r":
		acc.Reasoning += data

	case "threadId":
		acc.ThreadID = data

	case "queryMessageId":
		acc.QueryMessageID = data

	case "answerMessageId":
		acc.AnswerMessageID = data

	case "threadTitle":
		acc.ThreadTitle = data

	case "error":
		logger.Error("backend signaled stream error", "request_id", requestID, "error", data)
		acc.Error = data
		acc.IsFinished = true
		return errorChunk(requestID, model, data)

	case "finish":
		// Informational only; the terminal chunk is emitted at source EOF.

	default:
		// Unknown event kinds are ignored.
	}
	return nil
}

// contentChunk builds a delta chunk carrying incremental answer text.
func contentChunk(id, model, content string) *types.ChatCompletionChunk {
	return &types.ChatCompletionChunk{
		ID:      id,
		Object:  types.ObjectChatCompletionChunk,
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []types.ChunkChoice{{
			Index: 0,
			Delta: types.Delta{Role: types.RoleAssistant, Content: content},
		}},
	}
}

// finalChunk builds the terminal chunk for a normally completed stream.
func finalChunk(id, model, reason string) *types.ChatCompletionChunk {
	return &types.ChatCompletionChunk{
		ID:      id,
		Object:  types.ObjectChatCompletionChunk,
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []types.ChunkChoice{{
			Index:        0,
			Delta:        types.Delta{},
			FinishReason: reason,
		}},
	}
}

// errorChunk builds the single chunk that closes a failed stream.
func errorChunk(id, model, message string) *types.ChatCompletionChunk {
	return &types.ChatCompletionChunk{
		ID:      id,
		Object:  types.ObjectChatCompletionChunk,
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []types.ChunkChoice{{
			Index:        0,
			Delta:        types.Delta{Role: types.RoleAssistant, Content: streamErrorPrefix + message},
			FinishReason: types.FinishReasonStop,
		}},
	}
}
