package tokenizer

import (
	"testing"

	"github.com/quillfox/devgate/internal/types"
)

func TestCountMessages(t *testing.T) {
	tok := New()

	tests := []struct {
		name     string
		messages []types.Message
		model    string
		minCount int
		maxCount int
	}{
		{
			name: "single user message",
			messages: []types.Message{
				{Role: types.RoleUser, Content: "Hello!"},
			},
			model:    "gpt-4",
			minCount: 5,
			maxCount: 10,
		},
		{
			name: "system and user messages",
			messages: []types.Message{
				{Role: types.RoleSystem, Content: "You are a helpful assistant."},
				{Role: types.RoleUser, Content: "Hello!"},
			},
			model:    "gpt-4",
			minCount: 12,
			maxCount: 20,
		},
		{
			name: "message with name",
			messages: []types.Message{
				{Role: types.RoleUser, Content: "Hello!", Name: "alice"},
			},
			model:    "gpt-4",
			minCount: 7,
			maxCount: 14,
		},
		{
			name:     "empty messages",
			messages: []types.Message{},
			model:    "gpt-4",
			minCount: 3, // Reply priming only
			maxCount: 5,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			count, err := tok.CountMessages(tc.messages, tc.model)
			if err != nil {
				t.Fatalf("CountMessages() error: %v", err)
			}
			if count < tc.minCount || count > tc.maxCount {
				t.Errorf("CountMessages() = %d, want between %d and %d",
					count, tc.minCount, tc.maxCount)
			}
		})
	}
}

func TestCountRequest(t *testing.T) {
	tok := New()

	req := &types.ChatCompletionRequest{
		Model: "gpt-4",
		Messages: []types.Message{
			{Role: types.RoleUser, Content: "Hello!"},
		},
	}

	count, err := tok.CountRequest(req)
	if err != nil {
		t.Fatalf("CountRequest() error: %v", err)
	}
	if count < 5 || count > 10 {
		t.Errorf("CountRequest() = %d, want between 5 and 10", count)
	}

	msgCount, err := tok.CountMessages(req.Messages, req.Model)
	if err != nil {
		t.Fatalf("CountMessages() error: %v", err)
	}
	if count != msgCount {
		t.Errorf("CountRequest() = %d, want %d (message count)", count, msgCount)
	}
}

func TestGPT35MessageOverhead(t *testing.T) {
	tok := New()

	if got := tok.getMessageOverhead("gpt-3.5-turbo"); got != messageOverheadGPT35 {
		t.Errorf("getMessageOverhead(gpt-3.5-turbo) = %d, want %d", got, messageOverheadGPT35)
	}
	if got := tok.getMessageOverhead("gpt-4"); got != messageOverheadGPT4 {
		t.Errorf("getMessageOverhead(gpt-4) = %d, want %d", got, messageOverheadGPT4)
	}
}
