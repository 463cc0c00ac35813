// Package types provides OpenAI-compatible type definitions for chat completions.
package types

// Role constants for message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single chat message. The Dev backend consumes plain
// text only, so content is a string rather than a polymorphic part list.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}
