package llm

import "errors"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a chat conversation.
// The order of messages is the turn sequence and is preserved exactly
// across the call boundary.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Completion is the decoded chat-completions response body. The client
// only guarantees it is well-formed JSON; the contents are provider-defined
// and passed through unmodified.
type Completion map[string]any

// FirstContent extracts choices[0].message.content from a completion.
// Most OpenAI-compatible endpoints put the assistant reply there, but the
// shape is not guaranteed by the client, so callers get an error rather
// than a panic when it is absent.
func FirstContent(comp Completion) (string, error) {
	choices, ok := comp["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", errors.New("no choices returned")
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return "", errors.New("malformed choice entry")
	}
	msg, ok := choice["message"].(map[string]any)
	if !ok {
		return "", errors.New("choice has no message object")
	}
	content, ok := msg["content"].(string)
	if !ok {
		return "", errors.New("message has no content string")
	}
	return content, nil
}
