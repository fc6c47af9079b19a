package domain

import "strings"

type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleTool      MessageRole = "tool"
)

func (r MessageRole) Valid() bool {
	switch r {
	case MessageRoleSystem, MessageRoleUser, MessageRoleAssistant, MessageRoleTool:
		return true
	default:
		return false
	}
}

type Message struct {
	Role    MessageRole    `json:"role"`
	Content string         `json:"content"`
	Name    string         `json:"name,omitempty"`
	TSMs    int64          `json:"ts_ms,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func (m Message) Validate() error {
	if !m.Role.Valid() {
		return invalid("message", "invalid role %q", m.Role)
	}
	if m.Content == "" {
		return invalid("message", "content must be non-empty string")
	}

	return nil
}

// Speaker returns the display name used when a transcript is flattened.
func (m Message) Speaker() string {
	if strings.TrimSpace(m.Name) != "" {
		return m.Name
	}

	return string(m.Role)
}
