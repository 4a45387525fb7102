package domain

import "github.com/samber/lo"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SystemMessageID is the fixed id of the active system message.
const SystemMessageID = "system"

// ChatMessage is one transcript entry. ID never leaves the process.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	ID      string `json:"id,omitempty"`
}

// StripIDs returns a copy of messages without their ids.
func StripIDs(messages []ChatMessage) []ChatMessage {
	return lo.Map(messages, func(m ChatMessage, _ int) ChatMessage {
		return ChatMessage{Role: m.Role, Content: m.Content}
	})
}

// LastUserMessage returns the most recent user-role message.
func LastUserMessage(messages []ChatMessage) (ChatMessage, int, bool) {
	return lo.FindLastIndexOf(messages, func(m ChatMessage) bool {
		return m.Role == RoleUser
	})
}
