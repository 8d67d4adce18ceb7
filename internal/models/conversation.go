package models

import "time"

// Conversation represents one chat thread with the assistant.
// For the Telegram front-end there is one conversation per chat ID.
type Conversation struct {
	ID        string
	ChatID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MessageRole identifies who authored a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message is a single chat message within a conversation.
type Message struct {
	ID             string
	ConversationID string
	Role           MessageRole
	Content        string
	CreatedAt      time.Time
}
