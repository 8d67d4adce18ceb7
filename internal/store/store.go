package store

import (
	"context"

	"aiko/internal/models"
)

// Store defines the persistence interface for aiko: conversation history
// for the chat loop and the self-update event log for the status surface.
type Store interface {
	// Conversations
	GetOrCreateConversation(ctx context.Context, chatID, title string) (*models.Conversation, error)
	AppendMessage(ctx context.Context, msg *models.Message) error
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
	CountMessages(ctx context.Context, conversationID string) (int, error)
	CountConversations(ctx context.Context) (int, error)

	// Update events
	RecordUpdateEvent(ctx context.Context, ev *models.UpdateEvent) error
	LastUpdateEvent(ctx context.Context) (*models.UpdateEvent, error)
	ListUpdateEvents(ctx context.Context, limit int) ([]*models.UpdateEvent, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
