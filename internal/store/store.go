// Package store provides conversation persistence interfaces and
// implementations.
package store

import (
	"context"

	"github.com/parleylabs/parley/internal/domain"
)

// ConversationStore defines the interface for persisting conversation
// records. Only finalized messages reach the store; streaming
// reconciliation happens in the session layer.
type ConversationStore interface {
	// OpenConversation returns the conversation with the given id,
	// creating it if it does not exist. An empty id mints a fresh one.
	OpenConversation(ctx context.Context, id string) (*domain.Conversation, error)

	// GetConversation retrieves a conversation, or nil if not found.
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)

	// ListConversations returns all conversations, most recently
	// updated first.
	ListConversations(ctx context.Context) ([]*domain.Conversation, error)

	// DeleteConversation removes a conversation record.
	DeleteConversation(ctx context.Context, id string) error

	// AppendMessage appends a finalized message to a conversation and
	// updates its derived metadata.
	AppendMessage(ctx context.Context, conversationID string, msg domain.Message) error

	// Ping verifies store connectivity.
	Ping(ctx context.Context) error

	// Close closes the underlying database connection.
	Close() error
}
