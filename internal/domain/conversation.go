package domain

import (
	"time"
)

// titleLimit caps how much of the first user message becomes the title.
const titleLimit = 50

// ConversationMetadata is derived bookkeeping updated on every append.
type ConversationMetadata struct {
	TotalMessages  int      `json:"totalMessages"`
	LastAIResponse string   `json:"lastAIResponse"`
	Topics         []string `json:"topics"`
}

// Conversation is the persisted record of one chat: an ordered message
// sequence plus derived metadata. Only finalized messages are appended;
// streaming reconciliation happens upstream.
type Conversation struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	Messages  []Message            `json:"messages"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
	Metadata  ConversationMetadata `json:"metadata"`
}

// NewConversation creates an empty conversation with the given id.
func NewConversation(id string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        id,
		Title:     "New Conversation",
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
		Metadata: ConversationMetadata{
			Topics: []string{},
		},
	}
}

// Append adds a finalized message and updates derived metadata. The first
// user message becomes the conversation title, truncated at 50 runes.
func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	c.Metadata.TotalMessages++

	if msg.Sender == SenderAI {
		c.Metadata.LastAIResponse = msg.Content
	}

	if len(c.Messages) == 1 && msg.Sender == SenderUser {
		c.Title = truncateTitle(msg.Content)
	}
}

func truncateTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= titleLimit {
		return content
	}
	return string(runes[:titleLimit]) + "..."
}
