// Package domain holds the core conversation types.
package domain

import (
	"time"
)

// Sender identifies who authored a message.
type Sender string

const (
	// SenderUser marks a message typed or spoken by the local user.
	SenderUser Sender = "user"
	// SenderAI marks a message produced by the hosted agent.
	SenderAI Sender = "ai"
)

// MessageType categorizes message payloads.
type MessageType string

// MessageTypeText is the only payload type carried today.
const MessageTypeText MessageType = "text"

// Message is a single conversation entry. AI messages are keyed by the
// vendor-assigned message id; user messages get a locally generated id.
type Message struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	Sender    Sender      `json:"sender"`
	Timestamp time.Time   `json:"timestamp"`
	Type      MessageType `json:"type"`

	// IsStreaming is true while fragments for this message are still
	// arriving. It flips to false exactly once and never back.
	IsStreaming bool `json:"isStreaming,omitempty"`
}
