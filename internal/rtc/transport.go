// Package rtc provides the room transport capability: joining and leaving
// a room on the RTC platform and subscribing to the events it pushes.
package rtc

import (
	"context"
	"encoding/json"
	"fmt"
)

// CmdLLMFragment is the room-event command discriminator for an LLM text
// fragment.
const CmdLLMFragment = 4

// RoomEvent is the envelope of one vendor-pushed room event.
type RoomEvent struct {
	Cmd  int             `json:"Cmd"`
	Data json.RawMessage `json:"Data,omitempty"`
}

// Fragment is one incremental piece of a streamed AI response. Text is
// cumulative over prior fragments for the same message id; EndFlag marks
// the final fragment.
type Fragment struct {
	MessageID string `json:"MessageId"`
	Text      string `json:"Text"`
	EndFlag   bool   `json:"EndFlag"`
}

// Handler receives room events. Handlers run on the transport's read
// goroutine and must not block.
type Handler func(event RoomEvent)

// RoomTransport is the capability the session state machine drives. A
// transport carries at most one joined room at a time.
type RoomTransport interface {
	// Join connects to the given room as the given user.
	Join(ctx context.Context, roomID, userID string) error

	// Leave disconnects from the current room. Safe to call when not
	// joined.
	Leave(ctx context.Context) error

	// Subscribe registers a handler for inbound room events and returns
	// a function that cancels the subscription.
	Subscribe(fn Handler) (unsubscribe func())
}

// TransportError wraps a room transport failure. A join failure aborts
// session start; a leave failure is logged and does not block cleanup.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("room transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
