package rtc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"sync"

	"github.com/coder/websocket"
)

// WSTransport implements RoomTransport over a websocket gateway. The
// gateway multiplexes room events as JSON text messages.
type WSTransport struct {
	gatewayURL string
	logger     *slog.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	cancelRead context.CancelFunc
	subs       map[int]Handler
	nextSub    int
}

// NewWSTransport creates a websocket room transport against the given
// gateway URL (ws:// or wss://).
func NewWSTransport(gatewayURL string, logger *slog.Logger) *WSTransport {
	return &WSTransport{
		gatewayURL: gatewayURL,
		logger:     logger,
		subs:       make(map[int]Handler),
	}
}

// Join dials the gateway and starts the read loop. Only one room may be
// joined at a time.
func (t *WSTransport) Join(ctx context.Context, roomID, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return &TransportError{Op: "join", Err: errors.New("already joined a room")}
	}

	dialURL, err := url.Parse(t.gatewayURL)
	if err != nil {
		return &TransportError{Op: "join", Err: err}
	}
	q := dialURL.Query()
	q.Set("room_id", roomID)
	q.Set("user_id", userID)
	dialURL.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, dialURL.String(), nil)
	if err != nil {
		return &TransportError{Op: "join", Err: err}
	}

	readCtx, cancel := context.WithCancel(context.Background())
	t.conn = conn
	t.cancelRead = cancel
	go t.readLoop(readCtx, conn)

	t.logger.Info("joined room", "room_id", roomID, "user_id", userID)
	return nil
}

// Leave closes the connection. Safe to call when not joined.
func (t *WSTransport) Leave(ctx context.Context) error {
	t.mu.Lock()
	conn := t.conn
	cancel := t.cancelRead
	t.conn = nil
	t.cancelRead = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	cancel()

	if err := conn.Close(websocket.StatusNormalClosure, "leaving room"); err != nil {
		return &TransportError{Op: "leave", Err: err}
	}
	return nil
}

// Subscribe registers a handler for room events.
func (t *WSTransport) Subscribe(fn Handler) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs, id)
	}
}

func (t *WSTransport) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			// Expected on leave; anything else still only ends the loop.
			if ctx.Err() == nil {
				t.logger.Debug("room read loop ended", "error", err)
			}
			return
		}

		var event RoomEvent
		if err := json.Unmarshal(data, &event); err != nil {
			t.logger.Warn("dropping malformed room event", "error", err)
			continue
		}
		t.dispatch(event)
	}
}

func (t *WSTransport) dispatch(event RoomEvent) {
	t.mu.Lock()
	handlers := make([]Handler, 0, len(t.subs))
	for _, fn := range t.subs {
		handlers = append(handlers, fn)
	}
	t.mu.Unlock()

	for _, fn := range handlers {
		fn(event)
	}
}
