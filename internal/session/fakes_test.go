package session

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/parleylabs/parley/internal/client"
	"github.com/parleylabs/parley/internal/domain"
	"github.com/parleylabs/parley/internal/rtc"
	"github.com/parleylabs/parley/internal/voice"
)

type fakeAPI struct {
	mu         sync.Mutex
	startErr   error
	sendErr    error
	stopErr    error
	startCalls int
	sendCalls  int
	stopCalls  int
	sent       []string
}

func (a *fakeAPI) StartSession(ctx context.Context, roomID, userID string) (*client.StartResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.startCalls++
	if a.startErr != nil {
		return nil, a.startErr
	}
	return &client.StartResult{AgentInstanceID: "inst_1", AgentID: "agent_1"}, nil
}

func (a *fakeAPI) SendMessage(ctx context.Context, agentInstanceID, message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sendCalls++
	a.sent = append(a.sent, message)
	return a.sendErr
}

func (a *fakeAPI) StopSession(ctx context.Context, agentInstanceID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopCalls++
	return a.stopErr
}

func (a *fakeAPI) counts() (start, send, stop int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.startCalls, a.sendCalls, a.stopCalls
}

func (a *fakeAPI) sentMessages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.sent))
	copy(out, a.sent)
	return out
}

type fakeTransport struct {
	mu       sync.Mutex
	joinErr  error
	joined   bool
	joins    int
	leaves   int
	handlers map[int]rtc.Handler
	nextSub  int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[int]rtc.Handler)}
}

func (t *fakeTransport) Join(ctx context.Context, roomID, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.joins++
	if t.joinErr != nil {
		return t.joinErr
	}
	t.joined = true
	return nil
}

func (t *fakeTransport) Leave(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaves++
	t.joined = false
	return nil
}

func (t *fakeTransport) Subscribe(fn rtc.Handler) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextSub
	t.nextSub++
	t.handlers[id] = fn
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.handlers, id)
	}
}

func (t *fakeTransport) subscriberCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handlers)
}

// pushFragment delivers an LLM fragment event to all subscribers, the way
// the room transport would.
func (t *fakeTransport) pushFragment(tb testing.TB, frag rtc.Fragment) {
	tb.Helper()
	data, err := json.Marshal(frag)
	if err != nil {
		tb.Fatalf("marshal fragment: %v", err)
	}
	t.mu.Lock()
	handlers := make([]rtc.Handler, 0, len(t.handlers))
	for _, fn := range t.handlers {
		handlers = append(handlers, fn)
	}
	t.mu.Unlock()
	for _, fn := range handlers {
		fn(rtc.RoomEvent{Cmd: rtc.CmdLLMFragment, Data: data})
	}
}

// fakeArchive is an in-memory Archiver.
type fakeArchive struct {
	mu            sync.Mutex
	conversations map[string]*domain.Conversation
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{conversations: make(map[string]*domain.Conversation)}
}

func (a *fakeArchive) OpenConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id == "" {
		id = "conv_test"
	}
	if conv, ok := a.conversations[id]; ok {
		return conv, nil
	}
	conv := domain.NewConversation(id)
	a.conversations[id] = conv
	return conv, nil
}

func (a *fakeArchive) AppendMessage(ctx context.Context, conversationID string, msg domain.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	conv, ok := a.conversations[conversationID]
	if !ok {
		conv = domain.NewConversation(conversationID)
		a.conversations[conversationID] = conv
	}
	conv.Append(msg)
	return nil
}

func (a *fakeArchive) messages(conversationID string) []domain.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	conv, ok := a.conversations[conversationID]
	if !ok {
		return nil
	}
	out := make([]domain.Message, len(conv.Messages))
	copy(out, conv.Messages)
	return out
}

type fakeSynthesizer struct {
	mu     sync.Mutex
	spoken []string
	err    error
}

func (s *fakeSynthesizer) Speak(ctx context.Context, text string, settings domain.VoiceSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	return s.err
}

func (s *fakeSynthesizer) spokenTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.spoken))
	copy(out, s.spoken)
	return out
}

// fakeMic and fakeRec drive the capture coordinator in scenario tests.
type fakeMic struct{}

func (fakeMic) Open(ctx context.Context) error { return nil }
func (fakeMic) Close() error                   { return nil }

type fakeRec struct {
	transcripts chan voice.Transcript
	errs        chan error
}

func newFakeRec() *fakeRec {
	return &fakeRec{
		transcripts: make(chan voice.Transcript, 16),
		errs:        make(chan error, 1),
	}
}

func (r *fakeRec) Start(ctx context.Context) (<-chan voice.Transcript, <-chan error, error) {
	return r.transcripts, r.errs, nil
}

func (r *fakeRec) Stop() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
