package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parleylabs/parley/internal/domain"
	"github.com/parleylabs/parley/internal/rtc"
	"github.com/parleylabs/parley/internal/voice"
)

// Archiver is the slice of the conversation store the session layer needs.
type Archiver interface {
	OpenConversation(ctx context.Context, id string) (*domain.Conversation, error)
	AppendMessage(ctx context.Context, conversationID string, msg domain.Message) error
}

// Reconciler merges inbound AI message fragments into the session's
// message list. Fragments carry cumulative text, so each one replaces the
// message content wholesale. Duplicate fragments are no-ops, and a message
// never regresses from final back to streaming.
type Reconciler struct {
	conversationID string
	archive        Archiver
	synth          voice.Synthesizer
	settings       func() domain.VoiceSettings
	onFinal        func(domain.Message)
	logger         *slog.Logger

	mu       sync.Mutex
	messages []domain.Message
	index    map[string]int
	final    map[string]bool
}

// NewReconciler creates a reconciler bound to one conversation. synth and
// onFinal may be nil; settings must not be.
func NewReconciler(conversationID string, archive Archiver, synth voice.Synthesizer, settings func() domain.VoiceSettings, onFinal func(domain.Message), logger *slog.Logger) *Reconciler {
	return &Reconciler{
		conversationID: conversationID,
		archive:        archive,
		synth:          synth,
		settings:       settings,
		onFinal:        onFinal,
		logger:         logger,
		index:          make(map[string]int),
		final:          make(map[string]bool),
	}
}

// Apply folds one fragment into the message list. On the final fragment
// the message is archived and, when auto-play is on, spoken.
func (r *Reconciler) Apply(ctx context.Context, frag rtc.Fragment) {
	settings := r.settings()

	r.mu.Lock()
	if r.final[frag.MessageID] {
		// Late or duplicate fragment for a finalized message.
		r.mu.Unlock()
		return
	}

	i, ok := r.index[frag.MessageID]
	if !ok {
		i = len(r.messages)
		r.index[frag.MessageID] = i
		r.messages = append(r.messages, domain.Message{
			ID:          frag.MessageID,
			Content:     frag.Text,
			Sender:      domain.SenderAI,
			Timestamp:   time.Now(),
			Type:        domain.MessageTypeText,
			IsStreaming: !frag.EndFlag,
		})
	} else {
		r.messages[i].Content = frag.Text
		r.messages[i].IsStreaming = !frag.EndFlag
	}

	if !frag.EndFlag {
		r.mu.Unlock()
		return
	}

	r.final[frag.MessageID] = true
	snapshot := r.messages[i]
	r.mu.Unlock()

	if err := r.archive.AppendMessage(ctx, r.conversationID, snapshot); err != nil {
		r.logger.Error("archive AI message", "message_id", snapshot.ID, "error", err)
	}
	if r.onFinal != nil {
		r.onFinal(snapshot)
	}
	if r.synth != nil && settings.Enabled && settings.AutoPlay {
		if err := r.synth.Speak(ctx, snapshot.Content, settings); err != nil {
			r.logger.Warn("speech playback failed", "error", &voice.SynthesisError{Err: err})
		}
	}
}

// AppendUser appends an optimistically displayed user message and archives
// it immediately. The message stays in place even if the network send that
// follows fails.
func (r *Reconciler) AppendUser(ctx context.Context, content string) domain.Message {
	msg := domain.Message{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    domain.SenderUser,
		Timestamp: time.Now(),
		Type:      domain.MessageTypeText,
	}

	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()

	if err := r.archive.AppendMessage(ctx, r.conversationID, msg); err != nil {
		r.logger.Error("archive user message", "message_id", msg.ID, "error", err)
	}
	return msg
}

// Messages returns a snapshot of the current message list.
func (r *Reconciler) Messages() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Message, len(r.messages))
	copy(out, r.messages)
	return out
}
