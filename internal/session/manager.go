package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/parleylabs/parley/internal/client"
	"github.com/parleylabs/parley/internal/domain"
	"github.com/parleylabs/parley/internal/identity"
	"github.com/parleylabs/parley/internal/rtc"
	"github.com/parleylabs/parley/internal/voice"
)

// AgentAPI is the backend surface the session drives. *client.Client
// satisfies it.
type AgentAPI interface {
	StartSession(ctx context.Context, roomID, userID string) (*client.StartResult, error)
	SendMessage(ctx context.Context, agentInstanceID, message string) error
	StopSession(ctx context.Context, agentInstanceID string) error
}

// Session is the client-side aggregate for one active conversation.
type Session struct {
	RoomID          string
	UserID          string
	AgentInstanceID string
	AgentID         string
	ConversationID  string
	Voice           domain.VoiceSettings
}

// ManagerConfig wires a Manager's collaborators. Synthesizer, Capture and
// OnAssistantMessage are optional.
type ManagerConfig struct {
	API                AgentAPI
	Transport          rtc.RoomTransport
	Archive            Archiver
	Synthesizer        voice.Synthesizer
	Capture            *voice.Coordinator
	OnAssistantMessage func(domain.Message)
	Logger             *slog.Logger
}

// Manager is the session state machine: it owns room join/leave, agent
// instance provisioning, outbound sends and the recording flag. At most
// one session is active at a time; Start and End must not be called
// concurrently with each other.
type Manager struct {
	api         AgentAPI
	transport   rtc.RoomTransport
	archive     Archiver
	synth       voice.Synthesizer
	capture     *voice.Coordinator
	onAssistant func(domain.Message)
	logger      *slog.Logger

	mu          sync.Mutex
	state       State
	recording   bool
	sess        *Session
	reconciler  *Reconciler
	unsubscribe func()
}

// NewManager creates a session manager in the Idle state.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		api:         cfg.API,
		transport:   cfg.Transport,
		archive:     cfg.Archive,
		synth:       cfg.Synthesizer,
		capture:     cfg.Capture,
		onAssistant: cfg.OnAssistantMessage,
		logger:      cfg.Logger,
	}
}

// Start establishes a session: fresh room and user ids, room join,
// instance provisioning, conversation open, message subscription. Any
// failure rolls the state back to Idle; nothing is retried. Pass an
// existing conversation id to resume its record, or "" for a new one.
func (m *Manager) Start(ctx context.Context, conversationID string) error {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return ErrSessionActive
	}
	m.state = StateConnecting
	m.mu.Unlock()

	roomID, err := identity.NewRoomID()
	if err != nil {
		return m.abortStart(err)
	}
	userID, err := identity.NewUserID()
	if err != nil {
		return m.abortStart(err)
	}

	if err := m.transport.Join(ctx, roomID, userID); err != nil {
		return m.abortStart(fmt.Errorf("join room: %w", err))
	}

	result, err := m.api.StartSession(ctx, roomID, userID)
	if err != nil {
		m.leaveQuietly(ctx)
		return m.abortStart(fmt.Errorf("provision agent instance: %w", err))
	}

	conv, err := m.archive.OpenConversation(ctx, conversationID)
	if err != nil {
		if stopErr := m.api.StopSession(ctx, result.AgentInstanceID); stopErr != nil {
			m.logger.Warn("teardown after failed start", "error", stopErr)
		}
		m.leaveQuietly(ctx)
		return m.abortStart(fmt.Errorf("open conversation: %w", err))
	}

	reconciler := NewReconciler(conv.ID, m.archive, m.synth, m.voiceSettings, m.onAssistant, m.logger)

	m.mu.Lock()
	m.sess = &Session{
		RoomID:          roomID,
		UserID:          userID,
		AgentInstanceID: result.AgentInstanceID,
		AgentID:         result.AgentID,
		ConversationID:  conv.ID,
		Voice:           domain.DefaultVoiceSettings(),
	}
	m.reconciler = reconciler
	m.unsubscribe = m.transport.Subscribe(m.handleRoomEvent)
	m.state = StateActive
	m.mu.Unlock()

	m.logger.Info("session active", "room_id", roomID, "conversation_id", conv.ID)
	return nil
}

// End tears the session down. Recording is stopped first; instance
// teardown and room leave are both best-effort and the state machine
// reaches Idle regardless of their outcomes.
func (m *Manager) End(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateActive {
		m.mu.Unlock()
		return ErrNoActiveSession
	}
	m.state = StateEnding
	sess := m.sess
	unsubscribe := m.unsubscribe
	recording := m.recording
	m.mu.Unlock()

	if recording && m.capture != nil {
		if err := m.capture.Stop(); err != nil {
			m.logger.Warn("stop recording during teardown", "error", err)
		}
		m.mu.Lock()
		m.recording = false
		m.mu.Unlock()
	}

	if unsubscribe != nil {
		unsubscribe()
	}

	if err := m.api.StopSession(ctx, sess.AgentInstanceID); err != nil {
		m.logger.Warn("destroy agent instance", "agent_instance_id", sess.AgentInstanceID, "error", err)
	}
	m.leaveQuietly(ctx)

	m.mu.Lock()
	m.state = StateIdle
	m.sess = nil
	m.reconciler = nil
	m.unsubscribe = nil
	m.mu.Unlock()

	m.logger.Info("session ended", "room_id", sess.RoomID)
	return nil
}

// SendText sends a typed user message. Disallowed while recording so
// voice and manual input cannot interleave.
func (m *Manager) SendText(ctx context.Context, content string) error {
	m.mu.Lock()
	if m.state != StateActive {
		m.mu.Unlock()
		return ErrNoActiveSession
	}
	if m.recording {
		m.mu.Unlock()
		return ErrRecordingActive
	}
	sess := m.sess
	reconciler := m.reconciler
	m.mu.Unlock()

	return m.send(ctx, sess, reconciler, content)
}

// send appends the message optimistically and then forwards it. A send
// failure leaves the displayed message in place; there is no rollback.
func (m *Manager) send(ctx context.Context, sess *Session, reconciler *Reconciler, content string) error {
	reconciler.AppendUser(ctx, content)

	if err := m.api.SendMessage(ctx, sess.AgentInstanceID, content); err != nil {
		m.logger.Warn("send utterance failed, message left in place", "error", err)
		return err
	}
	return nil
}

// StartRecording begins voice capture. Finalized transcripts flow through
// the same send path as typed text.
func (m *Manager) StartRecording(ctx context.Context) error {
	if m.capture == nil {
		return ErrVoiceUnavailable
	}

	m.mu.Lock()
	if m.state != StateActive {
		m.mu.Unlock()
		return ErrNoActiveSession
	}
	if m.recording {
		m.mu.Unlock()
		return ErrRecordingActive
	}
	m.mu.Unlock()

	err := m.capture.Start(ctx, m.onTranscript, func(err error) {
		// Capture errors stop recording but leave the session active.
		m.logger.Error("voice capture failed", "error", err)
		m.mu.Lock()
		m.recording = false
		m.mu.Unlock()
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.recording = true
	m.mu.Unlock()
	return nil
}

// StopRecording ends voice capture.
func (m *Manager) StopRecording() error {
	if m.capture == nil {
		return ErrVoiceUnavailable
	}

	err := m.capture.Stop()
	m.mu.Lock()
	m.recording = false
	m.mu.Unlock()
	return err
}

func (m *Manager) onTranscript(text string) {
	m.mu.Lock()
	if m.state != StateActive {
		// Session moved on while recognition was in flight; discard.
		m.mu.Unlock()
		return
	}
	sess := m.sess
	reconciler := m.reconciler
	m.mu.Unlock()

	if err := m.send(context.Background(), sess, reconciler, text); err != nil {
		m.logger.Warn("forward transcript failed", "error", err)
	}
}

func (m *Manager) handleRoomEvent(event rtc.RoomEvent) {
	if event.Cmd != rtc.CmdLLMFragment {
		return
	}

	var frag rtc.Fragment
	if err := json.Unmarshal(event.Data, &frag); err != nil {
		m.logger.Warn("dropping malformed fragment", "error", err)
		return
	}

	m.mu.Lock()
	reconciler := m.reconciler
	m.mu.Unlock()
	if reconciler == nil {
		return
	}
	reconciler.Apply(context.Background(), frag)
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Recording reports whether voice capture is active.
func (m *Manager) Recording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recording
}

// Session returns a copy of the active session, or false when idle.
func (m *Manager) Session() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return Session{}, false
	}
	return *m.sess, true
}

// Messages returns the current display message list.
func (m *Manager) Messages() []domain.Message {
	m.mu.Lock()
	reconciler := m.reconciler
	m.mu.Unlock()
	if reconciler == nil {
		return nil
	}
	return reconciler.Messages()
}

// InterimTranscript returns the in-progress voice transcript for display.
func (m *Manager) InterimTranscript() string {
	if m.capture == nil {
		return ""
	}
	return m.capture.InterimTranscript()
}

// ToggleVoiceEnabled flips speech playback on or off and returns the new
// value.
func (m *Manager) ToggleVoiceEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return false
	}
	m.sess.Voice.Enabled = !m.sess.Voice.Enabled
	return m.sess.Voice.Enabled
}

// SetVoiceSettings replaces the session's voice settings.
func (m *Manager) SetVoiceSettings(settings domain.VoiceSettings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess != nil {
		m.sess.Voice = settings
	}
}

func (m *Manager) voiceSettings() domain.VoiceSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return domain.DefaultVoiceSettings()
	}
	return m.sess.Voice
}

// abortStart rolls the state machine back to Idle and surfaces the error.
func (m *Manager) abortStart(err error) error {
	m.mu.Lock()
	m.state = StateIdle
	m.mu.Unlock()
	m.logger.Error("session start failed", "error", err)
	return err
}

func (m *Manager) leaveQuietly(ctx context.Context) {
	if err := m.transport.Leave(ctx); err != nil {
		m.logger.Warn("leave room", "error", err)
	}
}
