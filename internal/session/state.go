// Package session owns the client-side conversational session: the
// connect/disconnect state machine and the reconciliation of streamed AI
// message fragments into a display-ready message list.
package session

import "errors"

// State is the session lifecycle state. Recording is an orthogonal flag
// valid only while Active.
type State int

const (
	// StateIdle means no session exists.
	StateIdle State = iota
	// StateConnecting means room join and instance provisioning are in
	// progress.
	StateConnecting
	// StateActive means the session is fully established.
	StateActive
	// StateEnding means teardown is in progress.
	StateEnding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateEnding:
		return "ending"
	default:
		return "unknown"
	}
}

var (
	// ErrSessionActive is returned by Start when a session already
	// exists; the caller must end it first.
	ErrSessionActive = errors.New("session already active")

	// ErrNoActiveSession is returned by operations that require an
	// established session.
	ErrNoActiveSession = errors.New("no active session")

	// ErrRecordingActive is returned by SendText while voice capture is
	// on; recording and manual text entry are mutually exclusive.
	ErrRecordingActive = errors.New("text entry disabled while recording")

	// ErrVoiceUnavailable is returned by StartRecording when no capture
	// coordinator was configured.
	ErrVoiceUnavailable = errors.New("voice capture not configured")
)
