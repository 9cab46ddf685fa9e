// Package voice defines the speech capability interfaces consumed by the
// session layer and the coordinator that drives microphone capture.
// Concrete speech engines live outside this repository; the session only
// needs these contracts.
package voice

import (
	"context"
	"fmt"

	"github.com/parleylabs/parley/internal/domain"
)

// Transcript is one recognition result. Non-final transcripts are interim
// guesses that later transcripts replace.
type Transcript struct {
	Text  string
	Final bool
}

// Microphone is the audio capture device capability.
type Microphone interface {
	// Open acquires the capture device.
	Open(ctx context.Context) error

	// Close releases the capture device. Must be safe to call after a
	// failed Open.
	Close() error
}

// Recognizer is the speech-to-text capability. Start returns a transcript
// stream and an error stream; both close when recognition ends.
type Recognizer interface {
	Start(ctx context.Context) (<-chan Transcript, <-chan error, error)
	Stop() error
}

// Synthesizer is the text-to-speech capability used to play back
// finalized AI responses.
type Synthesizer interface {
	Speak(ctx context.Context, text string, settings domain.VoiceSettings) error
}

// CaptureError wraps a microphone or recognition failure. Capture errors
// stop recording but leave the session active.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("voice capture: %v", e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// SynthesisError wraps a speech playback failure. It is logged and never
// affects message state.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}
