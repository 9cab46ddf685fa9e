package voice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
)

// Coordinator toggles microphone capture and speech recognition, and
// forwards finalized utterances to the session's send path. Interim
// transcripts are buffered for display and cleared on finalization.
type Coordinator struct {
	mic    Microphone
	rec    Recognizer
	logger *slog.Logger

	mu        sync.Mutex
	recording bool
	interim   string
	cancel    context.CancelFunc
}

// NewCoordinator creates a capture coordinator over the given capabilities.
func NewCoordinator(mic Microphone, rec Recognizer, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		mic:    mic,
		rec:    rec,
		logger: logger,
	}
}

// Start acquires the microphone and the recognizer concurrently and begins
// consuming transcripts. onFinal receives each final transcript with
// non-empty trimmed text; onError receives capture failures, after which
// recording has already stopped.
func (c *Coordinator) Start(ctx context.Context, onFinal func(text string), onError func(err error)) error {
	c.mu.Lock()
	if c.recording {
		c.mu.Unlock()
		return &CaptureError{Err: errors.New("already recording")}
	}
	c.recording = true
	c.mu.Unlock()

	var (
		wg          sync.WaitGroup
		micErr      error
		recErr      error
		transcripts <-chan Transcript
		recErrs     <-chan error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		micErr = c.mic.Open(ctx)
	}()
	go func() {
		defer wg.Done()
		transcripts, recErrs, recErr = c.rec.Start(ctx)
	}()
	wg.Wait()

	if micErr != nil || recErr != nil {
		// Release whichever half came up before reporting failure.
		c.teardown()
		c.mu.Lock()
		c.recording = false
		c.mu.Unlock()
		return &CaptureError{Err: errors.Join(micErr, recErr)}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	go c.consume(runCtx, transcripts, recErrs, onFinal, onError)
	return nil
}

func (c *Coordinator) consume(ctx context.Context, transcripts <-chan Transcript, recErrs <-chan error, onFinal func(string), onError func(error)) {
	for {
		select {
		case tr, ok := <-transcripts:
			if !ok {
				return
			}
			if !tr.Final {
				c.mu.Lock()
				c.interim = tr.Text
				c.mu.Unlock()
				continue
			}
			text := strings.TrimSpace(tr.Text)
			c.mu.Lock()
			c.interim = ""
			c.mu.Unlock()
			if text != "" {
				onFinal(text)
			}
		case err, ok := <-recErrs:
			if !ok {
				return
			}
			if err == nil {
				continue
			}
			// Recognition died: stop recording, surface the error, keep
			// the session alive.
			if stopErr := c.Stop(); stopErr != nil {
				c.logger.Warn("cleanup after capture error failed", "error", stopErr)
			}
			onError(&CaptureError{Err: err})
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop terminates recognition and releases the capture device. Both halves
// are always attempted even if one fails.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	if !c.recording {
		c.mu.Unlock()
		return nil
	}
	c.recording = false
	c.interim = ""
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return c.teardown()
}

func (c *Coordinator) teardown() error {
	return errors.Join(c.rec.Stop(), c.mic.Close())
}

// Recording reports whether capture is currently active.
func (c *Coordinator) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// InterimTranscript returns the current non-final transcript for display.
func (c *Coordinator) InterimTranscript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interim
}
