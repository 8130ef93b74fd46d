// File: internal/speech/push_to_talk.go
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sitevoice/api/schemas"
	"github.com/xkilldash9x/sitevoice/internal/config"
	"github.com/xkilldash9x/sitevoice/internal/engine"
	"github.com/xkilldash9x/sitevoice/internal/observability"
)

// Status lines shown to the user between turns.
const (
	StatusReady         = "Ready to listen"
	StatusListening     = "Listening... Speak now!"
	StatusProcessing    = "Processing..."
	StatusNotUnderstood = "Could not understand - try again"
	StatusServiceError  = "Speech recognition error"
)

// ErrNotRecording is returned by Stop when no capture is in progress.
var ErrNotRecording = errors.New("not recording")

// Submitter accepts transcribed utterances; engine.TurnQueue satisfies it.
type Submitter interface {
	Submit(utterance string) (string, error)
}

// RecordingObserver is told when capture starts and stops.
type RecordingObserver interface {
	SetRecording(recording, listening bool)
}

type capture struct {
	audio schemas.Audio
	err   error
}

// PushToTalk turns press/release events into queued utterances. A press
// while already recording and a release while idle are both ignored.
type PushToTalk struct {
	logger      *zap.Logger
	cfg         config.SpeechConfig
	listener    schemas.Listener
	transcriber schemas.Transcriber
	sink        Submitter
	observer    RecordingObserver

	recording atomic.Bool

	mu      sync.Mutex
	release context.CancelFunc
	result  chan capture
	status  string
}

// NewPushToTalk wires a listener and transcriber to sink. observer may be nil.
func NewPushToTalk(logger *zap.Logger, cfg config.SpeechConfig, listener schemas.Listener, transcriber schemas.Transcriber, sink Submitter, observer RecordingObserver) *PushToTalk {
	return &PushToTalk{
		logger:      logger.Named("push_to_talk"),
		cfg:         cfg,
		listener:    listener,
		transcriber: transcriber,
		sink:        sink,
		observer:    observer,
		status:      StatusReady,
	}
}

// Recording reports whether a capture is in progress.
func (p *PushToTalk) Recording() bool {
	return p.recording.Load()
}

// Status is the latest user-facing status line.
func (p *PushToTalk) Status() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Start begins capturing on its own goroutine. ctx bounds the capture and
// must outlive the press; it is not the request that triggered it. It
// reports whether a new capture was started.
func (p *PushToTalk) Start(ctx context.Context) bool {
	p.mu.Lock()
	if !p.recording.CompareAndSwap(false, true) {
		p.mu.Unlock()
		return false
	}
	captureCtx, release := context.WithCancel(ctx)
	result := make(chan capture, 1)
	p.release = release
	p.result = result
	p.status = StatusListening
	p.mu.Unlock()
	p.notify(true)

	p.logger.Debug("Recording started.")
	go func() {
		audio, err := p.listener.Listen(captureCtx, p.cfg.ListenTimeout, p.cfg.PhraseLimit)
		result <- capture{audio: audio, err: err}
	}()
	return true
}

// Stop releases the capture, waits for it, transcribes it and submits the
// utterance. It returns the submitted utterance. A window opened by Capture
// ends on its own and cannot be released here.
func (p *PushToTalk) Stop(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.release == nil {
		p.mu.Unlock()
		return "", ErrNotRecording
	}
	p.recording.Store(false)
	release, result := p.release, p.result
	p.release, p.result = nil, nil
	p.status = StatusProcessing
	p.mu.Unlock()
	p.notify(false)

	release()
	var c capture
	select {
	case c = <-result:
	case <-ctx.Done():
		p.setStatus(StatusReady)
		return "", ctx.Err()
	}
	return p.finish(ctx, c.audio, c.err)
}

// Capture runs one complete window synchronously: listen until the listener
// returns on its own, then transcribe and submit. Text input uses it, where
// a line is both press and release.
func (p *PushToTalk) Capture(ctx context.Context) (string, error) {
	p.mu.Lock()
	if !p.recording.CompareAndSwap(false, true) {
		p.mu.Unlock()
		return "", fmt.Errorf("capture already in progress")
	}
	p.status = StatusListening
	p.mu.Unlock()
	p.notify(true)

	audio, err := p.listener.Listen(ctx, p.cfg.ListenTimeout, p.cfg.PhraseLimit)

	p.recording.Store(false)
	p.notify(false)
	return p.finish(ctx, audio, err)
}

func (p *PushToTalk) finish(ctx context.Context, audio schemas.Audio, err error) (string, error) {
	if err == nil {
		var text string
		text, err = p.transcriber.Transcribe(ctx, audio)
		if err == nil {
			p.setStatus(StatusProcessing)
			if _, err := p.sink.Submit(text); err != nil {
				p.setStatus(StatusReady)
				return "", fmt.Errorf("submitting utterance: %w", err)
			}
			p.logger.Info("Utterance recognized.", zap.String("utterance", text))
			p.setStatus(StatusReady)
			return text, nil
		}
	}

	switch {
	case errors.Is(err, schemas.ErrNotUnderstood), errors.Is(err, schemas.ErrNoSpeech):
		reason := "not_understood"
		if errors.Is(err, schemas.ErrNoSpeech) {
			reason = "no_speech"
		}
		observability.TranscriptionFailures.WithLabelValues(reason).Inc()
		p.logger.Info("Could not understand the audio.", zap.Error(err))
		p.setStatus(StatusNotUnderstood)
	case errors.Is(err, io.EOF), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		p.setStatus(StatusReady)
	default:
		observability.TranscriptionFailures.WithLabelValues("service").Inc()
		p.logger.Warn("Speech recognition error.", zap.Error(err))
		p.setStatus(StatusServiceError)
	}
	return "", err
}

func (p *PushToTalk) setStatus(s string) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

func (p *PushToTalk) notify(recording bool) {
	if p.observer != nil {
		p.observer.SetRecording(recording, recording)
	}
}

// RunConsole captures windows back to back until input ends, ctx is
// cancelled or the sink stops accepting utterances. Utterances that could
// not be understood are reported and skipped.
func (p *PushToTalk) RunConsole(ctx context.Context) error {
	for {
		_, err := p.Capture(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			p.logger.Info("Console input closed.")
			return nil
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, engine.ErrQueueStopped):
			return nil
		case errors.Is(err, schemas.ErrNotUnderstood), errors.Is(err, schemas.ErrNoSpeech):
		default:
			p.logger.Warn("Capture failed.", zap.Error(err))
		}
	}
}
