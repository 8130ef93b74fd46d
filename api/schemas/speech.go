// File: api/schemas/speech.go
package schemas

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotUnderstood means audio was captured but no words could be recognized.
	ErrNotUnderstood = errors.New("speech not understood")
	// ErrSpeechService means the transcription backend failed.
	ErrSpeechService = errors.New("speech recognition service error")
	// ErrNoSpeech means the listen window closed before anyone spoke.
	ErrNoSpeech = errors.New("no speech detected")
)

// Audio is one captured recording window. Text-based listeners fill
// Transcript directly and leave Data empty.
type Audio struct {
	Data       []byte `json:"-"`
	Format     string `json:"format"`
	Transcript string `json:"transcript,omitempty"`
}

// Listener captures a single utterance. timeout bounds the wait for speech to
// start and phraseLimit bounds the utterance itself.
type Listener interface {
	Listen(ctx context.Context, timeout, phraseLimit time.Duration) (Audio, error)
}

// Transcriber converts captured audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (string, error)
}

// Speaker voices assistant replies.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}
