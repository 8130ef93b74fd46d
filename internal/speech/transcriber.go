// File: internal/speech/transcriber.go
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sitevoice/api/schemas"
)

// normalize is applied to every transcript; commands are matched lowercased.
func normalize(text string) (string, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return "", schemas.ErrNotUnderstood
	}
	return text, nil
}

// TextTranscriber passes through transcripts produced by text listeners.
type TextTranscriber struct{}

var _ schemas.Transcriber = TextTranscriber{}

func (TextTranscriber) Transcribe(_ context.Context, audio schemas.Audio) (string, error) {
	return normalize(audio.Transcript)
}

// CommandTranscriber pipes recorded audio into an external speech-to-text
// program and reads the transcript from its stdout. A non-zero exit is a
// service error; empty output means nothing was understood.
type CommandTranscriber struct {
	logger *zap.Logger
	args   []string
}

var _ schemas.Transcriber = (*CommandTranscriber)(nil)

// NewCommandTranscriber creates a transcriber running args.
func NewCommandTranscriber(logger *zap.Logger, args []string) *CommandTranscriber {
	return &CommandTranscriber{
		logger: logger.Named("command_transcriber"),
		args:   args,
	}
}

func (t *CommandTranscriber) Transcribe(ctx context.Context, audio schemas.Audio) (string, error) {
	if audio.Transcript != "" {
		return normalize(audio.Transcript)
	}
	if len(t.args) == 0 {
		return "", fmt.Errorf("%w: no transcribe command configured", schemas.ErrSpeechService)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.args[0], t.args[1:]...)
	cmd.Stdin = bytes.NewReader(audio.Data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			t.logger.Warn("Transcriber exited with an error.", zap.Int("exit_code", exitErr.ExitCode()), zap.String("stderr", strings.TrimSpace(stderr.String())))
		}
		return "", fmt.Errorf("%w: %v", schemas.ErrSpeechService, err)
	}
	return normalize(stdout.String())
}
