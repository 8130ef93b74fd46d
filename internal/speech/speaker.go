// File: internal/speech/speaker.go
// Package speech captures utterances and voices replies.
package speech

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sitevoice/api/schemas"
	"github.com/xkilldash9x/sitevoice/internal/config"
)

// unspeakable matches everything a TTS engine should not be handed.
var unspeakable = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?-]`)

// CommandRunner runs an external program to completion.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Speaker prints every reply and, where a voice is available, speaks it.
type Speaker struct {
	logger *zap.Logger
	cfg    config.VoiceConfig
	goos   string
	run    CommandRunner
}

var _ schemas.Speaker = (*Speaker)(nil)

// NewSpeaker creates a speaker for the host platform.
func NewSpeaker(logger *zap.Logger, cfg config.VoiceConfig) *Speaker {
	return &Speaker{
		logger: logger.Named("speaker"),
		cfg:    cfg,
		goos:   runtime.GOOS,
		run:    execRunner,
	}
}

// WithRunner swaps the command runner and platform; used by tests.
func (s *Speaker) WithRunner(goos string, run CommandRunner) *Speaker {
	s.goos = goos
	s.run = run
	return s
}

// Voiced reports whether replies are spoken aloud rather than only logged.
// The default "say" command only exists on macOS.
func (s *Speaker) Voiced() bool {
	if !s.cfg.Enabled || s.cfg.Command == "" {
		return false
	}
	return s.cfg.Command != "say" || s.goos == "darwin"
}

func (s *Speaker) Speak(ctx context.Context, text string) error {
	s.logger.Info("Agent reply.", zap.String("text", text))
	if !s.Voiced() {
		return nil
	}

	for _, chunk := range Chunks(Clean(text), s.cfg.ChunkSize) {
		args := []string{chunk}
		if s.cfg.Rate > 0 {
			args = []string{"-r", strconv.Itoa(s.cfg.Rate), chunk}
		}
		if err := s.run(ctx, s.cfg.Command, args...); err != nil {
			return fmt.Errorf("speaking reply: %w", err)
		}
	}
	return nil
}

// Clean drops characters other than letters, digits, whitespace and basic
// punctuation.
func Clean(text string) string {
	return unspeakable.ReplaceAllString(text, "")
}

// Chunks splits text into pieces of at most size runes, skipping pieces that
// are only whitespace.
func Chunks(text string, size int) []string {
	if size < 1 {
		size = 1
	}
	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunk := string(runes[start:end])
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
