// File: internal/speech/listener.go
package speech

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sitevoice/api/schemas"
)

// ConsoleListener treats each line of input as one utterance. It is the
// keyboard stand-in for a microphone.
type ConsoleListener struct {
	logger *zap.Logger
	input  io.Reader

	once  sync.Once
	lines chan string
	err   error
}

var _ schemas.Listener = (*ConsoleListener)(nil)

// NewConsoleListener reads utterances from input.
func NewConsoleListener(logger *zap.Logger, input io.Reader) *ConsoleListener {
	return &ConsoleListener{
		logger: logger.Named("console_listener"),
		input:  input,
		lines:  make(chan string),
	}
}

// Listen waits for the next line. Typing has no start window, so timeout and
// phraseLimit are ignored. io.EOF is returned once input is exhausted.
func (l *ConsoleListener) Listen(ctx context.Context, _, _ time.Duration) (schemas.Audio, error) {
	l.once.Do(func() { go l.scan() })

	select {
	case <-ctx.Done():
		return schemas.Audio{}, ctx.Err()
	case line, ok := <-l.lines:
		if !ok {
			if l.err != nil {
				return schemas.Audio{}, fmt.Errorf("reading console input: %w", l.err)
			}
			return schemas.Audio{}, io.EOF
		}
		return schemas.Audio{Format: "text", Transcript: line}, nil
	}
}

func (l *ConsoleListener) scan() {
	defer close(l.lines)
	scanner := bufio.NewScanner(l.input)
	for scanner.Scan() {
		l.lines <- scanner.Text()
	}
	l.err = scanner.Err()
}

// CommandListener records audio by running an external program that writes
// the recording to stdout, e.g. `sox -d -t wav -`. Cancelling the listen
// context (releasing push-to-talk) interrupts the recorder, which is
// expected to flush what it has and exit.
type CommandListener struct {
	logger *zap.Logger
	args   []string
	format string
}

var _ schemas.Listener = (*CommandListener)(nil)

// NewCommandListener creates a listener running args.
func NewCommandListener(logger *zap.Logger, args []string) *CommandListener {
	return &CommandListener{
		logger: logger.Named("command_listener"),
		args:   args,
		format: "wav",
	}
}

// Listen records until ctx is cancelled or phraseLimit elapses. The recorder
// handles silence detection itself, so timeout is not used. An empty
// recording is reported as ErrNoSpeech.
func (l *CommandListener) Listen(ctx context.Context, _, phraseLimit time.Duration) (schemas.Audio, error) {
	if len(l.args) == 0 {
		return schemas.Audio{}, errors.New("no record command configured")
	}

	recCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if phraseLimit > 0 {
		recCtx, cancel = context.WithTimeout(recCtx, phraseLimit)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(recCtx, l.args[0], l.args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	err := cmd.Run()
	if err != nil && recCtx.Err() == nil {
		return schemas.Audio{}, fmt.Errorf("recording failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return schemas.Audio{}, schemas.ErrNoSpeech
	}

	l.logger.Debug("Recording captured.", zap.Int("bytes", stdout.Len()), zap.Duration("elapsed", time.Since(start)))
	return schemas.Audio{Data: stdout.Bytes(), Format: l.format}, nil
}
