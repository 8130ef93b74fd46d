// File: cmd/run_test.go
package cmd

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/sitevoice/internal/agent"
	"github.com/xkilldash9x/sitevoice/internal/browser/snapshot"
	"github.com/xkilldash9x/sitevoice/internal/config"
	"github.com/xkilldash9x/sitevoice/internal/extractor"
	"github.com/xkilldash9x/sitevoice/internal/mocks"
	"github.com/xkilldash9x/sitevoice/internal/testing/testsite"
)

func sessionConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Site.BaseURL = testsite.BaseURL
	cfg.Network = config.NetworkConfig{
		RootWait:        time.Second,
		NavigationWait:  time.Second,
		InitialLoadWait: time.Second,
	}
	return cfg
}

// newSessionAgent builds an agent over the fixture site that prints replies to out.
func newSessionAgent(t *testing.T, cfg *config.Config, llm *mocks.MockLLMClient, out *bytes.Buffer) (*agent.Agent, *snapshot.Page) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	page := snapshot.New(testsite.Pages(), logger)
	speaker := &transcriptSpeaker{out: out, next: &mocks.RecordingSpeaker{}}
	a, err := agent.New(logger, cfg, llm, page, extractor.New(logger, cfg.Network.RootWait), speaker)
	require.NoError(t, err)
	return a, page
}

func TestSession_Console(t *testing.T) {
	cfg := sessionConfig()
	llm := new(mocks.MockLLMClient)
	llm.On("Generate", mock.Anything, mock.Anything).Return("Happy to help.", nil)

	var out bytes.Buffer
	a, page := newSessionAgent(t, cfg, llm, &out)

	// Nothing after the goodbye is handled.
	in := strings.NewReader("go to the career page\nbye\nopen the contact page\n")
	require.NoError(t, session(context.Background(), cfg, zaptest.NewLogger(t), a, in))

	url, err := page.CurrentURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testsite.CareerURL, url)

	transcript := out.String()
	assert.True(t, strings.HasPrefix(transcript, "Assistant: Happy to help."), "the welcome comes first")
	assert.Contains(t, transcript, "Assistant: "+a.Farewell())
	// Welcome plus one turn; the farewell does not consult the model.
	llm.AssertNumberOfCalls(t, "Generate", 2)
}

func TestSession_InputExhausted(t *testing.T) {
	cfg := sessionConfig()
	llm := new(mocks.MockLLMClient)
	llm.On("Generate", mock.Anything, mock.Anything).Return("Here are our services.", nil)

	var out bytes.Buffer
	a, page := newSessionAgent(t, cfg, llm, &out)

	require.NoError(t, session(context.Background(), cfg, zaptest.NewLogger(t), a, strings.NewReader("show me the services page\n")))

	url, err := page.CurrentURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testsite.ServicesURL, url, "queued turns finish before the session closes")
	assert.NotContains(t, out.String(), a.Farewell())
}

func TestSession_Cancelled(t *testing.T) {
	cfg := sessionConfig()
	llm := new(mocks.MockLLMClient)
	llm.On("Generate", mock.Anything, mock.Anything).Return("Hello!", nil).Maybe()

	var out bytes.Buffer
	a, _ := newSessionAgent(t, cfg, llm, &out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Stdin that never yields a line.
	stdin, stdinWriter := io.Pipe()
	defer stdinWriter.Close()

	done := make(chan error, 1)
	go func() {
		done <- session(ctx, cfg, zaptest.NewLogger(t), a, stdin)
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop after cancellation")
	}
}
