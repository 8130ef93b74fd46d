// File: cmd/main_test.go
package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/xkilldash9x/sitevoice/internal/config"
	"github.com/xkilldash9x/sitevoice/internal/llmclient"
	"github.com/xkilldash9x/sitevoice/internal/observability"
)

// resetForTest provides the single source of truth for resetting test state.
func resetForTest(t *testing.T) {
	t.Helper()

	// Keep a developer's own keys and config out of the tests.
	for _, key := range []string{"GROQ_API_KEY", "GEMINI_API_KEY", "SITEVOICE_LLM_API_KEY", "SITEVOICE_AGENT_LLM_API_KEY"} {
		t.Setenv(key, "")
	}

	cfgFile = ""
	envFile = ""
	newLLMClient = llmclient.NewClient
	t.Cleanup(func() { newLLMClient = llmclient.NewClient })

	observability.InitializeLogger(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"})

	rootCmd = NewRootCommand()
}

// execute runs a fresh root command with args and returns everything it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetForTest(t)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--env-file", ""}, args...))

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}
