package llmclient

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/sitevoice/internal/config"
)

// setupTestLogger is a helper to create a zap logger for testing with an observer.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

// getValidLLMConfig returns a Groq configuration pointed at endpoint.
func getValidLLMConfig(endpoint string) config.LLMConfig {
	return config.LLMConfig{
		Provider:         config.ProviderGroq,
		Model:            "llama-3.3-70b-versatile",
		APIKey:           "gsk_test_key_12345678",
		Endpoint:         endpoint,
		APITimeout:       5 * time.Second,
		Temperature:      0.7,
		TopP:             1,
		MaxTokens:        400,
		ProbeTimeout:     2 * time.Second,
		ProbeTemperature: 0.1,
		ProbeMaxTokens:   20,
	}
}
