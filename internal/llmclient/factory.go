// -- internal/llmclient/factory.go --
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sitevoice/api/schemas"
	"github.com/xkilldash9x/sitevoice/internal/config"
)

// NewClient is a factory function that creates an LLMClient based on the configuration.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case config.ProviderGroq:
		return NewGroqClient(cfg, logger)
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s]",
			cfg.Provider, config.ProviderGroq, config.ProviderGemini)
	}
}
