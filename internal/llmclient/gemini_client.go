// internal/llmclient/gemini_client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/xkilldash9x/sitevoice/api/schemas"
	"github.com/xkilldash9x/sitevoice/internal/config"
)

// GeminiClient implements schemas.LLMClient on top of the Google GenAI SDK.
type GeminiClient struct {
	client  *genai.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	config  config.LLMConfig
}

var _ schemas.LLMClient = (*GeminiClient)(nil)

// NewGeminiClient initializes the client. cfg.Endpoint, when set, overrides
// the API base URL.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set %s)", cfg.Provider.KeyEnv())
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.APITimeout},
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions.BaseURL = cfg.Endpoint
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	logger = logger.Named("llm_client.gemini")
	logger.Info("API key loaded.", zap.String("key_tail", keyTail(cfg.APIKey)), zap.String("model", cfg.Model))

	return &GeminiClient{
		client:  client,
		limiter: newLimiter(cfg),
		logger:  logger,
		config:  cfg,
	}, nil
}

// Generate sends the prompts to Gemini, retrying transient failures.
func (c *GeminiClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &schemas.InferenceError{Kind: schemas.InferenceTransport, Err: err}
	}

	opts := withDefaults(req.Options, c.config)
	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(opts.Temperature),
		TopP:            genai.Ptr(opts.TopP),
		MaxOutputTokens: clampInt32(opts.MaxTokens),
	}
	if req.SystemPrompt != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	var content string
	operation := func() error {
		var opErr error
		content, opErr = c.generate(ctx, req.UserPrompt, genConfig)
		return retryable(opErr)
	}
	if err := backoff.Retry(operation, backoff.WithContext(newBackOff(c.config), ctx)); err != nil {
		return "", asInferenceError(err)
	}
	return content, nil
}

// Ping performs a tiny completion to check the key and reachability.
func (c *GeminiClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
	defer cancel()

	reply, err := c.generate(ctx, ProbeMessage, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.config.ProbeTemperature),
		MaxOutputTokens: clampInt32(c.config.ProbeMaxTokens),
	})
	if err != nil {
		c.logger.Error("Connectivity probe failed.", zap.Error(err))
		return err
	}
	c.logger.Info("Connectivity probe succeeded.", zap.String("reply", reply))
	return nil
}

// Close is a no-op; the SDK client holds no resources beyond its HTTP client.
func (c *GeminiClient) Close() error { return nil }

func (c *GeminiClient) generate(ctx context.Context, prompt string, genConfig *genai.GenerateContentConfig) (string, error) {
	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, genai.Text(prompt), genConfig)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			c.logger.Error("Gemini API returned error status", zap.Int("status", apiErr.Code), zap.String("message", apiErr.Message))
			return "", &schemas.InferenceError{Kind: schemas.InferenceNon200, StatusCode: apiErr.Code, Err: err}
		}
		c.logger.Warn("Network error during LLM request.", zap.Error(err))
		return "", &schemas.InferenceError{Kind: schemas.InferenceTransport, Err: err}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		reason := "unknown"
		if len(resp.Candidates) > 0 {
			reason = string(resp.Candidates[0].FinishReason)
		}
		return "", &schemas.InferenceError{
			Kind: schemas.InferenceMalformedBody,
			Err:  fmt.Errorf("gemini API returned no text (finish reason: %s)", reason),
		}
	}

	fields := []zap.Field{zap.Duration("duration", time.Since(start))}
	if resp.UsageMetadata != nil {
		fields = append(fields,
			zap.Int32("prompt_tokens", resp.UsageMetadata.PromptTokenCount),
			zap.Int32("completion_tokens", resp.UsageMetadata.CandidatesTokenCount),
			zap.Int32("total_tokens", resp.UsageMetadata.TotalTokenCount),
		)
	}
	c.logger.Info("LLM generation complete (Gemini)", fields...)
	return text, nil
}
