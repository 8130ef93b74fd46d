// internal/llmclient/groq_client.go
package llmclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/sitevoice/api/schemas"
	"github.com/xkilldash9x/sitevoice/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ProbeMessage is the user message sent by Ping.
const ProbeMessage = "Hello, can you respond with just 'Connection test successful'?"

// maxResponseBody caps how much of a completion response is read.
const maxResponseBody = 1 << 20

// GroqClient implements schemas.LLMClient against Groq's OpenAI-compatible
// chat completions endpoint.
type GroqClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	config     config.LLMConfig
}

var _ schemas.LLMClient = (*GroqClient)(nil)

// -- Chat Completions Request/Response Structures --

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float32       `json:"top_p"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewGroqClient initializes the client. The key tail is logged so operators
// can tell which credential is in use.
func NewGroqClient(cfg config.LLMConfig, logger *zap.Logger) (*GroqClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Groq API key is required (set %s)", cfg.Provider.KeyEnv())
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("Groq endpoint is required")
	}

	logger = logger.Named("llm_client.groq")
	if !strings.HasPrefix(cfg.APIKey, "gsk_") {
		logger.Warn("API key does not look like a Groq key; expected the gsk_ prefix.")
	}
	logger.Info("API key loaded.", zap.String("key_tail", keyTail(cfg.APIKey)), zap.String("model", cfg.Model))

	return &GroqClient{
		apiKey:     cfg.APIKey,
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: cfg.APITimeout},
		limiter:    newLimiter(cfg),
		logger:     logger,
		config:     cfg,
	}, nil
}

// Generate sends the prompts to Groq and returns the first choice's content,
// retrying transient failures.
func (c *GroqClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	body, err := json.Marshal(c.buildRequestPayload(req))
	if err != nil {
		return "", &schemas.InferenceError{Kind: schemas.InferenceMalformedBody, Err: fmt.Errorf("marshaling request: %w", err)}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", &schemas.InferenceError{Kind: schemas.InferenceTransport, Err: err}
	}

	var content string
	operation := func() error {
		var opErr error
		content, opErr = c.do(ctx, body)
		return retryable(opErr)
	}

	if err := backoff.Retry(operation, backoff.WithContext(newBackOff(c.config), ctx)); err != nil {
		return "", asInferenceError(err)
	}
	return content, nil
}

// Ping performs a tiny completion to check the key and reachability.
func (c *GroqClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:       c.config.Model,
		Messages:    []chatMessage{{Role: "user", Content: ProbeMessage}},
		Temperature: c.config.ProbeTemperature,
		MaxTokens:   c.config.ProbeMaxTokens,
		TopP:        c.config.TopP,
	})
	if err != nil {
		return err
	}
	reply, err := c.do(ctx, body)
	if err != nil {
		c.logger.Error("Connectivity probe failed.", zap.Error(err))
		return err
	}
	c.logger.Info("Connectivity probe succeeded.", zap.String("reply", reply))
	return nil
}

func (c *GroqClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// do performs one request and classifies any failure as an InferenceError.
func (c *GroqClient) do(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &schemas.InferenceError{Kind: schemas.InferenceTransport, Err: fmt.Errorf("creating request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("Network error during LLM request.", zap.Error(err))
		return "", &schemas.InferenceError{Kind: schemas.InferenceTransport, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", &schemas.InferenceError{Kind: schemas.InferenceTransport, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Groq API returned error status", zap.Int("status", resp.StatusCode), zap.String("response", truncateBody(respBody)))
		return "", &schemas.InferenceError{
			Kind:       schemas.InferenceNon200,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("groq API error: %s", truncateBody(respBody)),
		}
	}

	var payload chatResponse
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return "", &schemas.InferenceError{Kind: schemas.InferenceMalformedBody, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if len(payload.Choices) == 0 {
		return "", &schemas.InferenceError{Kind: schemas.InferenceMalformedBody, Err: errors.New("response has no choices")}
	}

	c.logger.Info("LLM generation complete (Groq)",
		zap.Duration("duration", time.Since(start)),
		zap.Int("prompt_tokens", payload.Usage.PromptTokens),
		zap.Int("completion_tokens", payload.Usage.CompletionTokens),
		zap.Int("total_tokens", payload.Usage.TotalTokens),
	)
	return strings.TrimSpace(payload.Choices[0].Message.Content), nil
}

func (c *GroqClient) buildRequestPayload(req schemas.GenerationRequest) chatRequest {
	opts := withDefaults(req.Options, c.config)
	return chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		TopP:        opts.TopP,
		Stream:      false,
	}
}

func keyTail(key string) string {
	if len(key) <= 8 {
		return "..."
	}
	return "..." + key[len(key)-8:]
}

func truncateBody(b []byte) string {
	const limit = 512
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
