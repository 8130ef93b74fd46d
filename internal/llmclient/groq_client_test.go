package llmclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/sitevoice/api/schemas"
)

const okCompletion = `{"choices":[{"message":{"role":"assistant","content":"  We build websites.  "},"finish_reason":"stop"}],"usage":{"prompt_tokens":12,"completion_tokens":4,"total_tokens":16}}`

func TestNewGroqClient(t *testing.T) {
	t.Run("requires an API key", func(t *testing.T) {
		cfg := getValidLLMConfig("http://localhost")
		cfg.APIKey = ""
		logger, _ := setupTestLogger(t)
		_, err := NewGroqClient(cfg, logger)
		assert.ErrorContains(t, err, "GROQ_API_KEY")
	})

	t.Run("warns about an unexpected key format and logs only the tail", func(t *testing.T) {
		cfg := getValidLLMConfig("http://localhost")
		cfg.APIKey = "sk-not-groq-abcdefgh"
		logger, logs := setupTestLogger(t)

		_, err := NewGroqClient(cfg, logger)
		require.NoError(t, err)

		assert.Equal(t, 1, logs.FilterMessageSnippet("gsk_ prefix").Len())
		loaded := logs.FilterMessage("API key loaded.").All()
		require.Len(t, loaded, 1)
		assert.Equal(t, "...abcdefgh", loaded[0].ContextMap()["key_tail"])
	})
}

func TestGroqClient_Generate(t *testing.T) {
	bodies := make(chan chatRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer gsk_test_key_12345678", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body chatRequest
		data, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(data, &body))
		bodies <- body
		_, _ = io.WriteString(w, okCompletion)
	}))
	defer server.Close()

	logger, _ := setupTestLogger(t)
	client, err := NewGroqClient(getValidLLMConfig(server.URL), logger)
	require.NoError(t, err)
	defer client.Close()

	reply, err := client.Generate(context.Background(), schemas.GenerationRequest{
		SystemPrompt: "You are an assistant.",
		UserPrompt:   "What do you do?",
	})

	require.NoError(t, err)
	assert.Equal(t, "We build websites.", reply)
	gotBody := <-bodies
	assert.Equal(t, "llama-3.3-70b-versatile", gotBody.Model)
	assert.Equal(t, []chatMessage{
		{Role: "system", Content: "You are an assistant."},
		{Role: "user", Content: "What do you do?"},
	}, gotBody.Messages)
	assert.InDelta(t, 0.7, gotBody.Temperature, 1e-6, "zero options fall back to configured defaults")
	assert.Equal(t, 400, gotBody.MaxTokens)
	assert.InDelta(t, 1.0, gotBody.TopP, 1e-6)
	assert.False(t, gotBody.Stream)
}

func TestGroqClient_GenerateFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   schemas.InferenceErrorKind
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"invalid key"}`, kind: schemas.InferenceNon200},
		{name: "bad json", status: http.StatusOK, body: `{"choices":`, kind: schemas.InferenceMalformedBody},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, kind: schemas.InferenceMalformedBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			cfg := getValidLLMConfig(server.URL)
			cfg.MaxRetryElapsed = 2 * time.Second
			logger, _ := setupTestLogger(t)
			client, err := NewGroqClient(cfg, logger)
			require.NoError(t, err)

			_, err = client.Generate(context.Background(), schemas.GenerationRequest{UserPrompt: "hi"})

			var ie *schemas.InferenceError
			require.True(t, errors.As(err, &ie), "got %v", err)
			assert.Equal(t, tt.kind, ie.Kind)
			if tt.kind == schemas.InferenceNon200 {
				assert.Equal(t, tt.status, ie.StatusCode)
			}
			assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "permanent failures are not retried")
		})
	}
}

func TestGroqClient_RetriesTransientStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, okCompletion)
	}))
	defer server.Close()

	cfg := getValidLLMConfig(server.URL)
	cfg.MaxRetryElapsed = 5 * time.Second
	logger, _ := setupTestLogger(t)
	client, err := NewGroqClient(cfg, logger)
	require.NoError(t, err)

	reply, err := client.Generate(context.Background(), schemas.GenerationRequest{UserPrompt: "hi"})

	require.NoError(t, err)
	assert.Equal(t, "We build websites.", reply)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestGroqClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	logger, _ := setupTestLogger(t)
	client, err := NewGroqClient(getValidLLMConfig(url), logger)
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), schemas.GenerationRequest{UserPrompt: "hi"})

	var ie *schemas.InferenceError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, schemas.InferenceTransport, ie.Kind)
}

func TestGroqClient_Ping(t *testing.T) {
	bodies := make(chan chatRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		bodies <- body
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"Connection test successful"}}]}`)
	}))
	defer server.Close()

	logger, _ := setupTestLogger(t)
	client, err := NewGroqClient(getValidLLMConfig(server.URL), logger)
	require.NoError(t, err)

	require.NoError(t, client.Ping(context.Background()))
	gotBody := <-bodies
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, ProbeMessage, gotBody.Messages[0].Content)
	assert.Equal(t, 20, gotBody.MaxTokens)
	assert.InDelta(t, 0.1, gotBody.Temperature, 1e-6)
}

func TestGroqClient_PingFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	logger, _ := setupTestLogger(t)
	client, err := NewGroqClient(getValidLLMConfig(server.URL), logger)
	require.NoError(t, err)

	err = client.Ping(context.Background())
	var ie *schemas.InferenceError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, http.StatusForbidden, ie.StatusCode)
}
