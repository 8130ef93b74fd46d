// File: api/schemas/llm.go
package schemas

import (
	"context"
	"fmt"
)

// GenerationOptions tune a single completion. Zero values defer to the
// client's configured defaults.
type GenerationOptions struct {
	Temperature float32 `json:"temperature"`
	TopP        float32 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

// GenerationRequest is one system+user exchange with the model.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"`
	UserPrompt   string            `json:"user_prompt"`
	Options      GenerationOptions `json:"options"`
}

// LLMClient is the inference boundary used by the turn orchestrator.
type LLMClient interface {
	// Generate returns the assistant reply text for the request.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// Ping performs a minimal completion to check credentials and reachability.
	Ping(ctx context.Context) error
	Close() error
}

// InferenceErrorKind classifies why a completion could not be obtained.
type InferenceErrorKind string

const (
	InferenceTransport     InferenceErrorKind = "transport_error"
	InferenceNon200        InferenceErrorKind = "non_200_status"
	InferenceMalformedBody InferenceErrorKind = "malformed_body"
)

// InferenceError is the typed failure returned by LLMClient implementations.
type InferenceError struct {
	Kind       InferenceErrorKind
	StatusCode int // Set for InferenceNon200.
	Err        error
}

func (e *InferenceError) Error() string {
	if e.Kind == InferenceNon200 {
		return fmt.Sprintf("inference %s (%d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("inference %s: %v", e.Kind, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }
