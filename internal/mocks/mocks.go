// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/sitevoice/api/schemas"
)

// -- LLM Client Mock --

// MockLLMClient mocks the schemas.LLMClient interface.
type MockLLMClient struct {
	mock.Mock
}

var _ schemas.LLMClient = (*MockLLMClient)(nil)

// Generate provides a mock function for LLM calls.
func (m *MockLLMClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockLLMClient) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockLLMClient) Close() error {
	return m.Called().Error(0)
}

// -- Speech Mocks --

// MockListener mocks schemas.Listener.
type MockListener struct {
	mock.Mock
}

var _ schemas.Listener = (*MockListener)(nil)

func (m *MockListener) Listen(ctx context.Context, timeout, phraseLimit time.Duration) (schemas.Audio, error) {
	args := m.Called(ctx, timeout, phraseLimit)
	return args.Get(0).(schemas.Audio), args.Error(1)
}

// MockTranscriber mocks schemas.Transcriber.
type MockTranscriber struct {
	mock.Mock
}

var _ schemas.Transcriber = (*MockTranscriber)(nil)

func (m *MockTranscriber) Transcribe(ctx context.Context, audio schemas.Audio) (string, error) {
	args := m.Called(ctx, audio)
	return args.String(0), args.Error(1)
}

// RecordingSpeaker is a schemas.Speaker that remembers everything it was asked
// to say. It is safe for concurrent use.
type RecordingSpeaker struct {
	mu     sync.Mutex
	spoken []string
	Err    error
}

var _ schemas.Speaker = (*RecordingSpeaker)(nil)

func (s *RecordingSpeaker) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	return s.Err
}

// Spoken returns a copy of everything spoken so far.
func (s *RecordingSpeaker) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}
