package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is a scripted Client implementation for testing. Responses are
// served in order; Calls records every request for assertions.
type MockClient struct {
	mu        sync.Mutex
	responses []string
	Calls     []MockCall
	Err       error
}

// MockCall is one recorded Complete invocation.
type MockCall struct {
	System   string
	Messages []Message
}

var _ Client = (*MockClient)(nil)

// NewMockClient creates a mock that replays the given responses.
func NewMockClient(responses ...string) *MockClient {
	return &MockClient{responses: responses}
}

// Enqueue appends further scripted responses.
func (m *MockClient) Enqueue(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
}

// Complete pops the next scripted response.
func (m *MockClient) Complete(_ context.Context, system string, msgs []Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{System: system, Messages: msgs})
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.responses) == 0 {
		return "", fmt.Errorf("mock llm: no scripted response left (call %d)", len(m.Calls))
	}
	next := m.responses[0]
	m.responses = m.responses[1:]
	return next, nil
}

// MockEmbedder returns deterministic vectors derived from text lengths.
type MockEmbedder struct{}

var _ Embedder = (*MockEmbedder)(nil)

func (MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		// Crude bag-of-runes projection, stable across calls.
		vec := make([]float32, 8)
		for j, r := range text {
			vec[j%8] += float32(r%97) / 97
		}
		vec[0] += float32(len(text)) / 100
		vectors[i] = vec
	}
	return vectors, nil
}
