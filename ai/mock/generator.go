package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/docchat/ai"
)

// MockGenerator is a test double for ai.Generator.
// By default it streams Chunks one at a time; Err, when set, is returned
// after FailAfter chunks have been delivered.
type MockGenerator struct {
	// GenerateStreamFunc replaces the default streaming behavior if set.
	GenerateStreamFunc func(ctx context.Context, messages []ai.Message, fn ai.StreamFunc) (string, error)

	// GenerateFunc replaces the default non-streaming behavior if set.
	GenerateFunc func(ctx context.Context, messages []ai.Message) (string, error)

	// Chunks are the increments streamed by default.
	Chunks []string

	// Err is returned after FailAfter increments, if non-nil.
	Err       error
	FailAfter int

	// Summary is returned by Generate by default.
	Summary string

	mu           sync.Mutex
	callCount    int
	lastMessages []ai.Message
}

var _ ai.Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a generator that streams the given chunks.
func NewMockGenerator(chunks ...string) *MockGenerator {
	return &MockGenerator{Chunks: chunks, Summary: "summary"}
}

// GenerateStream delivers Chunks in order, honouring Err and FailAfter.
func (m *MockGenerator) GenerateStream(ctx context.Context, messages []ai.Message, fn ai.StreamFunc) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastMessages = messages
	override := m.GenerateStreamFunc
	m.mu.Unlock()

	if override != nil {
		return override(ctx, messages, fn)
	}

	var sb strings.Builder
	for i, chunk := range m.Chunks {
		if m.Err != nil && i == m.FailAfter {
			return sb.String(), m.Err
		}
		if err := ctx.Err(); err != nil {
			return sb.String(), err
		}
		if err := fn(ctx, chunk); err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk)
	}
	if m.Err != nil && m.FailAfter >= len(m.Chunks) {
		return sb.String(), m.Err
	}
	return sb.String(), nil
}

// Generate returns Summary unless GenerateFunc is set.
func (m *MockGenerator) Generate(ctx context.Context, messages []ai.Message) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastMessages = messages
	override := m.GenerateFunc
	m.mu.Unlock()

	if override != nil {
		return override(ctx, messages)
	}
	return m.Summary, nil
}

// CallCount returns the number of times any method was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastMessages returns the prompt passed to the most recent call.
func (m *MockGenerator) LastMessages() []ai.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastMessages
}

// Reset clears the call history and injected behavior.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastMessages = nil
	m.GenerateStreamFunc = nil
	m.GenerateFunc = nil
	m.Err = nil
	m.FailAfter = 0
}
