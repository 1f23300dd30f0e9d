package llm

import (
	"context"
	"sync"
)

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	mu       sync.Mutex
	Response string
	Err      error
	Last     []Message
}

func (m *MockClient) Generate(_ context.Context, messages []Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Last = append([]Message(nil), messages...)
	return m.Response, m.Err
}
