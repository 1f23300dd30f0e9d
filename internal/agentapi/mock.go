package agentapi

import (
	"context"
	"io"
	"strings"
	"sync"
)

// MockTransport devuelve un body fijo, para tests sin backend real.
type MockTransport struct {
	mu       sync.Mutex
	Body     string
	Err      error
	NilBody  bool
	Requests []StreamRequest
}

func (m *MockTransport) Stream(_ context.Context, req StreamRequest) (io.ReadCloser, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.NilBody {
		return nil, nil
	}
	return io.NopCloser(strings.NewReader(m.Body)), nil
}

// Calls devuelve cuantas veces se llamo a Stream.
func (m *MockTransport) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
