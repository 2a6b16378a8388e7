package agent

import (
	"context"
	"sync"
)

// MockInvoker replays scripted outputs and records every prompt it was
// given. When the script runs out, the last output repeats.
type MockInvoker struct {
	mu      sync.Mutex
	Outputs []string
	Err     error
	Calls   []Request
}

func (m *MockInvoker) Name() string { return "mock" }

func (m *MockInvoker) Invoke(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Outputs) == 0 {
		return "", nil
	}
	idx := len(m.Calls) - 1
	if idx >= len(m.Outputs) {
		idx = len(m.Outputs) - 1
	}
	return m.Outputs[idx], nil
}
