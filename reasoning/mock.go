package reasoning

import (
	"context"
	"fmt"
	"sync"
)

// Mock is a scripted Collaborator for tests and offline runs. Decisions are
// consumed in order; when the script runs out the fallback function (if any)
// takes over, otherwise a completion is declared.
type Mock struct {
	mu       sync.Mutex
	script   []*Decision
	fallback func(ctx context.Context, req Request) (*Decision, error)
	calls    []Request
}

// NewMock builds a mock that replays the given decisions.
func NewMock(script ...*Decision) *Mock {
	return &Mock{script: script}
}

// NewMockFunc builds a mock backed entirely by a function.
func NewMockFunc(fn func(ctx context.Context, req Request) (*Decision, error)) *Mock {
	return &Mock{fallback: fn}
}

// Decide implements Collaborator.
func (m *Mock) Decide(ctx context.Context, req Request) (*Decision, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	if len(m.script) > 0 {
		d := m.script[0]
		m.script = m.script[1:]
		m.mu.Unlock()
		return d, nil
	}
	fallback := m.fallback
	m.mu.Unlock()

	if fallback != nil {
		return fallback(ctx, req)
	}
	return &Decision{Complete: &Completion{Summary: fmt.Sprintf("done after %d iterations", req.Iteration)}}, nil
}

// Calls returns a copy of the requests seen so far.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Decide invocations.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
