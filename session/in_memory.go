package session

import (
	"fmt"
	"sync"

	"github.com/hupe1980/freeagent/core"
)

// ErrNotFound is returned when no session exists for the given id.
var ErrNotFound = fmt.Errorf("session not found")

// InMemoryStore is a volatile SessionStore implementation storing live
// session aggregates in a process local map. The aggregates themselves are
// mutex-guarded, so the store hands out pointers rather than copies; callers
// wanting an immutable projection use Session.View(). Best suited for tests
// and single-process deployments.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
	order    []string
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.Session)}
}

// Put stores (or overwrites) the session aggregate under its id.
func (s *InMemoryStore) Put(session *core.Session) error {
	if session == nil {
		return fmt.Errorf("nil session")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID()]; !exists {
		s.order = append(s.order, session.ID())
	}
	s.sessions[session.ID()] = session
	return nil
}

// Get returns the live session aggregate or ErrNotFound.
func (s *InMemoryStore) Get(id string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return session, nil
}

// Delete removes the session if present or returns ErrNotFound.
func (s *InMemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.sessions, id)
	for i, sid := range s.order {
		if sid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns the stored session ids in insertion order.
func (s *InMemoryStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
