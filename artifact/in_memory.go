package artifact

import (
	"sync"
	"time"

	"github.com/hupe1980/freeagent/core"
)

// InMemoryStore keeps artifact export envelopes in process memory, grouped
// by session. Envelopes are copied on save and retrieval so callers can never
// mutate stored state through shared slices. List returns metadata in export
// order with payloads stripped, mirroring what a dashboard needs to render an
// artifact index without pulling every payload.
//
// No retention limits or quotas are enforced; for anything that must survive
// a process restart use a durable implementation.
type InMemoryStore struct {
	mu      sync.RWMutex
	exports map[string]map[string]core.ExportedArtifact
	order   map[string][]string // per-session artifact ids in export order
}

// NewInMemoryStore returns an empty in-memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		exports: make(map[string]map[string]core.ExportedArtifact),
		order:   make(map[string][]string),
	}
}

// Save stores (or overwrites) the export envelope. The payload is copied and
// the export time is stamped when the caller left it zero.
func (a *InMemoryStore) Save(export core.ExportedArtifact) error {
	if export.SessionID == "" || export.ArtifactID == "" {
		return ErrMissingID
	}
	if export.Exported.IsZero() {
		export.Exported = time.Now().UTC()
	}
	export.Data = append([]byte(nil), export.Data...)

	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.exports[export.SessionID]
	if !ok {
		m = make(map[string]core.ExportedArtifact)
		a.exports[export.SessionID] = m
	}
	if _, exists := m[export.ArtifactID]; !exists {
		a.order[export.SessionID] = append(a.order[export.SessionID], export.ArtifactID)
	}
	m[export.ArtifactID] = export
	return nil
}

// Get returns a copy of the full export envelope or ErrNotFound.
func (a *InMemoryStore) Get(sessionID, artifactID string) (core.ExportedArtifact, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	export, ok := a.exports[sessionID][artifactID]
	if !ok {
		return core.ExportedArtifact{}, ErrNotFound
	}
	export.Data = append([]byte(nil), export.Data...)
	return export, nil
}

// List returns the session's export metadata in export order, payloads
// omitted.
func (a *InMemoryStore) List(sessionID string) ([]core.ExportedArtifact, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := a.order[sessionID]
	out := make([]core.ExportedArtifact, 0, len(ids))
	for _, id := range ids {
		export := a.exports[sessionID][id]
		export.Data = nil
		out = append(out, export)
	}
	return out, nil
}

// Delete removes the export if present or returns ErrNotFound.
func (a *InMemoryStore) Delete(sessionID, artifactID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.exports[sessionID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := m[artifactID]; !ok {
		return ErrNotFound
	}
	delete(m, artifactID)
	ids := a.order[sessionID]
	for i, id := range ids {
		if id == artifactID {
			a.order[sessionID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}
