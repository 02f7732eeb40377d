package core

import (
	"fmt"
	"sync"
)

// ScratchpadMode selects how a scratchpad write is applied.
type ScratchpadMode string

const (
	// ScratchpadAppend appends to the current scratchpad content.
	ScratchpadAppend ScratchpadMode = "append"
	// ScratchpadReplace replaces the scratchpad content wholesale.
	ScratchpadReplace ScratchpadMode = "replace"
)

// Memory holds the four working-memory collections for one session (or one
// child). It is safe for concurrent access.
//
// Contract:
//   - The blackboard is append-only; Entries returns defensive copies.
//   - The scratchpad is a single mutable string written via WriteScratchpad.
//   - Attribute names are unique; attributes are immutable once stored.
//   - Artifacts are append-only once created.
//   - Clone performs a deep copy for spawn snapshot isolation.
type Memory struct {
	mu         sync.RWMutex
	blackboard []BlackboardEntry
	scratchpad string
	attrs      map[string]ToolResultAttribute
	attrOrder  []string
	artifacts  []Artifact
}

// NewMemory creates an empty memory store.
func NewMemory() *Memory {
	return &Memory{attrs: make(map[string]ToolResultAttribute)}
}

// Append adds an entry to the blackboard and returns it. Entries without an
// id are stamped; existing ids (imports, reconstruction) are preserved.
func (m *Memory) Append(e BlackboardEntry) BlackboardEntry {
	if e.ID == "" {
		e = NewBlackboardEntry(e.Iteration, e.Category, e.Content)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blackboard = append(m.blackboard, e)
	return e
}

// Entries returns a defensive copy of the full blackboard.
func (m *Memory) Entries() []BlackboardEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]BlackboardEntry, len(m.blackboard))
	copy(out, m.blackboard)
	return out
}

// EntryCount returns the blackboard length.
func (m *Memory) EntryCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blackboard)
}

// Tail returns a copy of the last n blackboard entries (all of them when n
// is zero or exceeds the length).
func (m *Memory) Tail(n int) []BlackboardEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 || n > len(m.blackboard) {
		n = len(m.blackboard)
	}
	out := make([]BlackboardEntry, n)
	copy(out, m.blackboard[len(m.blackboard)-n:])
	return out
}

// Scratchpad returns the current scratchpad content.
func (m *Memory) Scratchpad() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scratchpad
}

// WriteScratchpad applies a write in the given mode.
func (m *Memory) WriteScratchpad(mode ScratchpadMode, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch mode {
	case ScratchpadAppend:
		if m.scratchpad != "" && text != "" {
			m.scratchpad += "\n"
		}
		m.scratchpad += text
	case ScratchpadReplace:
		m.scratchpad = text
	default:
		return fmt.Errorf("unknown scratchpad mode %q", mode)
	}
	return nil
}

// PutAttribute stores a tool result attribute. The name must be unused;
// attributes are never overwritten in place.
func (m *Memory) PutAttribute(a ToolResultAttribute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.attrs[a.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAttributeExists, a.Name)
	}
	if a.ID == "" {
		a.ID = NewID()
	}
	m.attrs[a.Name] = a
	m.attrOrder = append(m.attrOrder, a.Name)
	return nil
}

// Attribute returns the named attribute including its payload.
func (m *Memory) Attribute(name string) (ToolResultAttribute, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attrs[name]
	if !ok {
		return ToolResultAttribute{}, fmt.Errorf("%w: %s", ErrAttributeNotFound, name)
	}
	return a, nil
}

// HasAttribute reports whether the name is taken.
func (m *Memory) HasAttribute(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.attrs[name]
	return ok
}

// AttributeCount returns the number of stored attributes.
func (m *Memory) AttributeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.attrOrder)
}

// AttributeIndex returns metadata for all attributes in insertion order.
// The payloads are deliberately absent; use Attribute for full reads.
func (m *Memory) AttributeIndex() []AttributeInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AttributeInfo, 0, len(m.attrOrder))
	for _, name := range m.attrOrder {
		out = append(out, m.attrs[name].Info())
	}
	return out
}

// Attributes returns full attributes in insertion order. Intended for
// export/reconstruction, not for reasoning input.
func (m *Memory) Attributes() []ToolResultAttribute {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ToolResultAttribute, 0, len(m.attrOrder))
	for _, name := range m.attrOrder {
		out = append(out, m.attrs[name])
	}
	return out
}

// AddArtifact stores a durable output and returns it (stamped when needed).
func (m *Memory) AddArtifact(a Artifact) Artifact {
	if a.ID == "" {
		a = NewArtifact(a.Iteration, a.Type, a.Title, a.Content)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts = append(m.artifacts, a)
	return a
}

// Artifacts returns a defensive copy of the artifact list.
func (m *Memory) Artifacts() []Artifact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Artifact, len(m.artifacts))
	copy(out, m.artifacts)
	return out
}

// Artifact returns the artifact with the given id or title.
func (m *Memory) Artifact(ref string) (Artifact, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.artifacts {
		if a.ID == ref || a.Title == ref {
			return a, true
		}
	}
	return Artifact{}, false
}

// Clone returns a deep copy safe for independent mutation. Used at spawn
// time so parent and children never observe each other's writes.
func (m *Memory) Clone() *Memory {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := &Memory{
		blackboard: make([]BlackboardEntry, len(m.blackboard)),
		scratchpad: m.scratchpad,
		attrs:      make(map[string]ToolResultAttribute, len(m.attrs)),
		attrOrder:  make([]string, len(m.attrOrder)),
		artifacts:  make([]Artifact, len(m.artifacts)),
	}
	copy(c.blackboard, m.blackboard)
	copy(c.attrOrder, m.attrOrder)
	copy(c.artifacts, m.artifacts)
	for k, v := range m.attrs {
		c.attrs[k] = v
	}
	return c
}

// MemorySnapshot is the bounded projection of memory sent to the reasoning
// collaborator. Attribute payloads never appear here, only their metadata
// index, keeping snapshot size independent of accumulated tool output.
type MemorySnapshot struct {
	Blackboard     []BlackboardEntry `json:"blackboard"`
	TotalEntries   int               `json:"total_entries"`
	Scratchpad     string            `json:"scratchpad"`
	Attributes     []AttributeInfo   `json:"attributes,omitempty"`
	ArtifactTitles []string          `json:"artifact_titles,omitempty"`
}

// Snapshot assembles the reasoning projection with at most tail blackboard
// entries.
func (m *Memory) Snapshot(tail int) MemorySnapshot {
	m.mu.RLock()
	total := len(m.blackboard)
	m.mu.RUnlock()

	snap := MemorySnapshot{
		Blackboard:   m.Tail(tail),
		TotalEntries: total,
		Scratchpad:   m.Scratchpad(),
		Attributes:   m.AttributeIndex(),
	}
	for _, a := range m.Artifacts() {
		snap.ArtifactTitles = append(snap.ArtifactTitles, a.Title)
	}
	return snap
}
