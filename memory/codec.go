package memory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/freeagent/core"
)

// Export is the serializable projection of one session's working memory.
// Attribute and artifact ordering is insertion order, preserved through a
// round trip.
type Export struct {
	SessionID  string                     `json:"session_id,omitempty"`
	Exported   time.Time                  `json:"exported"`
	Blackboard []core.BlackboardEntry     `json:"blackboard"`
	Scratchpad string                     `json:"scratchpad"`
	Attributes []core.ToolResultAttribute `json:"attributes,omitempty"`
	Artifacts  []core.Artifact            `json:"artifacts,omitempty"`
}

// ExportMemory captures the full content of a memory store.
func ExportMemory(sessionID string, m *core.Memory) Export {
	return Export{
		SessionID:  sessionID,
		Exported:   time.Now().UTC(),
		Blackboard: m.Entries(),
		Scratchpad: m.Scratchpad(),
		Attributes: m.Attributes(),
		Artifacts:  m.Artifacts(),
	}
}

// Reconstruct builds a fresh memory store from an export. Entry ids and
// timestamps are preserved; attribute uniqueness is re-enforced, so a
// corrupted export with duplicate names fails rather than silently dropping
// data.
func Reconstruct(e Export) (*core.Memory, error) {
	m := core.NewMemory()
	for _, entry := range e.Blackboard {
		m.Append(entry)
	}
	if err := m.WriteScratchpad(core.ScratchpadReplace, e.Scratchpad); err != nil {
		return nil, err
	}
	for _, attr := range e.Attributes {
		if err := m.PutAttribute(attr); err != nil {
			return nil, fmt.Errorf("reconstruct attribute %q: %w", attr.Name, err)
		}
	}
	for _, a := range e.Artifacts {
		m.AddArtifact(a)
	}
	return m, nil
}

// Marshal encodes an export as indented JSON.
func Marshal(e Export) ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}

// Unmarshal decodes an export payload.
func Unmarshal(data []byte) (Export, error) {
	var e Export
	if err := json.Unmarshal(data, &e); err != nil {
		return Export{}, fmt.Errorf("decode memory export: %w", err)
	}
	return e, nil
}
