package core

import (
	"fmt"
	"sort"
)

// InstructionSection is one addressable block of the agent's operating
// configuration. Sections are assembled in Order into the effective
// instructions sent to the reasoning collaborator.
type InstructionSection struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Enabled bool   `json:"enabled"`
	Order   int    `json:"order"`
}

// SelfEditOp enumerates the runtime edits write_self may request.
type SelfEditOp string

const (
	// SelfEditSetContent overrides a section's content.
	SelfEditSetContent SelfEditOp = "set_content"
	// SelfEditEnable enables a section.
	SelfEditEnable SelfEditOp = "enable"
	// SelfEditDisable disables a section.
	SelfEditDisable SelfEditOp = "disable"
	// SelfEditReorder moves a section to a new order position.
	SelfEditReorder SelfEditOp = "reorder"
)

// Valid reports whether op is a known self-edit operation.
func (op SelfEditOp) Valid() bool {
	switch op {
	case SelfEditSetContent, SelfEditEnable, SelfEditDisable, SelfEditReorder:
		return true
	default:
		return false
	}
}

// SelfEdit is one validated, queued edit to the instruction sections. Edits
// take effect at the next iteration boundary, never mid-iteration.
type SelfEdit struct {
	Op      SelfEditOp `json:"op"`
	Section string     `json:"section"`
	Content string     `json:"content,omitempty"`
	Order   int        `json:"order,omitempty"`
}

// Validate checks the edit against the current section set.
func (e SelfEdit) Validate(sections []InstructionSection) error {
	if !e.Op.Valid() {
		return fmt.Errorf("unknown self-edit op %q", e.Op)
	}
	if e.Section == "" {
		return fmt.Errorf("self-edit requires a section id")
	}
	for _, s := range sections {
		if s.ID == e.Section {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownSection, e.Section)
}

// ApplySelfEdits returns a new section slice with all edits applied in
// order. The input slice is not mutated. Edits must already be validated;
// an edit against a vanished section is skipped rather than failing the
// batch.
func ApplySelfEdits(sections []InstructionSection, edits []SelfEdit) []InstructionSection {
	out := make([]InstructionSection, len(sections))
	copy(out, sections)

	index := func(id string) int {
		for i := range out {
			if out[i].ID == id {
				return i
			}
		}
		return -1
	}

	for _, e := range edits {
		i := index(e.Section)
		if i < 0 {
			continue
		}
		switch e.Op {
		case SelfEditSetContent:
			out[i].Content = e.Content
		case SelfEditEnable:
			out[i].Enabled = true
		case SelfEditDisable:
			out[i].Enabled = false
		case SelfEditReorder:
			out[i].Order = e.Order
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
