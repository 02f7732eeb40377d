package reasoning

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/freeagent/core"
)

// ToolDefinition is the provider-neutral declaration of a dispatchable tool.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request carries everything the collaborator needs to decide one iteration:
// the effective instructions, the session prompt, a bounded memory snapshot
// and the available tool declarations. It never carries attribute payloads.
type Request struct {
	Model          string
	Instructions   string
	Prompt         string
	Snapshot       core.MemorySnapshot
	Iteration      int
	IterationsLeft int
	Tools          []ToolDefinition
}

// ToolCallRequest is one tool invocation named by a decision.
type ToolCallRequest struct {
	ID     string         `json:"id,omitempty"`
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// Completion is the declared task-success signal.
type Completion struct {
	Summary string `json:"summary"`
}

// Failure is the declared task-failure signal, distinct from a parse error.
type Failure struct {
	Reason string `json:"reason"`
}

// Decision is the collaborator's answer for one iteration. At least one of
// ToolCalls, Complete or Failed must be present.
type Decision struct {
	Narrative string            `json:"narrative,omitempty"`
	ToolCalls []ToolCallRequest `json:"tool_calls,omitempty"`
	Complete  *Completion       `json:"complete,omitempty"`
	Failed    *Failure          `json:"failed,omitempty"`
}

// Empty reports whether the decision names no action at all.
func (d *Decision) Empty() bool {
	return len(d.ToolCalls) == 0 && d.Complete == nil && d.Failed == nil
}

// Collaborator is the reasoning boundary. Implementations must be safe for
// concurrent use; the engine invokes Decide once per iteration per session.
type Collaborator interface {
	Decide(ctx context.Context, req Request) (*Decision, error)
}

// RenderContext builds the iteration context message shown to the
// collaborator: task, budget position and the bounded memory snapshot.
// Attribute payloads never appear here, only their metadata.
func RenderContext(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Task:\n%s\n\n", req.Prompt)
	fmt.Fprintf(&b, "Iteration %d (%d remaining).\n\n", req.Iteration, req.IterationsLeft)

	if req.Snapshot.Scratchpad != "" {
		fmt.Fprintf(&b, "Scratchpad:\n%s\n\n", req.Snapshot.Scratchpad)
	}

	if len(req.Snapshot.Blackboard) > 0 {
		if req.Snapshot.TotalEntries > len(req.Snapshot.Blackboard) {
			fmt.Fprintf(&b, "Blackboard (last %d of %d entries):\n", len(req.Snapshot.Blackboard), req.Snapshot.TotalEntries)
		} else {
			b.WriteString("Blackboard:\n")
		}
		for _, e := range req.Snapshot.Blackboard {
			fmt.Fprintf(&b, "- [%d/%s] %s\n", e.Iteration, e.Category, e.Content)
		}
		b.WriteString("\n")
	}

	if len(req.Snapshot.Attributes) > 0 {
		b.WriteString("Stored attributes (reference by {{name}}, fetch via get_attributes):\n")
		for _, a := range req.Snapshot.Attributes {
			fmt.Fprintf(&b, "- %s\n", a.String())
		}
		b.WriteString("\n")
	}

	if len(req.Snapshot.ArtifactTitles) > 0 {
		fmt.Fprintf(&b, "Artifacts produced: %s\n", strings.Join(req.Snapshot.ArtifactTitles, ", "))
	}

	return b.String()
}
