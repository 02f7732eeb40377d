package core

import "time"

// FinalReport summarizes a completed session. It is built once when the
// collaborator signals completion and never updated afterwards.
type FinalReport struct {
	Summary       string            `json:"summary"`
	Iterations    int               `json:"iterations"`
	ToolCallCount int               `json:"tool_call_count"`
	ToolsUsed     []string          `json:"tools_used,omitempty"`
	Artifacts     []Artifact        `json:"artifacts,omitempty"`
	Findings      []BlackboardEntry `json:"findings,omitempty"`
	Created       time.Time         `json:"created"`
}
