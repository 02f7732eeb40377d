package core

import "fmt"

// ChildSpec describes one child session requested by a spawn call.
type ChildSpec struct {
	Name          string `json:"name"`
	Task          string `json:"task"`
	MaxIterations int    `json:"max_iterations,omitempty"`
}

// SpawnSpec is the validated payload of a spawn tool call. The parent
// suspends in waiting until CompletionThreshold children reach a terminal
// state (zero means all of them).
type SpawnSpec struct {
	Children            []ChildSpec `json:"children"`
	CompletionThreshold int         `json:"completion_threshold,omitempty"`
}

// Validate checks the spec against the configured child limit: at least one
// child, at most maxChildren, names non-empty and unique within the request,
// threshold within [0, len(children)].
func (s SpawnSpec) Validate(maxChildren int) error {
	if len(s.Children) == 0 {
		return fmt.Errorf("spawn requires at least one child")
	}
	if maxChildren > 0 && len(s.Children) > maxChildren {
		return fmt.Errorf("spawn exceeds maximum of %d children", maxChildren)
	}
	seen := make(map[string]struct{}, len(s.Children))
	for i, c := range s.Children {
		if c.Name == "" {
			return fmt.Errorf("child %d has an empty name", i)
		}
		if c.Task == "" {
			return fmt.Errorf("child %q has an empty task", c.Name)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("duplicate child name %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	if s.CompletionThreshold < 0 || s.CompletionThreshold > len(s.Children) {
		return fmt.Errorf("completion threshold %d out of range [0,%d]", s.CompletionThreshold, len(s.Children))
	}
	return nil
}

// EffectiveThreshold resolves the default (all children) threshold.
func (s SpawnSpec) EffectiveThreshold() int {
	if s.CompletionThreshold == 0 {
		return len(s.Children)
	}
	return s.CompletionThreshold
}

// Role marks a session's position in an orchestration tree.
type Role string

const (
	// RoleStandalone is a session without children or parent.
	RoleStandalone Role = "standalone"
	// RoleOrchestrator is a session that has spawned children.
	RoleOrchestrator Role = "orchestrator"
	// RoleChild is a spawned session owned by a parent.
	RoleChild Role = "child"
)

// Orchestration is the per-session orchestration block. Children are
// referenced by id; the aggregates themselves live in the session store so
// parent and children stay isolated until explicit reconciliation.
type Orchestration struct {
	Role                Role     `json:"role"`
	ParentID            string   `json:"parent_id,omitempty"`
	ChildIDs            []string `json:"child_ids,omitempty"`
	CompletionThreshold int      `json:"completion_threshold,omitempty"`
	// Name and Task are set on child sessions only; Name is unique within
	// the parent.
	Name string `json:"name,omitempty"`
	Task string `json:"task,omitempty"`
}
