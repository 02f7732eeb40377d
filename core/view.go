package core

import "time"

// SessionView is the read-only projection handed to presentation layers and
// subscribers. Every slice and pointer is a copy; mutating a view never
// touches the aggregate, and a view always reflects last-committed state,
// never a half-updated one.
type SessionView struct {
	ID            string               `json:"id"`
	Status        Status               `json:"status"`
	ErrorReason   ErrorReason          `json:"error_reason,omitempty"`
	ErrorDetail   string               `json:"error_detail,omitempty"`
	Iteration     int                  `json:"iteration"`
	MaxIterations int                  `json:"max_iterations"`
	Model         string               `json:"model,omitempty"`
	Prompt        string               `json:"prompt"`
	RetryCount    int                  `json:"retry_count"`
	Blackboard    []BlackboardEntry    `json:"blackboard"`
	Scratchpad    string               `json:"scratchpad"`
	Attributes    []AttributeInfo      `json:"attributes,omitempty"`
	Artifacts     []Artifact           `json:"artifacts,omitempty"`
	ToolCalls     []ToolCall           `json:"tool_calls,omitempty"`
	Assistance    *AssistanceRequest   `json:"assistance,omitempty"`
	Report        *FinalReport         `json:"report,omitempty"`
	Orchestration Orchestration        `json:"orchestration"`
	SelfAuthoring bool                 `json:"self_authoring"`
	Sections      []InstructionSection `json:"sections,omitempty"`
	Created       time.Time            `json:"created"`
	Updated       time.Time            `json:"updated"`
}

// View assembles the current read-only projection.
func (s *Session) View() SessionView {
	s.mu.RLock()
	v := SessionView{
		ID:            s.id,
		Status:        s.status,
		ErrorReason:   s.errorReason,
		ErrorDetail:   s.errorDetail,
		Iteration:     s.iteration,
		MaxIterations: s.maxIterations,
		Model:         s.model,
		Prompt:        s.prompt,
		RetryCount:    s.retryCount,
		SelfAuthoring: s.selfAuthoring,
		Created:       s.created,
		Updated:       s.updated,
	}
	if s.orchestration.Role == RoleChild && s.orchestration.Task != "" {
		v.Prompt = s.orchestration.Task
	}
	if s.assistance != nil {
		req := *s.assistance
		v.Assistance = &req
	}
	if s.report != nil {
		rep := *s.report
		v.Report = &rep
	}
	v.Orchestration = s.orchestration
	v.Orchestration.ChildIDs = append([]string(nil), s.orchestration.ChildIDs...)
	v.ToolCalls = append([]ToolCall(nil), s.toolCalls...)
	v.Sections = append([]InstructionSection(nil), s.sections...)
	s.mu.RUnlock()

	v.Blackboard = s.memory.Entries()
	v.Scratchpad = s.memory.Scratchpad()
	v.Attributes = s.memory.AttributeIndex()
	v.Artifacts = s.memory.Artifacts()
	return v
}
