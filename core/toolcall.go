package core

import "time"

// ToolCallStatus is the lifecycle of one dispatched call.
type ToolCallStatus string

const (
	// ToolCallPending means the call was dispatched and has not reported.
	ToolCallPending ToolCallStatus = "pending"
	// ToolCallCompleted means the call succeeded.
	ToolCallCompleted ToolCallStatus = "completed"
	// ToolCallError means the call failed; Error carries the detail.
	ToolCallError ToolCallStatus = "error"
)

// ToolCall is the audit record for a single dispatched tool invocation.
// One record exists per call; it is immutable after completion.
type ToolCall struct {
	ID        string         `json:"id"`
	Tool      string         `json:"tool"`
	Params    map[string]any `json:"params,omitempty"`
	Status    ToolCallStatus `json:"status"`
	Result    any            `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Iteration int            `json:"iteration"`
	Cached    bool           `json:"cached,omitempty"`
	Duration  time.Duration  `json:"duration,omitempty"`
}

// RawIterationData captures one iteration's reasoning input and output for
// audit and debugging. It is never consumed as control input.
type RawIterationData struct {
	Iteration      int        `json:"iteration"`
	Timestamp      time.Time  `json:"timestamp"`
	Instructions   string     `json:"instructions"`
	BlackboardSize int        `json:"blackboard_size"`
	ScratchpadSize int        `json:"scratchpad_size"`
	AttributeCount int        `json:"attribute_count"`
	IterationsLeft int        `json:"iterations_left"`
	RawDecision    string     `json:"raw_decision,omitempty"`
	ParseError     string     `json:"parse_error,omitempty"`
	ToolCalls      []ToolCall `json:"tool_calls,omitempty"`
}
