package core

// Status is the session lifecycle state.
type Status string

const (
	// StatusIdle means the session has never run or was reset/stopped.
	StatusIdle Status = "idle"
	// StatusRunning means the iteration loop is actively executing.
	StatusRunning Status = "running"
	// StatusCompleted means the collaborator declared the task done.
	StatusCompleted Status = "completed"
	// StatusError means a session-fatal condition occurred (parse retries
	// exhausted, budget exceeded, or a collaborator-declared failure).
	StatusError Status = "error"
	// StatusPaused means a recoverable parse failure suspended the loop;
	// Retry resumes it.
	StatusPaused Status = "paused"
	// StatusNeedsAssistance means the agent is blocked on a pending
	// AssistanceRequest.
	StatusNeedsAssistance Status = "needs_assistance"
	// StatusWaiting means an orchestrator session is blocked on spawned
	// children reaching their completion threshold.
	StatusWaiting Status = "waiting"
)

// Terminal reports whether the status ends the loop without outside input.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// statusEdges encodes the legal state machine transitions. Reset (any state
// to idle) is always allowed and therefore not listed per source state.
var statusEdges = map[Status][]Status{
	StatusIdle:            {StatusRunning},
	StatusRunning:         {StatusCompleted, StatusError, StatusPaused, StatusNeedsAssistance, StatusWaiting},
	StatusPaused:          {StatusRunning, StatusError},
	StatusError:           {StatusRunning},
	StatusCompleted:       {StatusRunning},
	StatusNeedsAssistance: {StatusRunning},
	StatusWaiting:         {StatusRunning, StatusError},
}

// CanTransition reports whether the edge from s to target exists. Transition
// to idle (reset/stop) is permitted from every state.
func (s Status) CanTransition(target Status) bool {
	if target == StatusIdle {
		return true
	}
	for _, t := range statusEdges[s] {
		if t == target {
			return true
		}
	}
	return false
}

// ErrorReason distinguishes session-fatal error causes from each other.
type ErrorReason string

const (
	// ReasonNone is the zero value for sessions not in error.
	ReasonNone ErrorReason = ""
	// ReasonBudgetExceeded means the iteration counter reached the maximum
	// without a completion signal.
	ReasonBudgetExceeded ErrorReason = "budget_exceeded"
	// ReasonParseRetriesExhausted means malformed reasoning responses
	// consumed the whole retry budget.
	ReasonParseRetriesExhausted ErrorReason = "parse_retries_exhausted"
	// ReasonTaskFailed means the collaborator itself declared the task
	// unachievable.
	ReasonTaskFailed ErrorReason = "task_failed"
)
