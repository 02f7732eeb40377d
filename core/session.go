package core

import (
	"fmt"
	"sync"
	"time"
)

// InputFile is an uploaded session input made readable to the agent via the
// read_prompt / read_file tools.
type InputFile struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Content  []byte `json:"content"`
}

// Session is the root aggregate driven by the iteration loop. It is mutated
// only through defined transitions and accessors, never directly by
// presentation code; presentation reads immutable Views.
//
// Concurrency: one active iteration loop owns the write path; the internal
// mutex exists so control-plane operations (interject, assistance
// resolution) and View reads observe consistent state at any time.
type Session struct {
	mu sync.RWMutex

	id            string
	status        Status
	errorReason   ErrorReason
	errorDetail   string
	iteration     int
	maxIterations int
	model         string
	prompt        string
	files         []InputFile

	memory *Memory

	retryCount    int
	assistance    *AssistanceRequest
	report        *FinalReport
	orchestration Orchestration

	toolCalls  []ToolCall
	iterations []RawIterationData

	selfAuthoring bool
	sections      []InstructionSection
	pendingEdits  []SelfEdit
	pendingSpawn  *SpawnSpec

	created time.Time
	updated time.Time
}

// SessionOptions configures session construction.
type SessionOptions struct {
	ID            string
	Model         string
	Prompt        string
	Files         []InputFile
	MaxIterations int
	SelfAuthoring bool
	Sections      []InstructionSection
	Role          Role
	ParentID      string
	Name          string
	Task          string
	Memory        *Memory // seeded snapshot for child sessions
}

// NewSession constructs a session with the given options. Defaults: fresh
// uuid id, standalone role, empty memory, max 10 iterations.
func NewSession(optFns ...func(o *SessionOptions)) *Session {
	opts := SessionOptions{MaxIterations: 10, Role: RoleStandalone}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.ID == "" {
		opts.ID = NewID()
	}
	mem := opts.Memory
	if mem == nil {
		mem = NewMemory()
	}
	now := time.Now().UTC()
	return &Session{
		id:            opts.ID,
		status:        StatusIdle,
		maxIterations: opts.MaxIterations,
		model:         opts.Model,
		prompt:        opts.Prompt,
		files:         append([]InputFile(nil), opts.Files...),
		memory:        mem,
		selfAuthoring: opts.SelfAuthoring,
		sections:      append([]InstructionSection(nil), opts.Sections...),
		orchestration: Orchestration{
			Role:     opts.Role,
			ParentID: opts.ParentID,
			Name:     opts.Name,
			Task:     opts.Task,
		},
		created: now,
		updated: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Memory returns the session's memory store.
func (s *Session) Memory() *Memory { return s.memory }

// Status returns the current lifecycle status.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Transition moves the session to target, validating the state machine
// edge. Transitions to error should go through Fail to carry a reason.
func (s *Session) Transition(target Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.CanTransition(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.status, target)
	}
	s.status = target
	s.updated = time.Now().UTC()
	return nil
}

// TransitionFrom moves the session to target only when it is still in from.
// It lets concurrent control paths (spawn resume vs operator stop) settle a
// transition race atomically instead of observing status and acting on it
// later.
func (s *Session) TransitionFrom(from, target Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != from {
		return fmt.Errorf("%w: %s -> %s, session is %s", ErrInvalidTransition, from, target, s.status)
	}
	if !s.status.CanTransition(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.status, target)
	}
	s.status = target
	s.updated = time.Now().UTC()
	return nil
}

// Fail transitions to error recording the reason and detail.
func (s *Session) Fail(reason ErrorReason, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.CanTransition(StatusError) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.status, StatusError)
	}
	s.status = StatusError
	s.errorReason = reason
	s.errorDetail = detail
	s.updated = time.Now().UTC()
	return nil
}

// ErrorState returns the recorded failure reason and detail.
func (s *Session) ErrorState() (ErrorReason, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errorReason, s.errorDetail
}

// ClearError resets the failure fields (used by retry/continue).
func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorReason = ReasonNone
	s.errorDetail = ""
}

// Iteration returns the current iteration counter.
func (s *Session) Iteration() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.iteration
}

// MaxIterations returns the iteration budget.
func (s *Session) MaxIterations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxIterations
}

// ExtendBudget grants additional iterations (continue command).
func (s *Session) ExtendBudget(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxIterations += n
	s.updated = time.Now().UTC()
}

// AdvanceIteration commits the iteration's audit record and increments the
// counter. The loop is the only caller.
func (s *Session) AdvanceIteration(raw RawIterationData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iterations = append(s.iterations, raw)
	s.iteration++
	s.updated = time.Now().UTC()
}

// RecordIteration appends an audit record without advancing the counter
// (parse failures, re-run iterations).
func (s *Session) RecordIteration(raw RawIterationData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iterations = append(s.iterations, raw)
	s.updated = time.Now().UTC()
}

// RetryCount returns the parse retry counter.
func (s *Session) RetryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retryCount
}

// IncrementRetry bumps the parse retry counter and returns the new value.
func (s *Session) IncrementRetry() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryCount++
	return s.retryCount
}

// ResetRetry clears the parse retry counter (successful parse, manual retry).
func (s *Session) ResetRetry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryCount = 0
}

// Model returns the model selector.
func (s *Session) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// Prompt returns the session prompt text. Child sessions run their task
// description as prompt.
func (s *Session) Prompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.orchestration.Role == RoleChild && s.orchestration.Task != "" {
		return s.orchestration.Task
	}
	return s.prompt
}

// Files returns a defensive copy of the uploaded input files.
func (s *Session) Files() []InputFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]InputFile, len(s.files))
	copy(out, s.files)
	return out
}

// File returns the named input file.
func (s *Session) File(name string) (InputFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.files {
		if f.Name == name {
			return f, nil
		}
	}
	return InputFile{}, fmt.Errorf("%w: %s", ErrFileNotFound, name)
}

// SetAssistance installs the pending assistance request. Exactly one may be
// outstanding; a second request fails with ErrAssistancePending.
func (s *Session) SetAssistance(req AssistanceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assistance != nil {
		return ErrAssistancePending
	}
	r := req
	s.assistance = &r
	s.updated = time.Now().UTC()
	return nil
}

// Assistance returns a copy of the pending request, if any.
func (s *Session) Assistance() (AssistanceRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.assistance == nil {
		return AssistanceRequest{}, false
	}
	return *s.assistance, true
}

// ResolveAssistance clears the pending request if the id matches. A
// mismatching or absent id fails with ErrAssistanceMismatch and leaves the
// session untouched.
func (s *Session) ResolveAssistance(requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assistance == nil || s.assistance.ID != requestID {
		return ErrAssistanceMismatch
	}
	s.assistance = nil
	s.updated = time.Now().UTC()
	return nil
}

// SetPendingSpawn installs the iteration's spawn request. A second spawn in
// the same iteration fails with ErrSpawnPending.
func (s *Session) SetPendingSpawn(spec SpawnSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingSpawn != nil {
		return ErrSpawnPending
	}
	sp := spec
	s.pendingSpawn = &sp
	return nil
}

// TakePendingSpawn removes and returns the pending spawn spec.
func (s *Session) TakePendingSpawn() (SpawnSpec, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingSpawn == nil {
		return SpawnSpec{}, false
	}
	spec := *s.pendingSpawn
	s.pendingSpawn = nil
	return spec, true
}

// SetReport installs the final report.
func (s *Session) SetReport(r FinalReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep := r
	s.report = &rep
	s.updated = time.Now().UTC()
}

// Report returns a copy of the final report, if present.
func (s *Session) Report() (FinalReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.report == nil {
		return FinalReport{}, false
	}
	return *s.report, true
}

// Orchestration returns a copy of the orchestration block.
func (s *Session) Orchestration() Orchestration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o := s.orchestration
	o.ChildIDs = append([]string(nil), s.orchestration.ChildIDs...)
	return o
}

// SetChildren marks the session as orchestrator of the given child ids.
func (s *Session) SetChildren(childIDs []string, completionThreshold int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orchestration.Role = RoleOrchestrator
	s.orchestration.ChildIDs = append([]string(nil), childIDs...)
	s.orchestration.CompletionThreshold = completionThreshold
	s.updated = time.Now().UTC()
}

// RecordToolCall appends a completed tool call audit record.
func (s *Session) RecordToolCall(tc ToolCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolCalls = append(s.toolCalls, tc)
	s.updated = time.Now().UTC()
}

// ToolCalls returns a defensive copy of the tool call records.
func (s *Session) ToolCalls() []ToolCall {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ToolCall, len(s.toolCalls))
	copy(out, s.toolCalls)
	return out
}

// Iterations returns a defensive copy of the raw iteration audit records.
func (s *Session) Iterations() []RawIterationData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RawIterationData, len(s.iterations))
	copy(out, s.iterations)
	return out
}

// SelfAuthoringEnabled reports the feature flag state.
func (s *Session) SelfAuthoringEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selfAuthoring
}

// Sections returns a copy of the instruction sections.
func (s *Session) Sections() []InstructionSection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]InstructionSection, len(s.sections))
	copy(out, s.sections)
	return out
}

// QueueSelfEdit validates and queues a runtime instruction edit. It fails
// with ErrSelfAuthoringDisabled when the feature flag is off. The edit is
// applied at the next iteration boundary via ApplyQueuedEdits.
func (s *Session) QueueSelfEdit(e SelfEdit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.selfAuthoring {
		return ErrSelfAuthoringDisabled
	}
	if err := e.Validate(s.sections); err != nil {
		return err
	}
	s.pendingEdits = append(s.pendingEdits, e)
	return nil
}

// PendingEditCount returns the number of queued, unapplied self-edits.
func (s *Session) PendingEditCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pendingEdits)
}

// ApplyQueuedEdits folds queued self-edits into the sections. Called by the
// loop at iteration boundaries only, so the decision that requested a change
// never races with the prompt that produced it.
func (s *Session) ApplyQueuedEdits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pendingEdits) == 0 {
		return 0
	}
	n := len(s.pendingEdits)
	s.sections = ApplySelfEdits(s.sections, s.pendingEdits)
	s.pendingEdits = nil
	s.updated = time.Now().UTC()
	return n
}

// Reset returns the session to idle with fresh memory and counters. The
// caller (engine) is responsible for archiving memory and detaching child
// sessions first.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusIdle
	s.errorReason = ReasonNone
	s.errorDetail = ""
	s.iteration = 0
	s.retryCount = 0
	s.assistance = nil
	s.report = nil
	s.pendingSpawn = nil
	s.pendingEdits = nil
	s.toolCalls = nil
	s.iterations = nil
	s.orchestration.ChildIDs = nil
	if s.orchestration.Role == RoleOrchestrator {
		s.orchestration.Role = RoleStandalone
	}
	s.memory = NewMemory()
	s.updated = time.Now().UTC()
}

// SessionStore persists session aggregates, children included. Aggregates
// are referenced by id from their parent's orchestration block (arena plus
// index) so parent and children stay independent until reconciliation.
type SessionStore interface {
	Put(s *Session) error
	Get(id string) (*Session, error)
	Delete(id string) error
	List() []string
}
