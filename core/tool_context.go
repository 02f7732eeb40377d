package core

import (
	"context"
	"fmt"

	"github.com/hupe1980/freeagent/logging"
)

// ToolContext is the constrained, auditable surface handed to tool
// implementations. It exposes only the references a handler is permitted to
// mutate (blackboard appender, scratchpad writer, attribute store, artifact
// list) plus control-plane request methods whose effects the engine
// interprets at fold-back. Handlers never change session status directly.
type ToolContext struct {
	ctx       context.Context
	session   *Session
	callID    string
	iteration int

	*loggerAdapter
}

// NewToolContext binds a tool invocation to its session, call id and
// iteration number. The context carries the per-iteration cancellation
// signal.
func NewToolContext(ctx context.Context, session *Session, callID string, iteration int, logger logging.Logger) *ToolContext {
	return &ToolContext{
		ctx:           ctx,
		session:       session,
		callID:        callID,
		iteration:     iteration,
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Context returns the per-iteration cancellation context.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// SessionID returns the owning session id.
func (tc *ToolContext) SessionID() string { return tc.session.ID() }

// CallID returns the tool call identifier (correlates decision and audit).
func (tc *ToolContext) CallID() string { return tc.callID }

// Iteration returns the iteration number this call belongs to.
func (tc *ToolContext) Iteration() int { return tc.iteration }

// Logger returns the logger bound to this invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

// Prompt returns the session prompt text.
func (tc *ToolContext) Prompt() string { return tc.session.Prompt() }

// Files returns metadata-and-content copies of the uploaded input files.
func (tc *ToolContext) Files() []InputFile { return tc.session.Files() }

// File returns one uploaded input file by name.
func (tc *ToolContext) File(name string) (InputFile, error) { return tc.session.File(name) }

// AppendBlackboard adds an append-only entry stamped with this iteration.
func (tc *ToolContext) AppendBlackboard(category Category, content string) (BlackboardEntry, error) {
	if !category.Valid() {
		return BlackboardEntry{}, fmt.Errorf("unknown blackboard category %q", category)
	}
	entry := NewBlackboardEntry(tc.iteration, category, content)
	return tc.session.Memory().Append(entry), nil
}

// Blackboard returns the last n entries (all when n <= 0).
func (tc *ToolContext) Blackboard(n int) []BlackboardEntry {
	return tc.session.Memory().Tail(n)
}

// Scratchpad returns the current scratchpad content.
func (tc *ToolContext) Scratchpad() string { return tc.session.Memory().Scratchpad() }

// WriteScratchpad applies a scratchpad write in the given mode.
func (tc *ToolContext) WriteScratchpad(mode ScratchpadMode, text string) error {
	return tc.session.Memory().WriteScratchpad(mode, text)
}

// PutAttribute registers an immutable tool result attribute.
func (tc *ToolContext) PutAttribute(a ToolResultAttribute) error {
	return tc.session.Memory().PutAttribute(a)
}

// Attribute returns a named attribute including its payload.
func (tc *ToolContext) Attribute(name string) (ToolResultAttribute, error) {
	return tc.session.Memory().Attribute(name)
}

// AttributeIndex returns metadata for all attributes, payloads excluded.
func (tc *ToolContext) AttributeIndex() []AttributeInfo {
	return tc.session.Memory().AttributeIndex()
}

// HasAttribute reports whether an attribute name is taken.
func (tc *ToolContext) HasAttribute(name string) bool {
	return tc.session.Memory().HasAttribute(name)
}

// AttributeCount returns the number of registered attributes.
func (tc *ToolContext) AttributeCount() int { return tc.session.Memory().AttributeCount() }

// AddArtifact stores a durable output in session memory.
func (tc *ToolContext) AddArtifact(a Artifact) Artifact {
	a.Iteration = tc.iteration
	return tc.session.Memory().AddArtifact(a)
}

// FindArtifact returns an artifact by id or title.
func (tc *ToolContext) FindArtifact(ref string) (Artifact, bool) {
	return tc.session.Memory().Artifact(ref)
}

// RequestAssistance installs the session's pending assistance request. It
// fails with ErrAssistancePending when one is already outstanding, making a
// duplicate request a per-call error rather than a session fault.
func (tc *ToolContext) RequestAssistance(question, context string, inputType AssistanceInputType, choices []string) (AssistanceRequest, error) {
	req := NewAssistanceRequest(question, context, inputType, choices)
	if err := tc.session.SetAssistance(req); err != nil {
		return AssistanceRequest{}, err
	}
	tc.LogInfo("tool.assistance.request", "session_id", tc.SessionID(), "request_id", req.ID)
	return req, nil
}

// RequestSpawn records the iteration's spawn request for the coordinator to
// execute at fold-back. A second spawn in the same iteration fails with
// ErrSpawnPending.
func (tc *ToolContext) RequestSpawn(spec SpawnSpec) error {
	if err := tc.session.SetPendingSpawn(spec); err != nil {
		return err
	}
	tc.LogInfo("tool.spawn.request", "session_id", tc.SessionID(), "children", len(spec.Children))
	return nil
}

// Sections returns the current instruction sections (read_self). It fails
// with ErrSelfAuthoringDisabled when the feature flag is off.
func (tc *ToolContext) Sections() ([]InstructionSection, error) {
	if !tc.session.SelfAuthoringEnabled() {
		return nil, ErrSelfAuthoringDisabled
	}
	return tc.session.Sections(), nil
}

// QueueSelfEdit validates and queues a write_self edit, applied at the next
// iteration boundary.
func (tc *ToolContext) QueueSelfEdit(e SelfEdit) error {
	if err := tc.session.QueueSelfEdit(e); err != nil {
		return err
	}
	tc.LogInfo("tool.self_edit.queued", "session_id", tc.SessionID(), "op", string(e.Op), "section", e.Section)
	return nil
}
