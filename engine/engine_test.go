package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hupe1980/freeagent/artifact"
	"github.com/hupe1980/freeagent/core"
	"github.com/hupe1980/freeagent/reasoning"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestEngine(t *testing.T, collaborator reasoning.Collaborator, optFns ...func(o *Options)) *Engine {
	t.Helper()
	e, err := New(collaborator, optFns...)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, e.Close())
	})
	return e
}

func waitForStatus(t *testing.T, e *Engine, sessionID string, want core.Status) core.SessionView {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		view, err := e.View(sessionID)
		require.NoError(t, err)
		if view.Status == want {
			return view
		}
		if time.Now().After(deadline) {
			t.Fatalf("session never reached %s, stuck at %s", want, view.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func toolCallDecision(name string, params map[string]any) *reasoning.Decision {
	return &reasoning.Decision{
		ToolCalls: []reasoning.ToolCallRequest{{ID: core.NewID(), Name: name, Params: params}},
	}
}

func completeDecision(summary string) *reasoning.Decision {
	return &reasoning.Decision{Complete: &reasoning.Completion{Summary: summary}}
}

func TestEngine_CompletionReport(t *testing.T) {
	mock := reasoning.NewMock(
		toolCallDecision("write_blackboard", map[string]any{"category": "insight", "content": "the input is already sorted"}),
		completeDecision("verified and summarized the input"),
	)
	e := newTestEngine(t, mock)

	id, err := e.CreateSession(func(o *CreateSessionOptions) { o.Prompt = "analyze the input" })
	require.NoError(t, err)
	require.NoError(t, e.Start(id))

	view := waitForStatus(t, e, id, core.StatusCompleted)

	require.NotNil(t, view.Report)
	assert.Equal(t, "verified and summarized the input", view.Report.Summary)
	assert.Equal(t, 2, view.Report.Iterations)
	assert.Contains(t, view.Report.ToolsUsed, "write_blackboard")
	require.Len(t, view.Report.Findings, 1)
	assert.Equal(t, core.CategoryInsight, view.Report.Findings[0].Category)
	assert.Equal(t, 2, mock.CallCount())
}

func TestEngine_BudgetExceededThenContinue(t *testing.T) {
	mock := reasoning.NewMockFunc(func(_ context.Context, _ reasoning.Request) (*reasoning.Decision, error) {
		return toolCallDecision("write_scratchpad", map[string]any{"mode": "append", "text": "still working"}), nil
	})
	e := newTestEngine(t, mock)

	id, err := e.CreateSession(func(o *CreateSessionOptions) {
		o.Prompt = "endless task"
		o.MaxIterations = 2
	})
	require.NoError(t, err)
	require.NoError(t, e.Start(id))

	view := waitForStatus(t, e, id, core.StatusError)
	assert.Equal(t, core.ReasonBudgetExceeded, view.ErrorReason)
	assert.Equal(t, 2, view.Iteration)
	// budget exhaustion is not a parse fault
	assert.Equal(t, 0, view.RetryCount)
	assert.Equal(t, 2, mock.CallCount())

	require.NoError(t, e.Continue(id, 3))
	view = waitForStatus(t, e, id, core.StatusError)
	assert.Equal(t, core.ReasonBudgetExceeded, view.ErrorReason)
	assert.Equal(t, 5, view.Iteration)
	assert.Equal(t, 5, mock.CallCount())
}

func TestEngine_ParseRetryProtocol(t *testing.T) {
	mock := reasoning.NewMockFunc(func(_ context.Context, _ reasoning.Request) (*reasoning.Decision, error) {
		return nil, &reasoning.ParseError{Raw: "I cannot answer in JSON", Err: errors.New("invalid character 'I'")}
	})
	e := newTestEngine(t, mock)

	id, err := e.CreateSession(func(o *CreateSessionOptions) { o.Prompt = "some task" })
	require.NoError(t, err)
	require.NoError(t, e.Start(id))

	view := waitForStatus(t, e, id, core.StatusPaused)
	assert.Equal(t, 1, view.RetryCount)
	assert.Equal(t, 0, view.Iteration)

	// the counter survives operator retries so repeated failures exhaust
	require.NoError(t, e.Retry(id))
	view = waitForStatus(t, e, id, core.StatusPaused)
	assert.Equal(t, 2, view.RetryCount)

	require.NoError(t, e.Retry(id))
	view = waitForStatus(t, e, id, core.StatusError)
	assert.Equal(t, core.ReasonParseRetriesExhausted, view.ErrorReason)
	assert.Equal(t, 3, view.RetryCount)
}

func TestEngine_RetryNotApplicableWhileCompleted(t *testing.T) {
	e := newTestEngine(t, reasoning.NewMock(completeDecision("done")))

	id, err := e.CreateSession(func(o *CreateSessionOptions) { o.Prompt = "quick task" })
	require.NoError(t, err)
	require.NoError(t, e.Start(id))
	waitForStatus(t, e, id, core.StatusCompleted)

	assert.ErrorIs(t, e.Retry(id), ErrNotRetryable)
}

func TestEngine_SuccessfulParseResetsRetryCounter(t *testing.T) {
	var failed bool
	var mu sync.Mutex
	mock := reasoning.NewMockFunc(func(_ context.Context, _ reasoning.Request) (*reasoning.Decision, error) {
		mu.Lock()
		defer mu.Unlock()
		if !failed {
			failed = true
			return nil, &reasoning.ParseError{Raw: "garbage", Err: errors.New("bad json")}
		}
		return completeDecision("recovered"), nil
	})
	e := newTestEngine(t, mock)

	id, err := e.CreateSession(func(o *CreateSessionOptions) { o.Prompt = "some task" })
	require.NoError(t, err)
	require.NoError(t, e.Start(id))

	view := waitForStatus(t, e, id, core.StatusPaused)
	assert.Equal(t, 1, view.RetryCount)

	require.NoError(t, e.Retry(id))
	view = waitForStatus(t, e, id, core.StatusCompleted)
	assert.Equal(t, 0, view.RetryCount)
}

func TestEngine_AssistanceFlow(t *testing.T) {
	mock := reasoning.NewMock(
		toolCallDecision("request_assistance", map[string]any{"question": "which region should I use?"}),
		completeDecision("used the region the operator picked"),
	)
	e := newTestEngine(t, mock)

	id, err := e.CreateSession(func(o *CreateSessionOptions) { o.Prompt = "deploy the service" })
	require.NoError(t, err)
	require.NoError(t, e.Start(id))

	view := waitForStatus(t, e, id, core.StatusNeedsAssistance)
	require.NotNil(t, view.Assistance)
	assert.Equal(t, "which region should I use?", view.Assistance.Question)
	// the blocked iteration did not advance
	assert.Equal(t, 0, view.Iteration)

	// a stale request id leaves the session untouched
	err = e.RespondToAssistance(id, core.AssistanceResponse{RequestID: "stale", Response: "eu"})
	require.ErrorIs(t, err, core.ErrAssistanceMismatch)
	view, _ = e.View(id)
	assert.Equal(t, core.StatusNeedsAssistance, view.Status)

	require.NoError(t, e.RespondToAssistance(id, core.AssistanceResponse{
		RequestID: view.Assistance.ID,
		Response:  "eu-west-1",
	}))

	view = waitForStatus(t, e, id, core.StatusCompleted)
	assert.Nil(t, view.Assistance)
	// the same iteration re-ran after resolution
	assert.Equal(t, 0, view.Iteration)

	var found bool
	for _, entry := range view.Blackboard {
		if strings.Contains(entry.Content, "operator response: eu-west-1") {
			found = true
		}
	}
	assert.True(t, found, "operator response missing from blackboard")
}

func TestEngine_RespondWithoutPendingAssistance(t *testing.T) {
	e := newTestEngine(t, reasoning.NewMock())

	id, err := e.CreateSession(func(o *CreateSessionOptions) { o.Prompt = "task" })
	require.NoError(t, err)

	err = e.RespondToAssistance(id, core.AssistanceResponse{RequestID: "x", Response: "y"})
	assert.ErrorIs(t, err, ErrNoAssistancePending)
}

func TestEngine_SpawnFanout(t *testing.T) {
	mock := reasoning.NewMockFunc(func(_ context.Context, req reasoning.Request) (*reasoning.Decision, error) {
		if strings.HasPrefix(req.Prompt, "subtask:") {
			return completeDecision("finished " + strings.TrimPrefix(req.Prompt, "subtask: ")), nil
		}
		if req.Iteration == 0 {
			return toolCallDecision("spawn", map[string]any{
				"children": []any{
					map[string]any{"name": "latency", "task": "subtask: measure latency"},
					map[string]any{"name": "throughput", "task": "subtask: measure throughput"},
				},
			}), nil
		}
		return completeDecision("combined both measurements"), nil
	})
	e := newTestEngine(t, mock)

	id, err := e.CreateSession(func(o *CreateSessionOptions) { o.Prompt = "benchmark the service" })
	require.NoError(t, err)
	require.NoError(t, e.Start(id))

	view := waitForStatus(t, e, id, core.StatusCompleted)

	assert.Equal(t, core.RoleOrchestrator, view.Orchestration.Role)
	require.Len(t, view.Orchestration.ChildIDs, 2)

	var merged int
	for _, entry := range view.Blackboard {
		if entry.Category == core.CategoryInsight && strings.Contains(entry.Content, "child ") {
			merged++
		}
	}
	assert.Equal(t, 2, merged, "expected one merged insight per child")

	// children are stored alongside the parent and carry their task as prompt
	childView, err := e.View(view.Orchestration.ChildIDs[0])
	require.NoError(t, err)
	assert.Equal(t, core.RoleChild, childView.Orchestration.Role)
	assert.Equal(t, core.StatusCompleted, childView.Status)
	assert.True(t, strings.HasPrefix(childView.Prompt, "subtask:"))

	// parent: spawn at iteration 0, merge and complete at iteration 1
	assert.Equal(t, 1, view.Iteration)
}

func TestEngine_SpawnChildFailureIsMerged(t *testing.T) {
	mock := reasoning.NewMockFunc(func(_ context.Context, req reasoning.Request) (*reasoning.Decision, error) {
		if strings.HasPrefix(req.Prompt, "subtask:") {
			return &reasoning.Decision{Failed: &reasoning.Failure{Reason: "no data available"}}, nil
		}
		if req.Iteration == 0 {
			return toolCallDecision("spawn", map[string]any{
				"children": []any{map[string]any{"name": "worker", "task": "subtask: dig"}},
			}), nil
		}
		return completeDecision("worked around the failed child"), nil
	})
	e := newTestEngine(t, mock)

	id, err := e.CreateSession(func(o *CreateSessionOptions) { o.Prompt = "orchestrate" })
	require.NoError(t, err)
	require.NoError(t, e.Start(id))

	view := waitForStatus(t, e, id, core.StatusCompleted)

	var found bool
	for _, entry := range view.Blackboard {
		if entry.Category == core.CategoryError && strings.Contains(entry.Content, "no data available") {
			found = true
		}
	}
	assert.True(t, found, "child failure missing from parent blackboard")
}

func TestEngine_SpawnThresholdResumesParentOnce(t *testing.T) {
	release := make(chan struct{})
	mock := reasoning.NewMockFunc(func(ctx context.Context, req reasoning.Request) (*reasoning.Decision, error) {
		switch {
		case req.Prompt == "subtask: fast":
			return completeDecision("fast result"), nil
		case req.Prompt == "subtask: slow":
			select {
			case <-release:
				return completeDecision("slow result"), nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		case req.Iteration == 0:
			return toolCallDecision("spawn", map[string]any{
				"children": []any{
					map[string]any{"name": "fast", "task": "subtask: fast"},
					map[string]any{"name": "slow", "task": "subtask: slow"},
				},
				"completion_threshold": float64(1),
			}), nil
		default:
			return completeDecision("went ahead with the first result"), nil
		}
	})
	e := newTestEngine(t, mock)

	id, err := e.CreateSession(func(o *CreateSessionOptions) { o.Prompt = "race two approaches" })
	require.NoError(t, err)
	require.NoError(t, e.Start(id))

	// the parent resumes as soon as the first child finishes
	view := waitForStatus(t, e, id, core.StatusCompleted)
	assert.Equal(t, 1, view.Iteration)

	countMerged := func(entries []core.BlackboardEntry) int {
		var n int
		for _, entry := range entries {
			if entry.Category == core.CategoryInsight && strings.Contains(entry.Content, "child ") {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 1, countMerged(view.Blackboard), "only the finished child is merged")

	// the straggler finishes later without resuming the parent a second time
	close(release)
	var slowID string
	for _, childID := range view.Orchestration.ChildIDs {
		childView, err := e.View(childID)
		require.NoError(t, err)
		if childView.Orchestration.Name == "slow" {
			slowID = childID
		}
	}
	require.NotEmpty(t, slowID)
	waitForStatus(t, e, slowID, core.StatusCompleted)

	time.Sleep(50 * time.Millisecond)
	view, err = e.View(id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, view.Status)
	assert.Equal(t, 1, countMerged(view.Blackboard), "straggler result must not be merged")
}

func TestEngine_ChildRetryStillResumesParent(t *testing.T) {
	var mu sync.Mutex
	var childCalls int
	mock := reasoning.NewMockFunc(func(_ context.Context, req reasoning.Request) (*reasoning.Decision, error) {
		if strings.HasPrefix(req.Prompt, "subtask:") {
			mu.Lock()
			childCalls++
			n := childCalls
			mu.Unlock()
			if n == 1 {
				return nil, &reasoning.ParseError{Raw: "garbled", Err: errors.New("bad json")}
			}
			return completeDecision("dug up the data"), nil
		}
		if req.Iteration == 0 {
			return toolCallDecision("spawn", map[string]any{
				"children": []any{map[string]any{"name": "digger", "task": "subtask: dig"}},
			}), nil
		}
		return completeDecision("merged the child output"), nil
	})
	e := newTestEngine(t, mock)

	id, err := e.CreateSession(func(o *CreateSessionOptions) { o.Prompt = "orchestrate" })
	require.NoError(t, err)
	require.NoError(t, e.Start(id))

	view := waitForStatus(t, e, id, core.StatusWaiting)
	require.Len(t, view.Orchestration.ChildIDs, 1)
	childID := view.Orchestration.ChildIDs[0]

	// the child pauses on a parse failure; the parent keeps waiting
	waitForStatus(t, e, childID, core.StatusPaused)

	// an operator retry completes the child, which must still resume the parent
	require.NoError(t, e.Retry(childID))
	waitForStatus(t, e, childID, core.StatusCompleted)

	view = waitForStatus(t, e, id, core.StatusCompleted)
	var merged bool
	for _, entry := range view.Blackboard {
		if entry.Category == core.CategoryInsight && strings.Contains(entry.Content, "dug up the data") {
			merged = true
		}
	}
	assert.True(t, merged, "retried child result missing from parent blackboard")
	assert.Equal(t, 1, view.Iteration)
}

func TestEngine_StopWhileWaitingIsNotResumed(t *testing.T) {
	gate := make(chan struct{})
	mock := reasoning.NewMockFunc(func(ctx context.Context, req reasoning.Request) (*reasoning.Decision, error) {
		if strings.HasPrefix(req.Prompt, "subtask:") {
			select {
			case <-gate:
				return completeDecision("finished late"), nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if req.Iteration == 0 {
			return toolCallDecision("spawn", map[string]any{
				"children": []any{map[string]any{"name": "late", "task": "subtask: slow work"}},
			}), nil
		}
		return completeDecision("resumed"), nil
	})
	e := newTestEngine(t, mock)

	id, err := e.CreateSession(func(o *CreateSessionOptions) { o.Prompt = "orchestrate" })
	require.NoError(t, err)
	require.NoError(t, e.Start(id))

	view := waitForStatus(t, e, id, core.StatusWaiting)
	require.Len(t, view.Orchestration.ChildIDs, 1)
	childID := view.Orchestration.ChildIDs[0]

	require.NoError(t, e.Stop(id))
	view, err = e.View(id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusIdle, view.Status)

	// the child finishing afterwards must not restart the stopped session
	close(gate)
	waitForStatus(t, e, childID, core.StatusCompleted)

	time.Sleep(100 * time.Millisecond)
	view, err = e.View(id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusIdle, view.Status)
	for _, entry := range view.Blackboard {
		assert.NotContains(t, entry.Content, "child ", "stopped session must not receive merged results")
	}
}

func TestEngine_FailingCallDoesNotBlockSibling(t *testing.T) {
	mixed := &reasoning.Decision{
		ToolCalls: []reasoning.ToolCallRequest{
			{ID: core.NewID(), Name: "fetch_metrics", Params: map[string]any{}},
			{ID: core.NewID(), Name: "write_blackboard", Params: map[string]any{
				"category": "insight",
				"content":  "p99 latency is 40ms",
			}},
		},
	}
	mock := reasoning.NewMock(mixed, completeDecision("reported what could be measured"))
	e := newTestEngine(t, mock)

	id, err := e.CreateSession(func(o *CreateSessionOptions) { o.Prompt = "measure the service" })
	require.NoError(t, err)
	require.NoError(t, e.Start(id))

	view := waitForStatus(t, e, id, core.StatusCompleted)

	require.Len(t, view.ToolCalls, 2)
	assert.Equal(t, core.ToolCallError, view.ToolCalls[0].Status)
	assert.Contains(t, view.ToolCalls[0].Error, "UNKNOWN_TOOL")
	assert.Equal(t, core.ToolCallCompleted, view.ToolCalls[1].Status)

	var insight bool
	for _, entry := range view.Blackboard {
		if entry.Category == core.CategoryInsight && strings.Contains(entry.Content, "p99 latency is 40ms") {
			insight = true
		}
	}
	assert.True(t, insight, "sibling write missing despite its success")
}

func TestEngine_SelfAuthoringAppliedAtBoundary(t *testing.T) {
	mock := reasoning.NewMock(
		toolCallDecision("write_self", map[string]any{"op": "disable", "section": "style"}),
		completeDecision("done"),
	)
	e := newTestEngine(t, mock)

	id, err := e.CreateSession(func(o *CreateSessionOptions) {
		o.Prompt = "some task"
		o.SelfAuthoring = true
		o.Sections = []core.InstructionSection{
			{ID: "role", Title: "Role", Content: "You work the task step by step.", Enabled: true, Order: 0},
			{ID: "style", Title: "Style", Content: "Always answer in haiku.", Enabled: true, Order: 1},
		}
	})
	require.NoError(t, err)
	require.NoError(t, e.Start(id))

	view := waitForStatus(t, e, id, core.StatusCompleted)

	require.Len(t, view.Sections, 2)
	assert.False(t, view.Sections[1].Enabled)

	calls := mock.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].Instructions, "Always answer in haiku.")
	// the queued edit took effect at the next iteration boundary
	assert.NotContains(t, calls[1].Instructions, "Always answer in haiku.")
	assert.Contains(t, calls[1].Instructions, "You work the task step by step.")
}

func TestEngine_WriteSelfDisabledByDefault(t *testing.T) {
	mock := reasoning.NewMock(
		toolCallDecision("write_self", map[string]any{"op": "disable", "section": "style"}),
		completeDecision("done"),
	)
	e := newTestEngine(t, mock)

	id, err := e.CreateSession(func(o *CreateSessionOptions) { o.Prompt = "some task" })
	require.NoError(t, err)
	require.NoError(t, e.Start(id))

	view := waitForStatus(t, e, id, core.StatusCompleted)

	require.NotEmpty(t, view.ToolCalls)
	assert.Equal(t, core.ToolCallError, view.ToolCalls[0].Status)
	assert.Contains(t, view.ToolCalls[0].Error, "FEATURE_DISABLED")
}

func TestEngine_InterjectRerunsIteration(t *testing.T) {
	firstCall := make(chan struct{})
	var once sync.Once
	mock := reasoning.NewMockFunc(func(ctx context.Context, req reasoning.Request) (*reasoning.Decision, error) {
		var interjected bool
		for _, entry := range req.Snapshot.Blackboard {
			if strings.Contains(entry.Content, "operator interjection") {
				interjected = true
			}
		}
		if !interjected {
			once.Do(func() { close(firstCall) })
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return completeDecision("followed the operator hint"), nil
	})
	e := newTestEngine(t, mock)

	id, err := e.CreateSession(func(o *CreateSessionOptions) { o.Prompt = "slow task" })
	require.NoError(t, err)
	require.NoError(t, e.Start(id))

	<-firstCall
	require.NoError(t, e.Interject(id, "check the cache first"))

	view := waitForStatus(t, e, id, core.StatusCompleted)

	// the interrupted iteration re-ran; the counter never advanced past it
	assert.Equal(t, 0, view.Iteration)
	var found bool
	for _, entry := range view.Blackboard {
		if strings.Contains(entry.Content, "operator interjection: check the cache first") {
			found = true
		}
	}
	assert.True(t, found, "interjection missing from blackboard")
}

func TestEngine_InterjectRequiresRunningLoop(t *testing.T) {
	e := newTestEngine(t, reasoning.NewMock())

	id, err := e.CreateSession(func(o *CreateSessionOptions) { o.Prompt = "task" })
	require.NoError(t, err)

	assert.ErrorIs(t, e.Interject(id, "hello"), ErrNotRunning)
}

func TestEngine_InterjectWhileAwaitingAssistance(t *testing.T) {
	mock := reasoning.NewMock(
		toolCallDecision("request_assistance", map[string]any{"question": "which environment?"}),
		completeDecision("deployed with the operator's guidance"),
	)
	e := newTestEngine(t, mock)

	id, err := e.CreateSession(func(o *CreateSessionOptions) { o.Prompt = "deploy" })
	require.NoError(t, err)
	require.NoError(t, e.Start(id))

	view := waitForStatus(t, e, id, core.StatusNeedsAssistance)
	require.NotNil(t, view.Assistance)

	// no loop goroutine is active, the interjection is still accepted
	require.NoError(t, e.Interject(id, "prefer the staging environment"))

	view, err = e.View(id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusNeedsAssistance, view.Status)

	require.NoError(t, e.RespondToAssistance(id, core.AssistanceResponse{
		RequestID: view.Assistance.ID,
		Response:  "staging",
	}))

	view = waitForStatus(t, e, id, core.StatusCompleted)
	var found bool
	for _, entry := range view.Blackboard {
		if strings.Contains(entry.Content, "operator interjection: prefer the staging environment") {
			found = true
		}
	}
	assert.True(t, found, "interjection missing from blackboard")
}

func TestEngine_StopReturnsToIdle(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	mock := reasoning.NewMockFunc(func(ctx context.Context, _ reasoning.Request) (*reasoning.Decision, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return nil, ctx.Err()
	})
	e := newTestEngine(t, mock)

	id, err := e.CreateSession(func(o *CreateSessionOptions) { o.Prompt = "long task" })
	require.NoError(t, err)
	require.NoError(t, e.Start(id))
	<-started

	require.NoError(t, e.Stop(id))
	view, err := e.View(id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusIdle, view.Status)
}

func TestEngine_ResetArchivesMemory(t *testing.T) {
	artifacts := artifact.NewInMemoryStore()
	mock := reasoning.NewMock(
		toolCallDecision("write_blackboard", map[string]any{"category": "observation", "content": "saw something"}),
		completeDecision("done"),
	)
	e := newTestEngine(t, mock, func(o *Options) { o.ArtifactStore = artifacts })

	id, err := e.CreateSession(func(o *CreateSessionOptions) { o.Prompt = "short task" })
	require.NoError(t, err)
	require.NoError(t, e.Start(id))
	waitForStatus(t, e, id, core.StatusCompleted)

	require.NoError(t, e.Reset(id))

	view, err := e.View(id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusIdle, view.Status)
	assert.Equal(t, 0, view.Iteration)
	assert.Empty(t, view.Blackboard)
	assert.Nil(t, view.Report)

	exports, err := artifacts.List(id)
	require.NoError(t, err)
	require.Len(t, exports, 1)
	assert.True(t, strings.HasPrefix(exports[0].ArtifactID, "memory-archive-"))
	assert.Equal(t, core.ArtifactData, exports[0].Type)
	assert.Equal(t, "application/json", exports[0].MimeType)

	size, err := e.CacheSize(id)
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}

func TestEngine_SubscribeReceivesTerminalView(t *testing.T) {
	e := newTestEngine(t, reasoning.NewMock(completeDecision("done")))

	id, err := e.CreateSession(func(o *CreateSessionOptions) { o.Prompt = "task" })
	require.NoError(t, err)

	updates, cancel, err := e.Subscribe(id)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, e.Start(id))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case view := <-updates:
			if view.Status == core.StatusCompleted {
				assert.Equal(t, "done", view.Report.Summary)
				return
			}
		case <-deadline:
			t.Fatal("never received the completed view")
		}
	}
}

func TestEngine_StartTwiceFails(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	mock := reasoning.NewMockFunc(func(ctx context.Context, _ reasoning.Request) (*reasoning.Decision, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return nil, ctx.Err()
	})
	e := newTestEngine(t, mock)

	id, err := e.CreateSession(func(o *CreateSessionOptions) { o.Prompt = "task" })
	require.NoError(t, err)
	require.NoError(t, e.Start(id))
	<-started

	assert.ErrorIs(t, e.Start(id), core.ErrInvalidTransition)
	require.NoError(t, e.Stop(id))
}

func TestEngine_UnknownSession(t *testing.T) {
	e := newTestEngine(t, reasoning.NewMock())

	require.Error(t, e.Start("missing"))
	_, err := e.View("missing")
	require.Error(t, err)
}
