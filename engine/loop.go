package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/freeagent/core"
	"github.com/hupe1980/freeagent/reasoning"
	"github.com/hupe1980/freeagent/tool"
)

// runLoop executes iterations until the session leaves running or the run
// context is canceled. It is the single writer of loop-owned session state;
// tool handlers mutate memory concurrently through their own synchronized
// surface.
func (e *Engine) runLoop(ctx context.Context, s *core.Session, d *tool.Dispatcher, rn *run) {
	for {
		if ctx.Err() != nil || s.Status() != core.StatusRunning {
			return
		}

		if s.Iteration() >= s.MaxIterations() {
			// RetryCount is deliberately left untouched: budget exhaustion is
			// not a parse fault.
			detail := fmt.Sprintf("iteration budget of %d exhausted without completion", s.MaxIterations())
			if err := s.Fail(core.ReasonBudgetExceeded, detail); err != nil {
				e.logger.Error("loop.fail_transition", "session_id", s.ID(), "error", err.Error())
			}
			e.logger.Warn("loop.budget_exceeded", "session_id", s.ID(), "max_iterations", s.MaxIterations())
			e.publish(s)
			return
		}

		if applied := s.ApplyQueuedEdits(); applied > 0 {
			e.logger.Info("loop.self_edits_applied", "session_id", s.ID(), "count", applied)
		}

		iteration := s.Iteration()
		instructions := e.effectiveInstructions(s)
		snapshot := s.Memory().Snapshot(e.cfg.BlackboardTail)

		req := reasoning.Request{
			Model:          s.Model(),
			Instructions:   instructions,
			Prompt:         s.Prompt(),
			Snapshot:       snapshot,
			Iteration:      iteration,
			IterationsLeft: s.MaxIterations() - iteration,
			Tools:          reasoningDefinitions(d),
		}

		e.logger.Debug("loop.iteration.start", "session_id", s.ID(), "iteration", iteration)

		iterCtx, iterCancel := context.WithCancel(ctx)
		rn.setIterCancel(iterCancel)

		decision, err := e.collaborator.Decide(iterCtx, req)
		if err != nil {
			iterCancel()
			if ctx.Err() != nil {
				return
			}
			if rn.rerun.Swap(false) {
				// interjection aborted the reasoning call; same iteration
				continue
			}
			e.handleDecideFailure(s, iteration, instructions, snapshot, err)
			return
		}

		s.ResetRetry()

		raw := core.RawIterationData{
			Iteration:      iteration,
			Timestamp:      time.Now().UTC(),
			Instructions:   instructions,
			BlackboardSize: snapshot.TotalEntries,
			ScratchpadSize: len(snapshot.Scratchpad),
			AttributeCount: len(snapshot.Attributes),
			IterationsLeft: req.IterationsLeft,
			RawDecision:    marshalDecision(decision),
		}

		results := e.executeCalls(iterCtx, s, d, iteration, decision.ToolCalls)
		iterCancel()

		for _, tc := range results {
			s.RecordToolCall(tc)
		}
		raw.ToolCalls = results

		if rn.rerun.Swap(false) {
			// interjection: commit the audit record but re-run the iteration
			s.RecordIteration(raw)
			e.publish(s)
			continue
		}
		if ctx.Err() != nil {
			s.RecordIteration(raw)
			return
		}

		if decision.Failed != nil {
			s.RecordIteration(raw)
			if err := s.Fail(core.ReasonTaskFailed, decision.Failed.Reason); err != nil {
				e.logger.Error("loop.fail_transition", "session_id", s.ID(), "error", err.Error())
			}
			e.logger.Info("loop.task_failed", "session_id", s.ID(), "reason", decision.Failed.Reason)
			e.publish(s)
			return
		}

		if decision.Complete != nil {
			s.RecordIteration(raw)
			s.SetReport(e.buildReport(s, decision.Complete.Summary))
			if err := s.Transition(core.StatusCompleted); err != nil {
				e.logger.Error("loop.complete_transition", "session_id", s.ID(), "error", err.Error())
			}
			e.logger.Info("loop.task_completed", "session_id", s.ID(), "iterations", s.Iteration()+1)
			e.publish(s)
			return
		}

		if spec, ok := s.TakePendingSpawn(); ok {
			s.AdvanceIteration(raw)
			if err := e.beginSpawn(s, d, spec); err != nil {
				e.logger.Error("loop.spawn_failed", "session_id", s.ID(), "error", err.Error())
				s.Memory().Append(core.NewBlackboardEntry(iteration, core.CategoryError, "spawn failed: "+err.Error()))
				e.publish(s)
				continue
			}
			e.publish(s)
			return
		}

		if _, pending := s.Assistance(); pending {
			// the blocked iteration re-runs after resolution; do not advance
			s.RecordIteration(raw)
			if err := s.Transition(core.StatusNeedsAssistance); err != nil {
				e.logger.Error("loop.assistance_transition", "session_id", s.ID(), "error", err.Error())
			}
			e.logger.Info("loop.needs_assistance", "session_id", s.ID())
			e.publish(s)
			return
		}

		s.AdvanceIteration(raw)
		e.publish(s)
	}
}

// handleDecideFailure runs the parse retry protocol: each unparseable or
// unreachable collaborator answer pauses the session for operator retry;
// exhausting the limit fails it.
func (e *Engine) handleDecideFailure(s *core.Session, iteration int, instructions string, snapshot core.MemorySnapshot, cause error) {
	retries := s.IncrementRetry()

	raw := core.RawIterationData{
		Iteration:      iteration,
		Timestamp:      time.Now().UTC(),
		Instructions:   instructions,
		BlackboardSize: snapshot.TotalEntries,
		ScratchpadSize: len(snapshot.Scratchpad),
		AttributeCount: len(snapshot.Attributes),
		ParseError:     cause.Error(),
	}
	var parseErr *reasoning.ParseError
	if errors.As(cause, &parseErr) {
		raw.RawDecision = parseErr.Raw
	}
	s.RecordIteration(raw)

	if retries >= e.cfg.ParseRetryLimit {
		if err := s.Fail(core.ReasonParseRetriesExhausted, cause.Error()); err != nil {
			e.logger.Error("loop.fail_transition", "session_id", s.ID(), "error", err.Error())
		}
		e.logger.Error("loop.parse_retries_exhausted", "session_id", s.ID(), "retries", retries)
	} else {
		if err := s.Transition(core.StatusPaused); err != nil {
			e.logger.Error("loop.pause_transition", "session_id", s.ID(), "error", err.Error())
		}
		e.logger.Warn("loop.decision_unusable", "session_id", s.ID(), "retries", retries, "error", cause.Error())
	}
	e.publish(s)
}

// executeCalls fans the decided tool calls out concurrently and collects
// their audit records in decision order. Failures stay inside the records;
// one failing call never aborts its siblings.
func (e *Engine) executeCalls(ctx context.Context, s *core.Session, d *tool.Dispatcher, iteration int, calls []reasoning.ToolCallRequest) []core.ToolCall {
	if len(calls) == 0 {
		return nil
	}

	results := make([]core.ToolCall, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			toolCtx := core.NewToolContext(gctx, s, call.ID, iteration, e.logger)
			res := d.Execute(toolCtx, call.Name, call.Params)

			tc := core.ToolCall{
				ID:        call.ID,
				Tool:      call.Name,
				Params:    call.Params,
				Iteration: iteration,
				Cached:    res.Cached,
				Duration:  res.Duration,
			}
			if res.Success {
				tc.Status = core.ToolCallCompleted
				tc.Result = res.Result
			} else {
				tc.Status = core.ToolCallError
				tc.Error = res.Error.Error()
			}
			results[i] = tc
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// buildReport assembles the final report at completion time.
func (e *Engine) buildReport(s *core.Session, summary string) core.FinalReport {
	calls := s.ToolCalls()
	seen := make(map[string]struct{})
	var toolsUsed []string
	for _, tc := range calls {
		if _, ok := seen[tc.Tool]; ok {
			continue
		}
		seen[tc.Tool] = struct{}{}
		toolsUsed = append(toolsUsed, tc.Tool)
	}

	var findings []core.BlackboardEntry
	for _, entry := range s.Memory().Entries() {
		if entry.Category == core.CategoryInsight || entry.Category == core.CategoryDecision {
			findings = append(findings, entry)
		}
	}

	return core.FinalReport{
		Summary:       summary,
		Iterations:    s.Iteration() + 1,
		ToolCallCount: len(calls),
		ToolsUsed:     toolsUsed,
		Artifacts:     s.Memory().Artifacts(),
		Findings:      findings,
		Created:       time.Now().UTC(),
	}
}

// reasoningDefinitions converts dispatcher declarations for the request.
func reasoningDefinitions(d *tool.Dispatcher) []reasoning.ToolDefinition {
	defs := d.Definitions()
	out := make([]reasoning.ToolDefinition, len(defs))
	for i, def := range defs {
		out[i] = reasoning.ToolDefinition{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		}
	}
	return out
}

// marshalDecision renders the decision for the audit record.
func marshalDecision(d *reasoning.Decision) string {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf("%+v", d)
	}
	return string(data)
}
