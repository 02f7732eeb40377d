package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/freeagent/core"
	"github.com/hupe1980/freeagent/tool"
)

// spawnState tracks one spawn request until the parent resumes. The once
// guard makes the resume fire exactly once even when several children reach
// a terminal state concurrently.
type spawnState struct {
	parent           *core.Session
	parentDispatcher *tool.Dispatcher
	childIDs         []string
	threshold        int

	finished atomic.Int32
	once     sync.Once
}

// beginSpawn creates the child sessions, suspends the parent in waiting and
// starts one loop per child. Each child works on a deep copy of the parent's
// memory taken now; later parent writes are never visible to children and
// vice versa.
func (e *Engine) beginSpawn(parent *core.Session, parentDispatcher *tool.Dispatcher, spec core.SpawnSpec) error {
	children := make([]*core.Session, 0, len(spec.Children))
	childIDs := make([]string, 0, len(spec.Children))

	for _, cs := range spec.Children {
		maxIterations := cs.MaxIterations
		if maxIterations <= 0 {
			maxIterations = e.cfg.MaxIterations
		}
		snapshot := parent.Memory().Clone()

		child := core.NewSession(func(o *core.SessionOptions) {
			o.Role = core.RoleChild
			o.ParentID = parent.ID()
			o.Name = cs.Name
			o.Task = cs.Task
			o.Model = parent.Model()
			o.MaxIterations = maxIterations
			o.Memory = snapshot
		})
		if err := e.register(child); err != nil {
			return fmt.Errorf("register child %q: %w", cs.Name, err)
		}
		children = append(children, child)
		childIDs = append(childIDs, child.ID())
	}

	threshold := spec.EffectiveThreshold()
	parent.SetChildren(childIDs, threshold)
	if err := parent.Transition(core.StatusWaiting); err != nil {
		return err
	}

	st := &spawnState{
		parent:           parent,
		parentDispatcher: parentDispatcher,
		childIDs:         childIDs,
		threshold:        threshold,
	}

	// register the watch before any child loop can exit
	e.mu.Lock()
	e.parentSpawns[parent.ID()] = st
	for _, id := range childIDs {
		e.childSpawns[id] = st
	}
	e.mu.Unlock()

	for _, child := range children {
		_, d, err := e.session(child.ID())
		if err != nil {
			return err
		}
		if err := child.Transition(core.StatusRunning); err != nil {
			return err
		}
		if err := e.startLoop(child, d); err != nil {
			return err
		}
	}

	e.logger.Info("spawn.started", "session_id", parent.ID(), "children", len(childIDs), "threshold", threshold)

	return nil
}

// childExited runs whenever a watched child's loop goroutine finishes,
// including loops restarted later by Retry or RespondToAssistance. Children
// suspended on assistance or a parse pause do not count toward the threshold;
// they can still finish later. Stragglers past the threshold keep running but
// no longer influence the parent.
func (e *Engine) childExited(st *spawnState, child *core.Session) {
	if !child.Status().Terminal() {
		return
	}

	e.mu.Lock()
	delete(e.childSpawns, child.ID())
	e.mu.Unlock()

	n := int(st.finished.Add(1))
	e.logger.Debug("spawn.child_finished", "session_id", st.parent.ID(), "child_id", child.ID(), "status", string(child.Status()), "finished", n)

	if n >= st.threshold {
		st.once.Do(func() { e.resumeParent(st) })
	}
}

// resumeParent merges finished children's outcomes onto the parent blackboard
// and restarts the parent loop. Results from children still running at this
// point are not merged. A parent that is no longer waiting was stopped or
// reset by the operator; the resume is skipped so the coordinator never
// overrides an operator command.
func (e *Engine) resumeParent(st *spawnState) {
	parent := st.parent
	defer e.dropSpawnState(st)

	if err := parent.TransitionFrom(core.StatusWaiting, core.StatusRunning); err != nil {
		e.logger.Info("spawn.resume_skipped", "session_id", parent.ID(), "status", string(parent.Status()))
		return
	}

	iteration := parent.Iteration()
	for _, childID := range st.childIDs {
		child, err := e.store.Get(childID)
		if err != nil {
			continue
		}
		status := child.Status()
		if !status.Terminal() {
			continue
		}
		name := child.Orchestration().Name

		if report, ok := child.Report(); ok {
			parent.Memory().Append(core.NewBlackboardEntry(iteration, core.CategoryInsight,
				fmt.Sprintf("child %q completed: %s", name, report.Summary)))
			continue
		}
		reason, detail := child.ErrorState()
		parent.Memory().Append(core.NewBlackboardEntry(iteration, core.CategoryError,
			fmt.Sprintf("child %q failed (%s): %s", name, reason, detail)))
	}

	e.publish(parent)

	if err := e.startLoop(parent, st.parentDispatcher); err != nil {
		e.logger.Error("spawn.resume_failed", "session_id", parent.ID(), "error", err.Error())
		return
	}
	e.logger.Info("spawn.parent_resumed", "session_id", parent.ID())
}

// dropSpawnState unregisters a consumed or abandoned spawn coordination.
func (e *Engine) dropSpawnState(st *spawnState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.parentSpawns[st.parent.ID()] == st {
		delete(e.parentSpawns, st.parent.ID())
	}
	for _, id := range st.childIDs {
		if e.childSpawns[id] == st {
			delete(e.childSpawns, id)
		}
	}
}

// archiveMemory exports the session's memory into the artifact store before
// a reset wipes it.
func (e *Engine) archiveMemory(s *core.Session) {
	if s.Memory().EntryCount() == 0 && s.Memory().Scratchpad() == "" {
		return
	}
	data, err := exportMemoryJSON(s)
	if err != nil {
		e.logger.Warn("engine.reset.archive_failed", "session_id", s.ID(), "error", err.Error())
		return
	}
	export := core.ExportedArtifact{
		SessionID:  s.ID(),
		ArtifactID: "memory-archive-" + core.NewID(),
		Type:       core.ArtifactData,
		Title:      "memory archive",
		MimeType:   "application/json",
		Data:       data,
	}
	if err := e.artifacts.Save(export); err != nil {
		e.logger.Warn("engine.reset.archive_failed", "session_id", s.ID(), "error", err.Error())
		return
	}
	e.logger.Info("engine.reset.archived", "session_id", s.ID(), "artifact_id", export.ArtifactID)
}
