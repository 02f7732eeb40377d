package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/freeagent/artifact"
	"github.com/hupe1980/freeagent/core"
	"github.com/hupe1980/freeagent/logging"
	"github.com/hupe1980/freeagent/reasoning"
	"github.com/hupe1980/freeagent/session"
	"github.com/hupe1980/freeagent/tool"
)

// run tracks one active session loop: its lifetime cancel, the in-flight
// iteration cancel and the interject rerun flag.
type run struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.Mutex
	iterCancel context.CancelFunc

	rerun atomic.Bool
}

// setIterCancel installs the current iteration's cancel func.
func (r *run) setIterCancel(cancel context.CancelFunc) {
	r.mu.Lock()
	r.iterCancel = cancel
	r.mu.Unlock()
}

// cancelIteration aborts the in-flight iteration, if any.
func (r *run) cancelIteration() {
	r.mu.Lock()
	cancel := r.iterCancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Engine hosts session loops and the control plane around them. All command
// methods are safe for concurrent use.
type Engine struct {
	cfg          Config
	collaborator reasoning.Collaborator
	store        core.SessionStore
	artifacts    core.ArtifactStore
	extraTools   []tool.Tool
	logger       logging.Logger

	mu          sync.Mutex
	runs        map[string]*run
	dispatchers map[string]*tool.Dispatcher
	// childSpawns maps a child session id to its spawn coordinator state.
	// The watch lives on the engine, not on the loop invocation, so a child
	// that pauses and is resumed by the operator still reports back to its
	// parent when it eventually finishes.
	childSpawns  map[string]*spawnState
	parentSpawns map[string]*spawnState
	subs         map[string]map[int]chan core.SessionView
	nextSubID    int
	closed       bool

	wg sync.WaitGroup
}

// New constructs an engine around the given reasoning collaborator.
func New(collaborator reasoning.Collaborator, optFns ...func(o *Options)) (*Engine, error) {
	if collaborator == nil {
		return nil, fmt.Errorf("nil collaborator")
	}

	opts := Options{
		Config: DefaultConfig(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Config.normalize()
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.SessionStore == nil {
		opts.SessionStore = session.NewInMemoryStore()
	}
	if opts.ArtifactStore == nil {
		opts.ArtifactStore = artifact.NewInMemoryStore()
	}

	return &Engine{
		cfg:          opts.Config,
		collaborator: collaborator,
		store:        opts.SessionStore,
		artifacts:    opts.ArtifactStore,
		extraTools:   opts.Tools,
		logger:       opts.Logger,
		runs:         make(map[string]*run),
		dispatchers:  make(map[string]*tool.Dispatcher),
		childSpawns:  make(map[string]*spawnState),
		parentSpawns: make(map[string]*spawnState),
		subs:         make(map[string]map[int]chan core.SessionView),
	}, nil
}

// CreateSessionOptions configure a new session.
type CreateSessionOptions struct {
	Prompt        string
	Model         string
	Files         []core.InputFile
	MaxIterations int
	SelfAuthoring bool
	Sections      []core.InstructionSection
}

// CreateSession registers a new idle session and returns its id.
func (e *Engine) CreateSession(optFns ...func(o *CreateSessionOptions)) (string, error) {
	opts := CreateSessionOptions{MaxIterations: e.cfg.MaxIterations}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = e.cfg.MaxIterations
	}

	s := core.NewSession(func(o *core.SessionOptions) {
		o.Prompt = opts.Prompt
		o.Model = opts.Model
		o.Files = opts.Files
		o.MaxIterations = opts.MaxIterations
		o.SelfAuthoring = opts.SelfAuthoring
		o.Sections = opts.Sections
	})

	if err := e.register(s); err != nil {
		return "", err
	}

	e.logger.Info("engine.session.created", "session_id", s.ID(), "max_iterations", opts.MaxIterations)

	return s.ID(), nil
}

// register stores a session and builds its dispatcher.
func (e *Engine) register(s *core.Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	d, err := e.newDispatcher()
	if err != nil {
		return err
	}
	if err := e.store.Put(s); err != nil {
		return err
	}
	e.dispatchers[s.ID()] = d
	return nil
}

// newDispatcher builds a session-scoped dispatcher over the built-in tool set
// plus the engine's extra tools.
func (e *Engine) newDispatcher() (*tool.Dispatcher, error) {
	tools := tool.BuiltinTools(func(o *tool.BuiltinOptions) {
		o.ArtifactStore = e.artifacts
		o.MaxChildren = e.cfg.MaxChildren
	})
	tools = append(tools, e.extraTools...)

	registry, err := tool.NewRegistry(tools...)
	if err != nil {
		return nil, err
	}
	return tool.NewDispatcher(registry, func(o *tool.DispatcherOptions) {
		o.Logger = e.logger
		o.Cache = e.cfg.Cache
		o.MaxInlineChars = e.cfg.MaxInlineChars
	})
}

// session resolves a stored session and its dispatcher.
func (e *Engine) session(id string) (*core.Session, *tool.Dispatcher, error) {
	s, err := e.store.Get(id)
	if err != nil {
		return nil, nil, err
	}
	e.mu.Lock()
	d := e.dispatchers[id]
	e.mu.Unlock()
	if d == nil {
		return nil, nil, fmt.Errorf("no dispatcher for session %s", id)
	}
	return s, d, nil
}

// Start begins (or resumes after completion/error) the session's iteration
// loop.
func (e *Engine) Start(sessionID string) error {
	s, d, err := e.session(sessionID)
	if err != nil {
		return err
	}
	if err := s.Transition(core.StatusRunning); err != nil {
		return err
	}
	if err := e.startLoop(s, d); err != nil {
		return err
	}
	e.logger.Info("engine.session.started", "session_id", sessionID)
	return nil
}

// startLoop registers a run slot and launches the loop goroutine. The caller
// must already have transitioned the session to running. When the loop
// finishes, a session watched by a spawn coordinator reports its exit to the
// coordinator regardless of how the loop was started, so operator resumes
// (retry, assistance) keep counting toward the parent's threshold.
//
// A previous loop that just left running may still hold the run slot for a
// moment; startLoop waits for it to release the slot instead of failing, so
// Retry and RespondToAssistance cannot race the exiting goroutine.
func (e *Engine) startLoop(s *core.Session, d *tool.Dispatcher) error {
	e.mu.Lock()
	for {
		if e.closed {
			e.mu.Unlock()
			return ErrClosed
		}
		prev, active := e.runs[s.ID()]
		if !active {
			break
		}
		e.mu.Unlock()
		select {
		case <-prev.done:
		case <-time.After(time.Second):
			return ErrAlreadyRunning
		}
		e.mu.Lock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	rn := &run{cancel: cancel, done: make(chan struct{})}
	e.runs[s.ID()] = rn
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		defer close(rn.done)
		e.runLoop(ctx, s, d, rn)
		e.mu.Lock()
		if e.runs[s.ID()] == rn {
			delete(e.runs, s.ID())
		}
		st := e.childSpawns[s.ID()]
		e.mu.Unlock()
		if st != nil {
			e.childExited(st, s)
		}
	}()

	return nil
}

// Stop cancels the session loop and returns the session to idle.
func (e *Engine) Stop(sessionID string) error {
	s, _, err := e.session(sessionID)
	if err != nil {
		return err
	}

	e.haltLoop(sessionID)

	if err := s.Transition(core.StatusIdle); err != nil {
		return err
	}
	e.publish(s)
	e.logger.Info("engine.session.stopped", "session_id", sessionID)
	return nil
}

// haltLoop cancels an active run and waits for the loop goroutine to exit.
func (e *Engine) haltLoop(sessionID string) {
	e.mu.Lock()
	rn := e.runs[sessionID]
	if rn != nil {
		delete(e.runs, sessionID)
	}
	e.mu.Unlock()
	if rn != nil {
		rn.cancel()
		<-rn.done
	}
}

// Reset stops the session, archives its memory, removes its children and
// returns it to a fresh idle state with an empty cache.
func (e *Engine) Reset(sessionID string) error {
	s, d, err := e.session(sessionID)
	if err != nil {
		return err
	}

	e.haltLoop(sessionID)

	// detach from any spawn coordination: a reset orchestrator is never
	// resumed by leftover children, and a reset child stops counting toward
	// its old parent's threshold
	e.mu.Lock()
	st := e.parentSpawns[sessionID]
	delete(e.childSpawns, sessionID)
	e.mu.Unlock()
	if st != nil {
		e.dropSpawnState(st)
	}

	e.archiveMemory(s)

	for _, childID := range s.Orchestration().ChildIDs {
		e.haltLoop(childID)
		e.mu.Lock()
		delete(e.dispatchers, childID)
		e.mu.Unlock()
		if err := e.store.Delete(childID); err != nil {
			e.logger.Warn("engine.reset.child_delete_failed", "session_id", sessionID, "child_id", childID, "error", err.Error())
		}
	}

	s.Reset()
	d.ResetCache()
	e.publish(s)
	e.logger.Info("engine.session.reset", "session_id", sessionID)
	return nil
}

// Continue extends the iteration budget of a session that exhausted it and
// resumes the loop. extra <= 0 grants the configured default extension.
func (e *Engine) Continue(sessionID string, extra int) error {
	s, d, err := e.session(sessionID)
	if err != nil {
		return err
	}
	if extra <= 0 {
		extra = e.cfg.ContinueExtension
	}

	s.ExtendBudget(extra)
	s.ClearError()
	if err := s.Transition(core.StatusRunning); err != nil {
		return err
	}
	if err := e.startLoop(s, d); err != nil {
		return err
	}
	e.logger.Info("engine.session.continued", "session_id", sessionID, "extra_iterations", extra)
	return nil
}

// Retry resumes a paused or errored session, re-running the iteration that
// failed. The parse retry counter is preserved so repeated malformed answers
// still exhaust the limit.
func (e *Engine) Retry(sessionID string) error {
	s, d, err := e.session(sessionID)
	if err != nil {
		return err
	}
	status := s.Status()
	if status != core.StatusPaused && status != core.StatusError {
		return fmt.Errorf("%w: %s", ErrNotRetryable, status)
	}

	s.ClearError()
	if err := s.Transition(core.StatusRunning); err != nil {
		return err
	}
	if err := e.startLoop(s, d); err != nil {
		return err
	}
	e.logger.Info("engine.session.retried", "session_id", sessionID)
	return nil
}

// Interject appends an operator message to the blackboard and forces the
// running session to re-execute its current iteration with the new entry
// visible. The iteration counter does not advance and the status is
// unchanged. A session blocked on assistance has no loop goroutine; the
// interjection is still accepted and becomes visible when the blocked
// iteration re-runs after resolution.
func (e *Engine) Interject(sessionID, message string) error {
	s, _, err := e.session(sessionID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	rn := e.runs[sessionID]
	e.mu.Unlock()
	if rn == nil && s.Status() != core.StatusNeedsAssistance {
		return ErrNotRunning
	}

	s.Memory().Append(core.NewBlackboardEntry(s.Iteration(), core.CategoryObservation, "operator interjection: "+message))
	if rn != nil {
		rn.rerun.Store(true)
		rn.cancelIteration()
	}

	e.publish(s)
	e.logger.Info("engine.session.interjected", "session_id", sessionID)
	return nil
}

// RespondToAssistance resolves the pending assistance request. The request
// id must match the pending one; a stale or unknown id fails and leaves the
// session untouched. The answer lands on the blackboard and the blocked
// iteration re-runs.
func (e *Engine) RespondToAssistance(sessionID string, resp core.AssistanceResponse) error {
	s, d, err := e.session(sessionID)
	if err != nil {
		return err
	}
	if s.Status() != core.StatusNeedsAssistance {
		return ErrNoAssistancePending
	}
	if err := s.ResolveAssistance(resp.RequestID); err != nil {
		return err
	}

	s.Memory().Append(core.NewBlackboardEntry(s.Iteration(), core.CategoryObservation, "operator response: "+resp.Answer()))

	if err := s.Transition(core.StatusRunning); err != nil {
		return err
	}
	if err := e.startLoop(s, d); err != nil {
		return err
	}
	e.publish(s)
	e.logger.Info("engine.assistance.resolved", "session_id", sessionID, "request_id", resp.RequestID)
	return nil
}

// UpdateScratchpad applies an operator scratchpad write.
func (e *Engine) UpdateScratchpad(sessionID string, mode core.ScratchpadMode, text string) error {
	s, _, err := e.session(sessionID)
	if err != nil {
		return err
	}
	if err := s.Memory().WriteScratchpad(mode, text); err != nil {
		return err
	}
	e.publish(s)
	return nil
}

// View returns the read-only projection of the session.
func (e *Engine) View(sessionID string) (core.SessionView, error) {
	s, err := e.store.Get(sessionID)
	if err != nil {
		return core.SessionView{}, err
	}
	return s.View(), nil
}

// Sessions returns the stored session ids.
func (e *Engine) Sessions() []string { return e.store.List() }

// CacheSize reports the session's cached (tool, params) pair count.
func (e *Engine) CacheSize(sessionID string) (int, error) {
	_, d, err := e.session(sessionID)
	if err != nil {
		return 0, err
	}
	return d.CacheSize(), nil
}

// ActiveTools returns the tool names available to the session.
func (e *Engine) ActiveTools(sessionID string) ([]string, error) {
	_, d, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}
	return d.Names(), nil
}

// Close cancels all active loops and waits for them to exit. Subscriber
// channels are closed.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	runs := make([]*run, 0, len(e.runs))
	for _, rn := range e.runs {
		runs = append(runs, rn)
	}
	e.runs = make(map[string]*run)
	e.mu.Unlock()

	for _, rn := range runs {
		rn.cancel()
		<-rn.done
	}
	e.wg.Wait()

	e.mu.Lock()
	for _, chans := range e.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	e.subs = make(map[string]map[int]chan core.SessionView)
	e.mu.Unlock()

	return nil
}
