// Package freeagent provides a high-level façade over the core Engine and
// service abstractions (sessions, artifacts, memory & logging) enabling rapid
// construction of long-running agent sessions. Most applications interact
// with this package by:
//  1. Creating a FreeAgent via New() (optionally overriding default in-memory services)
//  2. Creating sessions with a prompt and optional input files
//  3. Starting sessions and observing their progress via RunSync or Subscribe
//
// The façade delegates orchestration to engine.Engine while keeping setup
// and usage ergonomics concise. All defaults are safe for local development
// and testing; production deployments typically supply durable store
// implementations and a structured logger.
package freeagent

import (
	"context"
	"fmt"

	"github.com/hupe1980/freeagent/artifact"
	"github.com/hupe1980/freeagent/core"
	"github.com/hupe1980/freeagent/engine"
	"github.com/hupe1980/freeagent/logging"
	"github.com/hupe1980/freeagent/reasoning"
	"github.com/hupe1980/freeagent/session"
	"github.com/hupe1980/freeagent/tool"
)

// Options configures the FreeAgent instance.
type Options struct {
	// EngineConfig holds the loop bounds (iteration budget, retry limit,
	// snapshot tail, spawn limits, cache size).
	EngineConfig engine.Config

	// Stores (defaults to in-memory implementations if not provided)
	SessionStore  core.SessionStore
	ArtifactStore core.ArtifactStore

	// Tools are additional (typically remote) tools registered alongside the
	// built-in set.
	Tools []tool.Tool

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// FreeAgent is the high-level façade aggregating the underlying engine and
// services.
type FreeAgent struct {
	opts   Options
	engine *engine.Engine
}

// New creates a new FreeAgent instance around the given reasoning
// collaborator. Any unset service is initialized with an in-memory
// implementation.
func New(collaborator reasoning.Collaborator, optFns ...func(o *Options)) (*FreeAgent, error) {
	opts := Options{
		EngineConfig:  engine.DefaultConfig(),
		SessionStore:  session.NewInMemoryStore(),
		ArtifactStore: artifact.NewInMemoryStore(),
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	eng, err := engine.New(collaborator, func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.SessionStore = opts.SessionStore
		o.ArtifactStore = opts.ArtifactStore
		o.Tools = opts.Tools
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	return &FreeAgent{opts: opts, engine: eng}, nil
}

// Engine exposes the underlying engine for direct control-plane access
// (interject, assistance, subscriptions, spawn observation).
func (f *FreeAgent) Engine() *engine.Engine { return f.engine }

// CreateSession registers a new idle session and returns its id.
func (f *FreeAgent) CreateSession(optFns ...func(o *engine.CreateSessionOptions)) (string, error) {
	return f.engine.CreateSession(optFns...)
}

// Start begins the session's iteration loop.
func (f *FreeAgent) Start(sessionID string) error { return f.engine.Start(sessionID) }

// View returns the session's read-only projection.
func (f *FreeAgent) View(sessionID string) (core.SessionView, error) {
	return f.engine.View(sessionID)
}

// RunSync starts the session and blocks until it reaches a state requiring
// outside input (completed, error, paused, needs_assistance) or the context
// is canceled. It returns the final view.
func (f *FreeAgent) RunSync(ctx context.Context, sessionID string) (core.SessionView, error) {
	updates, cancel, err := f.engine.Subscribe(sessionID)
	if err != nil {
		return core.SessionView{}, err
	}
	defer cancel()

	if err := f.engine.Start(sessionID); err != nil {
		return core.SessionView{}, err
	}

	for {
		select {
		case <-ctx.Done():
			if err := f.engine.Stop(sessionID); err != nil {
				return core.SessionView{}, fmt.Errorf("stop after cancel: %w", err)
			}
			return core.SessionView{}, ctx.Err()
		case view, ok := <-updates:
			if !ok {
				return f.engine.View(sessionID)
			}
			switch view.Status {
			case core.StatusCompleted, core.StatusError, core.StatusPaused, core.StatusNeedsAssistance:
				return view, nil
			}
		}
	}
}

// Close shuts down the underlying engine.
func (f *FreeAgent) Close() error { return f.engine.Close() }
