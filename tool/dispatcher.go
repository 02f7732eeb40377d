package tool

import (
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/freeagent/core"
	"github.com/hupe1980/freeagent/logging"
)

// Result is the uniform execution envelope for a single tool call. Failures
// never propagate as Go errors out of the dispatcher; they are reported in
// the envelope so one failed call cannot abort its iteration siblings.
type Result struct {
	Tool      string              `json:"tool"`
	Success   bool                `json:"success"`
	Result    any                 `json:"result,omitempty"`
	Error     *ToolError          `json:"error,omitempty"`
	Attribute *core.AttributeInfo `json:"attribute,omitempty"`
	Cached    bool                `json:"cached"`
	Duration  time.Duration       `json:"duration"`
}

// String renders the envelope for audit records.
func (r Result) String() string {
	if !r.Success {
		return fmt.Sprintf("%s: error: %s", r.Tool, r.Error.Message)
	}
	if r.Cached {
		return fmt.Sprintf("%s: ok (cached)", r.Tool)
	}
	return fmt.Sprintf("%s: ok", r.Tool)
}

// DispatcherOptions configure a session-scoped dispatcher.
type DispatcherOptions struct {
	// Logger receives dispatch telemetry. Defaults to NoOpLogger.
	Logger logging.Logger
	// Cache configures idempotent-call caching.
	Cache CacheConfig
	// MaxInlineChars bounds inline results before attribute detachment.
	MaxInlineChars int
}

// Dispatcher routes validated tool calls to their handlers and normalizes
// outcomes into Result envelopes. One dispatcher serves one session: the
// call cache it owns is session-scoped state.
type Dispatcher struct {
	registry *Registry
	cache    *CallCache
	policy   *AttributePolicy
	logger   logging.Logger
}

// NewDispatcher builds a dispatcher over the given registry.
func NewDispatcher(registry *Registry, optFns ...func(o *DispatcherOptions)) (*Dispatcher, error) {
	opts := DispatcherOptions{
		Logger: logging.NoOpLogger{},
		Cache:  DefaultCacheConfig(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	cache, err := NewCallCache(opts.Cache)
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		registry: registry,
		cache:    cache,
		policy:   NewAttributePolicy(opts.MaxInlineChars),
		logger:   opts.Logger,
	}, nil
}

// Definitions returns the registered tool declarations in registration order.
func (d *Dispatcher) Definitions() []Definition { return d.registry.Definitions() }

// Names returns the registered tool names.
func (d *Dispatcher) Names() []string { return d.registry.Names() }

// CacheSize reports the number of cached (tool, params) pairs.
func (d *Dispatcher) CacheSize() int { return d.cache.Len() }

// ResetCache drops all cached results (session reset).
func (d *Dispatcher) ResetCache() { d.cache.Purge() }

// Execute runs one tool call to completion and returns its envelope.
// The sequence is: resolve, cache lookup, handler call, attribute policy,
// cache store. Unknown names and handler failures both land in the envelope
// with a classified *ToolError.
func (d *Dispatcher) Execute(toolCtx *core.ToolContext, name string, params map[string]any) Result {
	start := time.Now()

	t, ok := d.registry.Get(name)
	if !ok {
		d.logger.Warn("dispatch.unknown_tool", "tool", name, "session_id", toolCtx.SessionID())
		return Result{
			Tool:     name,
			Success:  false,
			Error:    NewToolError(name, fmt.Sprintf("unknown tool %q", name), CodeUnknownTool),
			Duration: time.Since(start),
		}
	}

	if cached, hit := d.cache.Get(name, params); hit {
		d.logger.Debug("dispatch.cache_hit", "tool", name, "session_id", toolCtx.SessionID())
		cached.Cached = true
		cached.Duration = time.Since(start)
		return cached
	}

	raw, err := t.Call(toolCtx, params)
	if err != nil {
		return Result{
			Tool:     name,
			Success:  false,
			Error:    asToolError(name, err),
			Duration: time.Since(start),
		}
	}

	value, attr, err := d.policy.Apply(toolCtx, name, raw)
	if err != nil {
		return Result{
			Tool:     name,
			Success:  false,
			Error:    asToolError(name, err),
			Duration: time.Since(start),
		}
	}

	res := Result{
		Tool:     name,
		Success:  true,
		Result:   value,
		Duration: time.Since(start),
	}
	if attr != nil {
		info := attr.Info()
		res.Attribute = &info
		d.logger.Info("dispatch.result_detached", "tool", name, "attribute", attr.Name, "size", attr.Size, "binary", attr.Binary)
	}

	d.cache.Add(name, params, res)

	return res
}

// asToolError coerces handler errors into *ToolError.
func asToolError(tool string, err error) *ToolError {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}
	return NewToolError(tool, err.Error(), CodeExecution)
}
