package tool

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/freeagent/core"
)

// RemoteInvoker is the external service boundary for remote tools (search,
// scraping, repository access, media generation, ...). The dispatcher is
// agnostic to how it is implemented; any backend that can resolve a named
// capability and return a result or error is acceptable.
type RemoteInvoker interface {
	Invoke(ctx context.Context, name string, params map[string]any) (any, error)
}

// InvokerFunc adapts an ordinary function to the RemoteInvoker interface.
type InvokerFunc func(ctx context.Context, name string, params map[string]any) (any, error)

// Invoke implements RemoteInvoker.
func (f InvokerFunc) Invoke(ctx context.Context, name string, params map[string]any) (any, error) {
	return f(ctx, name, params)
}

// BinaryResult is the conventional shape for remote (or local file) results
// carrying non-text payloads. The attribute policy detaches it into a
// ToolResultAttribute instead of echoing bytes into the scratchpad.
type BinaryResult struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// RemoteTool delegates execution to a RemoteInvoker keyed by the tool name.
// Transport failures are normalized into *ToolError with CodeTransport so
// an unreachable boundary degrades to a per-call error, preserving
// iteration continuity.
type RemoteTool struct {
	name        string
	description string
	parameters  map[string]any
	invoker     RemoteInvoker
}

// NewRemoteTool constructs a remote handler for the named capability.
func NewRemoteTool(name, description string, parameters map[string]any, invoker RemoteInvoker) *RemoteTool {
	return &RemoteTool{
		name:        name,
		description: description,
		parameters:  parameters,
		invoker:     invoker,
	}
}

// Name returns the capability name.
func (t *RemoteTool) Name() string { return t.name }

// Description returns the description exposed to the collaborator.
func (t *RemoteTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *RemoteTool) Parameters() map[string]any { return t.parameters }

// Kind reports the remote handler family.
func (t *RemoteTool) Kind() Kind { return KindRemote }

// Call invokes the remote boundary with the per-iteration context so
// cancellation aborts in-flight transport work.
func (t *RemoteTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	logger := toolCtx.Logger()
	start := time.Now()

	logger.Debug("tool.remote.start", "tool", t.name, "call_id", toolCtx.CallID())

	result, err := t.invoker.Invoke(toolCtx.Context(), t.name, args)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			logger.Error("tool.remote.error", "tool", t.name, "code", toolErr.Code, "error", toolErr.Message)
			return nil, toolErr
		}

		logger.Error("tool.remote.error", "tool", t.name, "code", CodeTransport, "error", err.Error())

		return nil, &ToolError{Tool: t.name, Message: err.Error(), Code: CodeTransport}
	}

	logger.Info("tool.remote.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
