package tool

import (
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/freeagent/core"
	"github.com/hupe1980/freeagent/internal/util"
)

// LocalTool adapts a plain Go function into a local handler operating
// against session memory through the ToolContext.
//
// Responsibilities:
//   - Holds a JSON-Schema-like parameter specification
//   - Validates supplied arguments against that schema before execution
//   - Normalizes error handling so callers receive *ToolError with
//     consistent codes (VALIDATION_ERROR, EXECUTION_ERROR; domain sentinels
//     from core map to FEATURE_DISABLED / ASSISTANCE_PENDING)
//
// A LocalTool has no internal mutable state after construction and is safe
// for concurrent use by multiple goroutines.
type LocalTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// NewLocalTool constructs a LocalTool from explicit schema and function.
func NewLocalTool(
	name, description string,
	parameters map[string]any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *LocalTool {
	return &LocalTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewLocalToolFromStruct derives the parameter schema from a struct using
// reflection, equivalent to util.CreateSchema(structType).
func NewLocalToolFromStruct(
	name, description string,
	structType any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *LocalTool {
	return NewLocalTool(name, description, util.CreateSchema(structType), fn)
}

// Name returns the unique tool name used in routing.
func (t *LocalTool) Name() string { return t.name }

// Description returns the description exposed to the collaborator.
func (t *LocalTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *LocalTool) Parameters() map[string]any { return t.parameters }

// Kind reports the local handler family.
func (t *LocalTool) Kind() Kind { return KindLocal }

// Call validates the provided args against the declared schema then invokes
// the underlying function. Failures are wrapped (or passed through) as
// *ToolError for uniform downstream handling.
func (t *LocalTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	logger := toolCtx.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "call_id", toolCtx.CallID())

	if err := util.ValidateParameters(args, t.parameters); err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
		}
	}

	result, err := t.fn(toolCtx, args)
	if err != nil {
		toolErr := classifyLocalError(t.name, err)
		logger.Error("tool.call.error", "tool", t.name, "code", toolErr.Code, "error", toolErr.Message)
		return nil, toolErr
	}

	logger.Info("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

// classifyLocalError maps domain sentinel errors onto dispatcher error
// codes; *ToolError passes through unchanged.
func classifyLocalError(tool string, err error) *ToolError {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}

	code := CodeExecution
	switch {
	case errors.Is(err, core.ErrSelfAuthoringDisabled):
		code = CodeFeatureDisabled
	case errors.Is(err, core.ErrAssistancePending):
		code = CodeAssistancePending
	case errors.Is(err, core.ErrSpawnPending),
		errors.Is(err, core.ErrUnknownSection),
		errors.Is(err, core.ErrAttributeExists),
		errors.Is(err, core.ErrFileNotFound):
		code = CodeValidation
	}

	return &ToolError{Tool: tool, Message: err.Error(), Code: code}
}
