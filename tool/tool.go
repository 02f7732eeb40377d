package tool

import (
	"fmt"

	"github.com/hupe1980/freeagent/core"
	"github.com/hupe1980/freeagent/internal/util"
)

// Kind separates the two handler families the dispatcher routes to.
type Kind string

const (
	// KindLocal handlers operate synchronously against session memory.
	KindLocal Kind = "local"
	// KindRemote handlers delegate to an external service boundary.
	KindRemote Kind = "remote"
)

// Tool defines the interface for a dispatchable capability.
//
// Tool implementations should:
//   - Provide clear, descriptive names (snake_case) and descriptions
//   - Define a JSON schema for parameters
//   - Handle errors gracefully and return *ToolError for classified failures
//   - Be safe for concurrent use: calls within one iteration execute
//     concurrently with no ordering guarantee
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description provided to the
	// reasoning collaborator.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Kind reports whether the tool is a local or remote handler.
	Kind() Kind

	// Call executes the tool with validated arguments and the constrained
	// ToolContext surface.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes used across the dispatch subsystem.
const (
	// CodeValidation marks schema / argument mismatches and invalid specs.
	CodeValidation = "VALIDATION_ERROR"
	// CodeExecution marks failures inside a handler.
	CodeExecution = "EXECUTION_ERROR"
	// CodeUnknownTool marks dispatch against an unregistered name.
	CodeUnknownTool = "UNKNOWN_TOOL"
	// CodeFeatureDisabled marks self-authoring use without the feature flag.
	CodeFeatureDisabled = "FEATURE_DISABLED"
	// CodeAssistancePending marks a duplicate assistance request.
	CodeAssistancePending = "ASSISTANCE_PENDING"
	// CodeTransport marks remote boundary faults normalized into the envelope.
	CodeTransport = "TRANSPORT_ERROR"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string      `json:"tool"`              // Name of the tool that failed
	Message string      `json:"message"`           // Error message
	Code    string      `json:"code"`              // Error code for categorization
	Details interface{} `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
