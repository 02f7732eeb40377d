package reasoning

import "github.com/hupe1980/freeagent/core"

// Reserved tool names provider adapters expose for terminal signals. They
// are never dispatched; ApplyControlCalls folds them into the decision.
const (
	// ControlComplete declares the task finished with a summary.
	ControlComplete = "task_complete"
	// ControlFailed declares the task unachievable with a reason.
	ControlFailed = "task_failed"
)

// ControlDefinitions returns the reserved signal tools appended to the
// dispatchable tool declarations in provider requests.
func ControlDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        ControlComplete,
			Description: "Declare the task complete. Call this once the task is done and all outputs are produced.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"summary": map[string]any{
						"type":        "string",
						"description": "Summary of what was accomplished",
					},
				},
				"required": []string{"summary"},
			},
		},
		{
			Name:        ControlFailed,
			Description: "Declare the task unachievable. Call this only when no further progress is possible.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"reason": map[string]any{
						"type":        "string",
						"description": "Why the task cannot be completed",
					},
				},
				"required": []string{"reason"},
			},
		},
	}
}

// ApplyControlCalls moves reserved signal calls out of ToolCalls into the
// decision's terminal fields. Remaining calls keep their order and get ids
// stamped.
func ApplyControlCalls(d *Decision) {
	kept := d.ToolCalls[:0]
	for _, call := range d.ToolCalls {
		switch call.Name {
		case ControlComplete:
			summary, _ := call.Params["summary"].(string)
			d.Complete = &Completion{Summary: summary}
		case ControlFailed:
			reason, _ := call.Params["reason"].(string)
			d.Failed = &Failure{Reason: reason}
		default:
			if call.ID == "" {
				call.ID = core.NewID()
			}
			kept = append(kept, call)
		}
	}
	d.ToolCalls = kept
}
