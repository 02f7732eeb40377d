package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/hupe1980/freeagent/core"
)

// ParseError marks a collaborator answer that could not be decoded into a
// Decision. It is a transient fault handled by the retry path, distinct from
// a declared task failure.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable decision: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseDecision decodes a free-text collaborator answer into a Decision.
// Fenced code blocks are unwrapped, then strict JSON decoding is tried, then
// a repair pass for the usual LLM malformations (trailing commas, single
// quotes, unquoted keys). Anything still undecodable, or a decision naming
// no action, returns *ParseError.
func ParseDecision(raw string) (*Decision, error) {
	text := stripFences(strings.TrimSpace(raw))
	if text == "" {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("empty response")}
	}

	var d Decision
	if err := json.Unmarshal([]byte(text), &d); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(text)
		if repairErr != nil {
			return nil, &ParseError{Raw: raw, Err: err}
		}
		if err := json.Unmarshal([]byte(repaired), &d); err != nil {
			return nil, &ParseError{Raw: raw, Err: err}
		}
	}

	if d.Empty() {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("decision names no tool call, completion or failure")}
	}

	stampCallIDs(&d)

	return &d, nil
}

// ParseParams decodes a tool call argument payload, with the same repair
// fallback as ParseDecision. An empty payload yields an empty map.
func ParseParams(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return nil, &ParseError{Raw: raw, Err: err}
		}
		if err := json.Unmarshal([]byte(repaired), &params); err != nil {
			return nil, &ParseError{Raw: raw, Err: err}
		}
	}
	return params, nil
}

// stampCallIDs assigns fresh ids to calls the collaborator left unlabeled.
func stampCallIDs(d *Decision) {
	for i := range d.ToolCalls {
		if d.ToolCalls[i].ID == "" {
			d.ToolCalls[i].ID = core.NewID()
		}
	}
}

// stripFences unwraps ```json ... ``` style fencing around a payload.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
