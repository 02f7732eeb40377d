package core

import "time"

// AssistanceInputType selects the input affordance shown to the operator.
type AssistanceInputType string

const (
	// AssistanceText requests a freeform text answer.
	AssistanceText AssistanceInputType = "text"
	// AssistanceChoice requests a selection from Choices.
	AssistanceChoice AssistanceInputType = "choice"
	// AssistanceFile requests a file reference.
	AssistanceFile AssistanceInputType = "file"
)

// Valid reports whether t is a known input type.
func (t AssistanceInputType) Valid() bool {
	switch t {
	case AssistanceText, AssistanceChoice, AssistanceFile:
		return true
	default:
		return false
	}
}

// AssistanceRequest is a blocking human-in-the-loop question. At most one
// exists per session at a time, only while the session status is
// needs_assistance, and it is resolved exactly once.
type AssistanceRequest struct {
	ID        string              `json:"id"`
	Question  string              `json:"question"`
	Context   string              `json:"context,omitempty"`
	InputType AssistanceInputType `json:"input_type"`
	Choices   []string            `json:"choices,omitempty"`
	Created   time.Time           `json:"created"`
}

// NewAssistanceRequest creates a request stamped with a fresh id and UTC
// time. An unknown input type falls back to text.
func NewAssistanceRequest(question, context string, inputType AssistanceInputType, choices []string) AssistanceRequest {
	if !inputType.Valid() {
		inputType = AssistanceText
	}
	return AssistanceRequest{
		ID:        NewID(),
		Question:  question,
		Context:   context,
		InputType: inputType,
		Choices:   choices,
		Created:   time.Now().UTC(),
	}
}

// AssistanceResponse is the operator's single-shot resolution of a pending
// request, keyed by the request id.
type AssistanceResponse struct {
	RequestID      string `json:"request_id"`
	Response       string `json:"response,omitempty"`
	SelectedChoice string `json:"selected_choice,omitempty"`
	FileReference  string `json:"file_reference,omitempty"`
}

// Answer returns whichever of the response fields was populated.
func (r AssistanceResponse) Answer() string {
	switch {
	case r.Response != "":
		return r.Response
	case r.SelectedChoice != "":
		return r.SelectedChoice
	default:
		return r.FileReference
	}
}
