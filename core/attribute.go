package core

import "fmt"

// ToolResultAttribute is a named, cached tool result detached from the
// scratchpad/blackboard flow. Oversized or binary tool output is stored once
// as an attribute; every later reference uses the placeholder token instead
// of duplicating payload bytes into reasoning input. Attributes are immutable
// once created; re-running a tool registers a new attribute under a new name.
type ToolResultAttribute struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Tool         string `json:"tool"`
	Iteration    int    `json:"iteration"`
	Size         int    `json:"size"`
	Binary       bool   `json:"binary"`
	MimeType     string `json:"mime_type,omitempty"`
	Value        any    `json:"value"`
	ResultString string `json:"result_string"`
}

// Placeholder returns the token used in scratchpad and reasoning input in
// place of the raw payload.
func (a ToolResultAttribute) Placeholder() string {
	return "{{" + a.Name + "}}"
}

// AttributeInfo is the metadata-only projection of an attribute used in
// memory snapshots and in get_attributes calls without names. It never
// carries the payload, keeping snapshot size independent of result size.
type AttributeInfo struct {
	Name      string `json:"name"`
	Tool      string `json:"tool"`
	Iteration int    `json:"iteration"`
	Size      int    `json:"size"`
	Binary    bool   `json:"binary"`
	MimeType  string `json:"mime_type,omitempty"`
}

// Info returns the metadata projection of the attribute.
func (a ToolResultAttribute) Info() AttributeInfo {
	return AttributeInfo{
		Name:      a.Name,
		Tool:      a.Tool,
		Iteration: a.Iteration,
		Size:      a.Size,
		Binary:    a.Binary,
		MimeType:  a.MimeType,
	}
}

// String renders the metadata summary (not the payload).
func (a AttributeInfo) String() string {
	kind := "text"
	if a.Binary {
		kind = a.MimeType
		if kind == "" {
			kind = "binary"
		}
	}
	return fmt.Sprintf("%s (%s, %d bytes, iteration %d, tool %s)", a.Name, kind, a.Size, a.Iteration, a.Tool)
}
