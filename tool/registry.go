package tool

import "fmt"

// Definition is the provider-neutral tool declaration handed to the
// reasoning boundary.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Registry is the static name-to-handler lookup table built at startup.
// Registration after construction is not supported: the tool identifier set
// is closed for the lifetime of the dispatcher, so resolution is a plain
// map lookup rather than runtime reflection.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds the lookup table, rejecting duplicate names.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if t.Name() == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, dup := r.tools[t.Name()]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", t.Name())
		}
		r.tools[t.Name()] = t
		r.order = append(r.order, t.Name())
	}
	return r, nil
}

// Get resolves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Definitions returns declarations for all registered tools in
// registration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, Definition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return out
}
