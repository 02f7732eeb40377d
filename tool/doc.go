// Package tool implements the dispatch subsystem that routes the reasoning
// collaborator's tool calls to concrete capabilities: local handlers that
// operate synchronously against session memory, and remote handlers
// delegated to an external service boundary.
//
// The dispatcher normalizes every outcome into a uniform Result envelope
// (success flag plus result or error), applies the attribute policy that
// detaches binary or oversized results into placeholder-referenced
// ToolResultAttributes, and serves repeated identical (tool, params) pairs
// from a session-scoped LRU cache instead of re-invoking the remote
// boundary.
//
// Failure semantics: an unknown tool name, a validation failure or a remote
// transport fault is a terminal per-call error — never a thrown fault that
// aborts the iteration or its sibling calls.
package tool
