// Package session provides SessionStore implementations. The in-memory
// store keeps live session aggregates (children included) in a process
// local arena keyed by id.
package session
