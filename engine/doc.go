// Package engine drives agent sessions through the iteration loop state
// machine and hosts the control plane around it.
//
// One goroutine loop runs per active session. Each iteration applies queued
// instruction edits, snapshots memory, asks the reasoning collaborator for a
// decision, fans the decided tool calls out concurrently and folds their
// results back in the loop goroutine before committing the iteration. The
// engine also coordinates child session spawning, operator assistance,
// interjections and the manual retry/continue/reset commands, and publishes
// read-only session views to subscribers after every state change.
package engine
