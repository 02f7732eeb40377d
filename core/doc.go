// Package core contains the domain model for Free Agent sessions: the
// session aggregate, the four working-memory collections (blackboard,
// scratchpad, tool-result attributes, artifacts), per-iteration audit
// records, assistance requests, instruction sections and the constrained
// ToolContext surface handed to tool implementations.
//
// Invariants enforced here rather than by convention:
//
//   - The blackboard is append-only; entries are never edited or removed.
//   - Attribute names are unique per session and attributes are immutable
//     once created.
//   - Artifacts are immutable once created.
//   - Session status changes go through Transition which validates the
//     state-machine edges; presentation code reads immutable Views.
//
// Store interfaces (SessionStore, ArtifactStore) are declared here and
// implemented by the session and artifact packages, keeping domain contracts
// centralized without dependency cycles.
package core
