// Package reasoning defines the boundary between the iteration loop and the
// reasoning collaborator that decides each iteration's actions.
//
// The engine builds a Request from the session's instructions and a bounded
// memory snapshot; a Collaborator answers with a Decision naming tool calls
// and/or a terminal completion or failure signal. Provider adapters live in
// the reasoning/openai and reasoning/anthropic subpackages; Mock serves
// tests and offline runs.
//
// Decisions arriving as free text are decoded tolerantly: fenced JSON is
// unwrapped and malformed payloads go through a repair pass before the
// engine sees a ParseError.
package reasoning
