package core

import "errors"

var (
	// ErrInvalidTransition is returned by Transition when the requested
	// status change has no edge in the session state machine.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAttributeExists is returned when a tool result attribute with the
	// same name has already been registered for the session.
	ErrAttributeExists = errors.New("attribute name already exists")

	// ErrAttributeNotFound is returned when reading an unknown attribute.
	ErrAttributeNotFound = errors.New("attribute not found")

	// ErrAssistancePending is returned when a second assistance request is
	// issued while one is still outstanding.
	ErrAssistancePending = errors.New("assistance request already pending")

	// ErrAssistanceMismatch is returned when a resolution targets an unknown
	// or already-resolved assistance request id.
	ErrAssistanceMismatch = errors.New("assistance request id does not match pending request")

	// ErrSpawnPending is returned when a second spawn request is issued
	// within the same iteration.
	ErrSpawnPending = errors.New("spawn request already pending")

	// ErrSelfAuthoringDisabled is returned by read_self/write_self when the
	// self-authoring feature flag is off for the session.
	ErrSelfAuthoringDisabled = errors.New("self-authoring feature not enabled")

	// ErrUnknownSection is returned when a self-edit targets a section id
	// that does not exist.
	ErrUnknownSection = errors.New("unknown instruction section")

	// ErrFileNotFound is returned when a read_file call names an input file
	// that was not uploaded to the session.
	ErrFileNotFound = errors.New("input file not found")
)
