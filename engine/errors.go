package engine

import "errors"

var (
	// ErrClosed is returned by commands issued after Close.
	ErrClosed = errors.New("engine closed")

	// ErrAlreadyRunning is returned by Start when the session loop is active.
	ErrAlreadyRunning = errors.New("session already running")

	// ErrNotRunning is returned by commands requiring an active loop.
	ErrNotRunning = errors.New("session not running")

	// ErrNotRetryable is returned by Retry when the session is neither paused
	// nor in error.
	ErrNotRetryable = errors.New("session not paused or in error")

	// ErrNoAssistancePending is returned by RespondToAssistance when the
	// session is not blocked on an assistance request.
	ErrNoAssistancePending = errors.New("no assistance request pending")
)
