package artifact

import "errors"

var (
	// ErrNotFound is returned when no export exists for the given session /
	// artifact pair.
	ErrNotFound = errors.New("artifact: export not found")

	// ErrMissingID is returned by Save when the envelope lacks a session or
	// artifact id.
	ErrMissingID = errors.New("artifact: session and artifact ids are required")
)
