// Package artifact provides ArtifactStore implementations backing the
// export_artifact tool. Exported payloads live outside the session
// aggregate, so they survive session reset and remain readable regardless
// of session status.
package artifact
