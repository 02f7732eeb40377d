// Package memory provides the export/reconstruct codec for session working
// memory. Exporting then reconstructing a memory yields identical content
// and ordering, which backs archival of finished children and offline
// inspection of session state.
package memory
