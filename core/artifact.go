package core

import "time"

// ArtifactType enumerates the durable output kinds an agent can produce.
type ArtifactType string

const (
	// ArtifactText is plain or markdown text.
	ArtifactText ArtifactType = "text"
	// ArtifactFile is an arbitrary file payload (base64 or data-URI content).
	ArtifactFile ArtifactType = "file"
	// ArtifactImage is an image payload.
	ArtifactImage ArtifactType = "image"
	// ArtifactData is structured data (JSON, CSV).
	ArtifactData ArtifactType = "data"
	// ArtifactAudio is an audio payload.
	ArtifactAudio ArtifactType = "audio"
)

// Valid reports whether t is a known artifact type.
func (t ArtifactType) Valid() bool {
	switch t {
	case ArtifactText, ArtifactFile, ArtifactImage, ArtifactData, ArtifactAudio:
		return true
	default:
		return false
	}
}

// Artifact is a durable output produced by an explicit produce_artifact tool
// call. It is never mutated after creation and remains visible to the user
// independent of session status.
type Artifact struct {
	ID          string       `json:"id"`
	Type        ArtifactType `json:"type"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	MimeType    string       `json:"mime_type,omitempty"`
	Size        int          `json:"size,omitempty"`
	Description string       `json:"description,omitempty"`
	Iteration   int          `json:"iteration"`
	Created     time.Time    `json:"created"`
}

// NewArtifact creates an artifact stamped with a fresh id and UTC time.
// Size defaults to the content length when not supplied by the caller.
func NewArtifact(iteration int, typ ArtifactType, title, content string) Artifact {
	return Artifact{
		ID:        NewID(),
		Type:      typ,
		Title:     title,
		Content:   content,
		Size:      len(content),
		Iteration: iteration,
		Created:   time.Now().UTC(),
	}
}

// ExportedArtifact is the durable envelope an ArtifactStore persists: the
// payload plus the metadata needed to render the artifact without the
// producing session (type, title, mime type).
type ExportedArtifact struct {
	SessionID   string       `json:"session_id"`
	ArtifactID  string       `json:"artifact_id"`
	Type        ArtifactType `json:"type"`
	Title       string       `json:"title"`
	MimeType    string       `json:"mime_type,omitempty"`
	Description string       `json:"description,omitempty"`
	Data        []byte       `json:"data,omitempty"`
	Exported    time.Time    `json:"exported"`
}

// ExportArtifact wraps a session artifact for durable storage, stamped with
// the export time.
func ExportArtifact(sessionID string, a Artifact) ExportedArtifact {
	return ExportedArtifact{
		SessionID:   sessionID,
		ArtifactID:  a.ID,
		Type:        a.Type,
		Title:       a.Title,
		MimeType:    a.MimeType,
		Description: a.Description,
		Data:        []byte(a.Content),
		Exported:    time.Now().UTC(),
	}
}

// ArtifactStore persists artifact export envelopes outside the session
// aggregate so exports survive session reset. List returns metadata only
// (Data omitted); Get returns the full envelope. Implementations live in the
// artifact package.
type ArtifactStore interface {
	Save(export ExportedArtifact) error
	Get(sessionID, artifactID string) (ExportedArtifact, error)
	List(sessionID string) ([]ExportedArtifact, error)
	Delete(sessionID, artifactID string) error
}
