package core

import "time"

// Category classifies a blackboard entry.
type Category string

const (
	// CategoryObservation records something the agent noticed.
	CategoryObservation Category = "observation"
	// CategoryInsight records a conclusion derived from observations.
	CategoryInsight Category = "insight"
	// CategoryQuestion records an open question.
	CategoryQuestion Category = "question"
	// CategoryDecision records a choice the agent committed to.
	CategoryDecision Category = "decision"
	// CategoryPlan records intended next steps.
	CategoryPlan Category = "plan"
	// CategoryArtifact records a pointer to produced output.
	CategoryArtifact Category = "artifact"
	// CategoryError records a failure the agent should account for.
	CategoryError Category = "error"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryObservation, CategoryInsight, CategoryQuestion,
		CategoryDecision, CategoryPlan, CategoryArtifact, CategoryError:
		return true
	default:
		return false
	}
}

// BlackboardEntry is one append-only unit of the agent's audit trail. After
// creation it must be treated as immutable; the blackboard never edits or
// removes entries.
type BlackboardEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Iteration int            `json:"iteration"`
	Category  Category       `json:"category"`
	Content   string         `json:"content"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// NewBlackboardEntry creates an entry stamped with a fresh id and UTC time.
func NewBlackboardEntry(iteration int, category Category, content string) BlackboardEntry {
	return BlackboardEntry{
		ID:        NewID(),
		Timestamp: time.Now().UTC(),
		Iteration: iteration,
		Category:  category,
		Content:   content,
	}
}
