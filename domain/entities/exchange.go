package entities

import (
	"time"
)

// Role represents the originator of an exchange in a conversation
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
)

// EvidenceKindFolder marks evidence derived from a matched document folder
const EvidenceKindFolder = "folder"

// Evidence is a typed reference backing an assistant exchange
type Evidence struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Exchange is one immutable turn in a conversation log. IDs are assigned
// monotonically by the owning session; the log is ordered by ID, never by
// timestamp, so clock skew cannot reorder it.
type Exchange struct {
	ID         int64          `json:"id"`
	Role       Role           `json:"role"`
	Content    string         `json:"content"`
	CreatedAt  time.Time      `json:"created_at"`
	Payload    map[string]any `json:"payload,omitempty"`
	Confidence *float64       `json:"confidence,omitempty"`
	Evidence   []Evidence     `json:"evidence,omitempty"`
}

// FolderEvidence maps matched folder names into evidence records. It returns
// nil when there are no folders; absent and empty carry different display
// semantics downstream and must stay distinguishable.
func FolderEvidence(folders []string) []Evidence {
	if len(folders) == 0 {
		return nil
	}
	evidence := make([]Evidence, 0, len(folders))
	for _, f := range folders {
		evidence = append(evidence, Evidence{Kind: EvidenceKindFolder, Value: f})
	}
	return evidence
}
