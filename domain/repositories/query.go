package repositories

import "context"

// QueryResult is the backend's answer to a document query. Every field is
// independently optional on the wire; a nil MatchedFolders means the field
// was absent, which is distinct from an empty list.
type QueryResult struct {
	Response       string   `json:"response,omitempty"`
	MatchedFolders []string `json:"matched_folders,omitempty"`
	Message        string   `json:"message,omitempty"`
	Query          string   `json:"query,omitempty"`
}

// QueryService abstracts the document question-answering backend
type QueryService interface {
	// Query submits one question and returns the backend's answer
	Query(ctx context.Context, text string) (*QueryResult, error)
}
