package domain

import (
	"encoding/json"
	"time"
)

// QuerySpec is the translator's structured output: a read-only SQL
// query plus a natural-language explanation of what it selects.
type QuerySpec struct {
	SQL         string `json:"sql"`
	Explanation string `json:"explanation"`
}

// DocumentHit is one search match, projected to the fixed column set
// the translator is instructed to select.
type DocumentHit struct {
	ID            string          `json:"id"`
	FileName      string          `json:"file_name"`
	DocumentType  string          `json:"document_type"`
	ExtractedData json.RawMessage `json:"extracted_data"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SearchResult is the stable shape returned to agent callers. Failures
// are reported here, never as a raised error, so the calling agent can
// recover conversationally.
type SearchResult struct {
	Success     bool          `json:"success"`
	Found       int           `json:"found"`
	Documents   []DocumentHit `json:"documents"`
	Explanation string        `json:"explanation,omitempty"`
	Message     string        `json:"message,omitempty"`
	Error       string        `json:"error,omitempty"`
}
