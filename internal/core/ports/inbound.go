package ports

import (
	"context"
	"io"

	"github.com/avelinsk/finpaper/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, organizationID, fileName, mimeType string, size int64, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID, runID string) (ProcessOutcome, error)
}

// ProcessOutcome is what the scheduler observes on a successful run.
type ProcessOutcome struct {
	Success      bool                `json:"success"`
	DocumentType domain.DocumentType `json:"documentType,omitempty"`
	Confidence   float64             `json:"confidence,omitempty"`
}

// DocumentReprocessor replays a previously recorded run.
type DocumentReprocessor interface {
	Reprocess(ctx context.Context, organizationID, documentID string) (ReprocessOutcome, error)
}

type ReprocessOutcome struct {
	Replayed bool   `json:"replayed"`
	RunID    string `json:"run_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// DocumentSearcher answers natural-language questions about extracted
// data with a structured, never-throwing result.
type DocumentSearcher interface {
	Search(ctx context.Context, query, organizationID string) domain.SearchResult
}
