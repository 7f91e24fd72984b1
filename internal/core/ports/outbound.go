package ports

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/avelinsk/finpaper/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	GetForOrganization(ctx context.Context, organizationID, id string) (*domain.Document, error)
	List(ctx context.Context, organizationID string, filter domain.DocumentFilter, limit, offset int) ([]domain.Document, error)
	Stats(ctx context.Context, organizationID string) (domain.DocumentStats, error)
	UpdateFields(ctx context.Context, id string, patch DocumentPatch) error
}

// DocumentPatch is a partial update; nil fields are left untouched.
// The Clear flags write NULL instead, so terminal transitions can erase
// fields left over from an earlier run (a set pointer wins over its
// Clear flag).
type DocumentPatch struct {
	Status        *domain.DocumentStatus
	DocumentType  *domain.DocumentType
	ExtractedData *domain.ExtractedData
	Confidence    *float64
	AIModel       *string
	ErrorMessage  *string
	RunID         *string
	ProcessedAt   *time.Time

	ClearDocumentType  bool
	ClearExtractedData bool
	ClearConfidence    bool
	ClearAIModel       bool
	ClearErrorMessage  bool
}

// ObjectStorage stores source documents as opaque blobs and issues
// time-bounded read URLs for them.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	SignedURL(key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// DocumentContent references stored content the model should read.
// Perception is fully delegated to the model; no OCR happens here.
type DocumentContent struct {
	URL      string
	MIMEType string
}

// StructuredModel is the inference collaborator. GenerateStructured
// constrains the model's output to outputSchema and returns the raw
// structured object; content may be nil for text-only calls.
type StructuredModel interface {
	GenerateStructured(ctx context.Context, systemPrompt, instruction string, content *DocumentContent, outputSchema map[string]any) (json.RawMessage, error)
	ModelID() string
}

// ReadQueryExecutor runs generated read queries. Implementations are
// the authoritative guard: they must reject non-SELECT statements and
// fence results to the given organization's completed documents no
// matter what the submitted text asks for.
type ReadQueryExecutor interface {
	ExecuteReadQuery(ctx context.Context, sqlText, organizationID string) ([]domain.DocumentHit, error)
}

// JobQueue dispatches processing runs with at-least-once delivery.
// Replay is a republish of a previously recorded run id.
type JobQueue interface {
	PublishProcessRequest(ctx context.Context, documentID, runID string) error
	SubscribeProcessRequests(ctx context.Context, handler func(ctx context.Context, documentID, runID string) error) error
}

// FileInspector sanity-checks uploads before they enter the pipeline.
type FileInspector interface {
	Inspect(ctx context.Context, fileName, mimeType string, data []byte) (FileInfo, error)
}

type FileInfo struct {
	Pages int
}
