package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avelinsk/finpaper/internal/core/domain"
	"github.com/avelinsk/finpaper/internal/core/extraction"
	"github.com/avelinsk/finpaper/internal/core/ports"
)

const signedURLTTL = time.Hour

// ProcessDocumentUseCase runs one document's lifecycle: fetch, mark
// processing, obtain a signed content URL, run extraction, persist the
// outcome. It is idempotent in that every invocation re-fetches the
// row; concurrent runs for the same id are last-writer-wins.
type ProcessDocumentUseCase struct {
	repo     ports.DocumentRepository
	storage  ports.ObjectStorage
	pipeline *extraction.Pipeline
	logger   *slog.Logger
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	pipeline *extraction.Pipeline,
	logger *slog.Logger,
) *ProcessDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessDocumentUseCase{
		repo:     repo,
		storage:  storage,
		pipeline: pipeline,
		logger:   logger,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID, runID string) (ports.ProcessOutcome, error) {
	// A missing row fails the invocation itself; there is no document
	// to mark failed.
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return ports.ProcessOutcome{}, fmt.Errorf("fetch document %s: %w", documentID, err)
	}

	if err := uc.markProcessing(ctx, doc.ID, runID); err != nil {
		return ports.ProcessOutcome{}, fmt.Errorf("set status=processing: %w", err)
	}

	result, err := uc.extract(ctx, doc)
	if err != nil {
		// The failed write must land before the error is re-raised so
		// the scheduler's retry bookkeeping and the stored record agree.
		if failErr := uc.markFailed(ctx, doc.ID, err); failErr != nil {
			return ports.ProcessOutcome{}, fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return ports.ProcessOutcome{}, err
	}

	if err := uc.persistCompleted(ctx, doc.ID, result); err != nil {
		if failErr := uc.markFailed(ctx, doc.ID, err); failErr != nil {
			return ports.ProcessOutcome{}, fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return ports.ProcessOutcome{}, err
	}

	uc.logger.Info("process.completed",
		"document_id", doc.ID,
		"run_id", runID,
		"document_type", result.Classification.DocumentType,
		"confidence", result.Classification.Confidence,
	)
	return ports.ProcessOutcome{
		Success:      true,
		DocumentType: result.Classification.DocumentType,
		Confidence:   result.Classification.Confidence,
	}, nil
}

func (uc *ProcessDocumentUseCase) extract(ctx context.Context, doc *domain.Document) (extraction.Result, error) {
	url, err := uc.storage.SignedURL(doc.FilePath, signedURLTTL)
	if err != nil {
		return extraction.Result{}, fmt.Errorf("sign content url: %w", err)
	}

	result, err := uc.pipeline.Extract(ctx, ports.DocumentContent{
		URL:      url,
		MIMEType: doc.MimeType,
	})
	if err != nil {
		return extraction.Result{}, fmt.Errorf("extract document: %w", err)
	}
	return result, nil
}

// markProcessing stamps the run id and a best-effort processed_at;
// both are overwritten on the terminal transition.
func (uc *ProcessDocumentUseCase) markProcessing(ctx context.Context, documentID, runID string) error {
	status := domain.StatusProcessing
	now := time.Now().UTC()
	return uc.repo.UpdateFields(ctx, documentID, ports.DocumentPatch{
		Status:      &status,
		RunID:       &runID,
		ProcessedAt: &now,
	})
}

func (uc *ProcessDocumentUseCase) persistCompleted(ctx context.Context, documentID string, result extraction.Result) error {
	status := domain.StatusCompleted
	docType := result.Classification.DocumentType
	confidence := result.Classification.Confidence
	model := result.ModelID
	now := time.Now().UTC()

	// Unknown is a success with null extracted data, not a failure. A
	// completed row carries no error message and, when re-classified
	// unknown on a replay, no leftover data from the earlier run.
	patch := ports.DocumentPatch{
		Status:             &status,
		DocumentType:       &docType,
		ExtractedData:      result.Extracted,
		Confidence:         &confidence,
		AIModel:            &model,
		ProcessedAt:        &now,
		ClearExtractedData: result.Extracted == nil,
		ClearErrorMessage:  true,
	}
	if err := uc.repo.UpdateFields(ctx, documentID, patch); err != nil {
		return fmt.Errorf("persist extraction result: %w", err)
	}
	return nil
}

// markFailed erases any extraction result an earlier run left behind;
// a failed row carries only the error message.
func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	status := domain.StatusFailed
	message := processErr.Error()
	now := time.Now().UTC()
	return uc.repo.UpdateFields(ctx, documentID, ports.DocumentPatch{
		Status:             &status,
		ErrorMessage:       &message,
		ProcessedAt:        &now,
		ClearDocumentType:  true,
		ClearExtractedData: true,
		ClearConfidence:    true,
		ClearAIModel:       true,
	})
}
