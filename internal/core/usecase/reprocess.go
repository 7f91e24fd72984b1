package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avelinsk/finpaper/internal/core/ports"
)

// ReprocessDocumentUseCase replays a document's previously recorded
// run. A document with no run id on record is a no-op: the replay path
// deliberately does not fall back to enqueueing a fresh run, so a
// document that failed before a run id was ever stamped cannot be
// reprocessed through it. Known asymmetry, kept as-is.
type ReprocessDocumentUseCase struct {
	repo   ports.DocumentRepository
	queue  ports.JobQueue
	logger *slog.Logger
}

func NewReprocessDocumentUseCase(repo ports.DocumentRepository, queue ports.JobQueue, logger *slog.Logger) *ReprocessDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReprocessDocumentUseCase{repo: repo, queue: queue, logger: logger}
}

func (uc *ReprocessDocumentUseCase) Reprocess(ctx context.Context, organizationID, documentID string) (ports.ReprocessOutcome, error) {
	doc, err := uc.repo.GetForOrganization(ctx, organizationID, documentID)
	if err != nil {
		return ports.ReprocessOutcome{}, fmt.Errorf("fetch document %s: %w", documentID, err)
	}

	if doc.RunID == "" {
		uc.logger.Warn("reprocess.no_run_id", "document_id", documentID)
		return ports.ReprocessOutcome{
			Replayed: false,
			Reason:   "document has no recorded run to replay",
		}, nil
	}

	if err := uc.queue.PublishProcessRequest(ctx, doc.ID, doc.RunID); err != nil {
		return ports.ReprocessOutcome{}, fmt.Errorf("replay run %s: %w", doc.RunID, err)
	}

	uc.logger.Info("reprocess.replayed", "document_id", documentID, "run_id", doc.RunID)
	return ports.ReprocessOutcome{Replayed: true, RunID: doc.RunID}, nil
}
