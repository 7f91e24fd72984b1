package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/avelinsk/finpaper/internal/core/domain"
)

func TestReprocessReplaysRecordedRun(t *testing.T) {
	doc := pendingDoc("doc-1")
	doc.RunID = "run-original"
	repo := newFakeRepo(doc)
	queue := &fakeQueue{}
	uc := NewReprocessDocumentUseCase(repo, queue, nil)

	outcome, err := uc.Reprocess(context.Background(), "org-1", "doc-1")
	if err != nil {
		t.Fatalf("expected replay, got %v", err)
	}
	if !outcome.Replayed || outcome.RunID != "run-original" {
		t.Fatalf("expected replay of run-original, got %+v", outcome)
	}
	if len(queue.published) != 1 || queue.published[0].runID != "run-original" {
		t.Fatalf("replay must republish the recorded run id, got %+v", queue.published)
	}
}

func TestReprocessWithoutRunIDIsNoOp(t *testing.T) {
	repo := newFakeRepo(pendingDoc("doc-1"))
	queue := &fakeQueue{}
	uc := NewReprocessDocumentUseCase(repo, queue, nil)

	outcome, err := uc.Reprocess(context.Background(), "org-1", "doc-1")
	if err != nil {
		t.Fatalf("missing run id is a no-op, not an error: %v", err)
	}
	if outcome.Replayed {
		t.Fatal("expected no replay without a recorded run id")
	}
	if outcome.Reason == "" {
		t.Fatal("no-op outcome must explain itself")
	}
	if len(queue.published) != 0 {
		t.Fatal("no-op must not publish")
	}
}

func TestReprocessOtherTenantsDocumentIsNotFound(t *testing.T) {
	doc := pendingDoc("doc-1")
	doc.RunID = "run-original"
	repo := newFakeRepo(doc)
	uc := NewReprocessDocumentUseCase(repo, &fakeQueue{}, nil)

	_, err := uc.Reprocess(context.Background(), "org-other", "doc-1")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not-found for cross-tenant access, got %v", err)
	}
}

func TestReprocessPublishFailurePropagates(t *testing.T) {
	doc := pendingDoc("doc-1")
	doc.RunID = "run-original"
	repo := newFakeRepo(doc)
	queueErr := errors.New("nats unavailable")
	uc := NewReprocessDocumentUseCase(repo, &fakeQueue{publishErr: queueErr}, nil)

	_, err := uc.Reprocess(context.Background(), "org-1", "doc-1")
	if !errors.Is(err, queueErr) {
		t.Fatalf("expected publish failure to propagate, got %v", err)
	}
}
