package usecase

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/avelinsk/finpaper/internal/core/domain"
	"github.com/avelinsk/finpaper/internal/core/ports"
)

type publishedRequest struct {
	documentID string
	runID      string
}

type fakeQueue struct {
	published  []publishedRequest
	publishErr error
}

func (q *fakeQueue) PublishProcessRequest(_ context.Context, documentID, runID string) error {
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, publishedRequest{documentID: documentID, runID: runID})
	return nil
}

func (q *fakeQueue) SubscribeProcessRequests(_ context.Context, _ func(ctx context.Context, documentID, runID string) error) error {
	return nil
}

type fakeInspector struct {
	err error
}

func (i *fakeInspector) Inspect(_ context.Context, _, _ string, _ []byte) (ports.FileInfo, error) {
	if i.err != nil {
		return ports.FileInfo{}, i.err
	}
	return ports.FileInfo{Pages: 1}, nil
}

func TestUploadAcceptsPDFAndDispatchesRun(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{}
	uc := NewIngestDocumentUseCase(repo, &fakeStorage{}, queue, &fakeInspector{}, nil)

	body := bytes.NewReader([]byte("%PDF-1.7 test"))
	doc, err := uc.Upload(context.Background(), "org-1", "Q1 statement.pdf", "application/pdf", 13, body)
	if err != nil {
		t.Fatalf("expected accepted upload, got %v", err)
	}

	if doc.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %s", doc.Status)
	}
	if doc.OrganizationID != "org-1" {
		t.Fatalf("expected org-1, got %q", doc.OrganizationID)
	}
	if !strings.HasPrefix(doc.FilePath, "org-1/") {
		t.Fatalf("storage key must be tenant-prefixed, got %q", doc.FilePath)
	}
	if strings.Contains(doc.FilePath, " ") {
		t.Fatalf("storage key must not contain spaces, got %q", doc.FilePath)
	}
	if doc.FileName != "Q1 statement.pdf" {
		t.Fatalf("original file name must be preserved on the record, got %q", doc.FileName)
	}

	if len(queue.published) != 1 {
		t.Fatalf("expected 1 dispatched run, got %d", len(queue.published))
	}
	if queue.published[0].documentID != doc.ID {
		t.Fatal("dispatched run must reference the created document")
	}
	if queue.published[0].runID == "" {
		t.Fatal("dispatched run must carry a fresh run id")
	}
}

func TestUploadRejectsUnsupportedMimeType(t *testing.T) {
	uc := NewIngestDocumentUseCase(newFakeRepo(), &fakeStorage{}, &fakeQueue{}, &fakeInspector{}, nil)

	_, err := uc.Upload(context.Background(), "org-1", "notes.txt", "text/plain", 5, strings.NewReader("hello"))
	if err == nil {
		t.Fatal("expected rejection of text/plain")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input kind, got %v", err)
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	uc := NewIngestDocumentUseCase(newFakeRepo(), &fakeStorage{}, &fakeQueue{}, &fakeInspector{}, nil)

	_, err := uc.Upload(context.Background(), "org-1", "big.pdf", "application/pdf", MaxFileSize+1, strings.NewReader(""))
	if err == nil {
		t.Fatal("expected rejection of oversized upload")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input kind, got %v", err)
	}
}

func TestUploadRequiresOrganization(t *testing.T) {
	uc := NewIngestDocumentUseCase(newFakeRepo(), &fakeStorage{}, &fakeQueue{}, &fakeInspector{}, nil)

	_, err := uc.Upload(context.Background(), "", "doc.pdf", "application/pdf", 4, strings.NewReader("data"))
	if err == nil {
		t.Fatal("expected rejection without organization id")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input kind, got %v", err)
	}
}

func TestUploadRejectsFailedInspection(t *testing.T) {
	inspector := &fakeInspector{err: context.DeadlineExceeded}
	uc := NewIngestDocumentUseCase(newFakeRepo(), &fakeStorage{}, &fakeQueue{}, inspector, nil)

	_, err := uc.Upload(context.Background(), "org-1", "broken.pdf", "application/pdf", 4, strings.NewReader("data"))
	if err == nil {
		t.Fatal("expected rejection for failed inspection")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input kind, got %v", err)
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"Q1 report.pdf":      "Q1_report.pdf",
		"../../../etc/passwd": "passwd",
		"квитанция.pdf":      "_________.pdf",
		"":                   "document.bin",
	}
	for in, want := range cases {
		if got := sanitizeFileName(in); got != want {
			t.Errorf("sanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}
