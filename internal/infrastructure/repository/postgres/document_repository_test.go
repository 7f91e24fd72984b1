package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/avelinsk/finpaper/internal/core/domain"
	"github.com/avelinsk/finpaper/internal/core/ports"
)

func newRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

func documentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "organization_id", "file_name", "file_path", "file_size", "mime_type",
		"status", "document_type", "extracted_data", "extraction_confidence", "ai_model",
		"error_message", "run_id", "created_at", "updated_at", "processed_at",
	})
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, organization_id, file_name").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDDecodesStoredPayload(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	payload := []byte(`{"invoice_number":"INV-1","vendor_name":"Acme","invoice_date":"2024-01-01","line_items":[],"subtotal":10,"total":10,"currency":"USD"}`)

	mock.ExpectQuery("SELECT id, organization_id, file_name").
		WithArgs("doc-1").
		WillReturnRows(documentRows().AddRow(
			"doc-1", "org-1", "invoice.pdf", "org-1/doc-1_invoice.pdf", int64(1234), "application/pdf",
			"completed", "invoice", payload, 0.92, "gemini-2.0-flash",
			nil, "run-1", now, now, now,
		))

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", doc.Status)
	}
	if doc.DocumentType == nil || *doc.DocumentType != domain.TypeInvoice {
		t.Fatalf("expected invoice type, got %v", doc.DocumentType)
	}
	if doc.ExtractedData == nil || doc.ExtractedData.Invoice == nil {
		t.Fatal("expected decoded invoice payload")
	}
	if doc.ExtractedData.Invoice.InvoiceNumber != "INV-1" {
		t.Fatalf("expected INV-1, got %q", doc.ExtractedData.Invoice.InvoiceNumber)
	}
	if doc.Confidence == nil || *doc.Confidence != 0.92 {
		t.Fatalf("expected confidence 0.92, got %v", doc.Confidence)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetForOrganizationScopesTenant(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, organization_id, file_name").
		WithArgs("doc-1", "org-other").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetForOrganization(context.Background(), "org-other", "doc-1")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateInsertsPendingRow(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO documents").
		WithArgs("doc-1", "org-1", "r.pdf", "org-1/doc-1_r.pdf", int64(10), "application/pdf",
			"pending", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &domain.Document{
		ID:             "doc-1",
		OrganizationID: "org-1",
		FileName:       "r.pdf",
		FilePath:       "org-1/doc-1_r.pdf",
		FileSize:       10,
		MimeType:       "application/pdf",
		Status:         domain.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateFieldsReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	status := domain.StatusProcessing
	runID := "run-1"

	mock.ExpectExec("UPDATE documents SET").
		WithArgs("missing", sqlmock.AnyArg(), string(status), runID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateFields(context.Background(), "missing", ports.DocumentPatch{
		Status: &status,
		RunID:  &runID,
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateFieldsWritesOnlyPatchedColumns(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	status := domain.StatusFailed
	message := "extract document: model unavailable"
	now := time.Now().UTC()

	mock.ExpectExec(`UPDATE documents SET updated_at = \$2, status = \$3, error_message = \$4, processed_at = \$5 WHERE id = \$1`).
		WithArgs("doc-1", sqlmock.AnyArg(), string(status), message, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateFields(context.Background(), "doc-1", ports.DocumentPatch{
		Status:       &status,
		ErrorMessage: &message,
		ProcessedAt:  &now,
	})
	if err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateFieldsClearFlagsWriteNull(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	status := domain.StatusFailed
	message := "extract document: model unavailable"

	mock.ExpectExec(`UPDATE documents SET updated_at = \$2, status = \$3, document_type = NULL, extracted_data = NULL, extraction_confidence = NULL, ai_model = NULL, error_message = \$4 WHERE id = \$1`).
		WithArgs("doc-1", sqlmock.AnyArg(), string(status), message).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateFields(context.Background(), "doc-1", ports.DocumentPatch{
		Status:             &status,
		ErrorMessage:       &message,
		ClearDocumentType:  true,
		ClearExtractedData: true,
		ClearConfidence:    true,
		ClearAIModel:       true,
	})
	if err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateFieldsSetPointerWinsOverClearFlag(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	docType := domain.TypeInvoice

	mock.ExpectExec(`UPDATE documents SET updated_at = \$2, document_type = \$3 WHERE id = \$1`).
		WithArgs("doc-1", sqlmock.AnyArg(), string(docType)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateFields(context.Background(), "doc-1", ports.DocumentPatch{
		DocumentType:      &docType,
		ClearDocumentType: true,
	})
	if err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListAppliesFilters(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, organization_id, file_name").
		WithArgs("org-1", "completed", "invoice", 10, 0).
		WillReturnRows(documentRows())

	docs, err := repo.List(context.Background(), "org-1", domain.DocumentFilter{
		Status: domain.StatusCompleted,
		Type:   domain.TypeInvoice,
	}, 10, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no rows, got %d", len(docs))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStatsAggregatesByStatus(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT status, COUNT").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("completed", 7).
			AddRow("failed", 2).
			AddRow("pending", 1))

	stats, err := repo.Stats(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Total != 10 {
		t.Fatalf("expected total 10, got %d", stats.Total)
	}
	if stats.Completed != 7 || stats.Failed != 2 || stats.Pending != 1 || stats.Processing != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
