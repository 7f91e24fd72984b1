package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/avelinsk/finpaper/internal/core/domain"
	"github.com/avelinsk/finpaper/internal/core/ports"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	file_name TEXT NOT NULL,
	file_path TEXT NOT NULL,
	file_size BIGINT NOT NULL,
	mime_type TEXT NOT NULL,
	status TEXT NOT NULL,
	document_type TEXT,
	extracted_data JSONB,
	extraction_confidence DOUBLE PRECISION,
	ai_model TEXT,
	error_message TEXT,
	run_id TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_documents_org_status ON documents(organization_id, status);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_documents_run_id ON documents(run_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const documentColumns = `id, organization_id, file_name, file_path, file_size, mime_type,
	status, document_type, extracted_data, extraction_confidence, ai_model,
	error_message, run_id, created_at, updated_at, processed_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, organization_id, file_name, file_path, file_size, mime_type,
	status, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		doc.ID, doc.OrganizationID, doc.FileName, doc.FilePath, doc.FileSize,
		doc.MimeType, string(doc.Status), doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1
`, id)
	return scanDocument(row, id)
}

func (r *DocumentRepository) GetForOrganization(ctx context.Context, organizationID, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1 AND organization_id = $2
`, id, organizationID)
	return scanDocument(row, id)
}

func (r *DocumentRepository) List(ctx context.Context, organizationID string, filter domain.DocumentFilter, limit, offset int) ([]domain.Document, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
SELECT ` + documentColumns + `
FROM documents
WHERE organization_id = $1`
	args := []any{organizationID}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		query += fmt.Sprintf(" AND document_type = $%d", len(args))
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) Stats(ctx context.Context, organizationID string) (domain.DocumentStats, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT status, COUNT(*)
FROM documents
WHERE organization_id = $1
GROUP BY status
`, organizationID)
	if err != nil {
		return domain.DocumentStats{}, fmt.Errorf("count documents: %w", err)
	}
	defer rows.Close()

	var stats domain.DocumentStats
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return domain.DocumentStats{}, fmt.Errorf("scan document counts: %w", err)
		}
		stats.Total += count
		switch domain.DocumentStatus(status) {
		case domain.StatusPending:
			stats.Pending = count
		case domain.StatusProcessing:
			stats.Processing = count
		case domain.StatusCompleted:
			stats.Completed = count
		case domain.StatusFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return domain.DocumentStats{}, fmt.Errorf("iterate document counts: %w", err)
	}
	return stats, nil
}

// UpdateFields applies a partial update; nil patch fields keep their
// stored value and Clear flags write NULL. updated_at always advances.
func (r *DocumentRepository) UpdateFields(ctx context.Context, id string, patch ports.DocumentPatch) error {
	sets := []string{"updated_at = $2"}
	args := []any{id, time.Now().UTC()}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	setNull := func(column string) {
		sets = append(sets, column+" = NULL")
	}

	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.DocumentType != nil {
		add("document_type", string(*patch.DocumentType))
	} else if patch.ClearDocumentType {
		setNull("document_type")
	}
	if patch.ExtractedData != nil {
		payload, err := json.Marshal(patch.ExtractedData)
		if err != nil {
			return fmt.Errorf("marshal extracted data: %w", err)
		}
		add("extracted_data", payload)
	} else if patch.ClearExtractedData {
		setNull("extracted_data")
	}
	if patch.Confidence != nil {
		add("extraction_confidence", *patch.Confidence)
	} else if patch.ClearConfidence {
		setNull("extraction_confidence")
	}
	if patch.AIModel != nil {
		add("ai_model", *patch.AIModel)
	} else if patch.ClearAIModel {
		setNull("ai_model")
	}
	if patch.ErrorMessage != nil {
		add("error_message", *patch.ErrorMessage)
	} else if patch.ClearErrorMessage {
		setNull("error_message")
	}
	if patch.RunID != nil {
		add("run_id", *patch.RunID)
	}
	if patch.ProcessedAt != nil {
		add("processed_at", *patch.ProcessedAt)
	}

	query := "UPDATE documents SET " + strings.Join(sets, ", ") + " WHERE id = $1"
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document", fmt.Errorf("id=%s", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner, id string) (*domain.Document, error) {
	var doc domain.Document
	var status string
	var docType, aiModel, errMessage, runID sql.NullString
	var extractedRaw []byte
	var confidence sql.NullFloat64
	var processedAt sql.NullTime

	err := row.Scan(
		&doc.ID, &doc.OrganizationID, &doc.FileName, &doc.FilePath, &doc.FileSize,
		&doc.MimeType, &status, &docType, &extractedRaw, &confidence, &aiModel,
		&errMessage, &runID, &doc.CreatedAt, &doc.UpdatedAt, &processedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	doc.Status = domain.DocumentStatus(status)
	if docType.Valid {
		t := domain.DocumentType(docType.String)
		doc.DocumentType = &t
		if len(extractedRaw) > 0 && t.Extractable() {
			extracted, err := domain.DecodeExtractedData(t, extractedRaw)
			if err != nil {
				return nil, fmt.Errorf("decode stored extracted data: %w", err)
			}
			doc.ExtractedData = extracted
		}
	}
	if confidence.Valid {
		doc.Confidence = &confidence.Float64
	}
	doc.AIModel = aiModel.String
	doc.ErrorMessage = errMessage.String
	doc.RunID = runID.String
	if processedAt.Valid {
		t := processedAt.Time
		doc.ProcessedAt = &t
	}
	return &doc, nil
}
