package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/avelinsk/finpaper/internal/core/domain"
)

// GuardedQueryExecutor runs model-generated read queries. It is the
// authoritative safeguard behind the search tool: generation-time
// prompt rules are advisory, so read-only and tenant scoping are
// enforced again here regardless of the submitted text.
type GuardedQueryExecutor struct {
	db *sql.DB
}

func NewGuardedQueryExecutor(db *sql.DB) *GuardedQueryExecutor {
	return &GuardedQueryExecutor{db: db}
}

var forbiddenKeywords = regexp.MustCompile(
	`(?i)\b(insert|update|delete|drop|alter|truncate|grant|revoke|create|copy|call|do|vacuum|set|merge)\b`,
)

// stringLiterals matches single-quoted SQL literals, including the ''
// escape for an embedded quote.
var stringLiterals = regexp.MustCompile(`'(?:[^']|'')*'`)

// ExecuteReadQuery validates the statement, fences it to the caller's
// completed documents, and projects the fixed hit columns. The fence is
// a CTE that shadows the documents table with the caller's completed
// rows, so every table reference in the generated text, including
// subqueries in projected columns, resolves to tenant-scoped rows; the
// id membership check on top guards against fabricated rows.
func (e *GuardedQueryExecutor) ExecuteReadQuery(ctx context.Context, sqlText, organizationID string) ([]domain.DocumentHit, error) {
	cleaned, err := validateReadOnly(sqlText)
	if err != nil {
		return nil, err
	}

	fenced := fmt.Sprintf(`
WITH documents AS (
	SELECT * FROM documents
	WHERE organization_id = $1 AND status = 'completed'
)
SELECT h.id, h.file_name, h.document_type, h.extracted_data, h.created_at
FROM (%s) AS h
WHERE h.id IN (SELECT d.id FROM documents d)`, cleaned)

	queryCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	tx, err := e.db.BeginTx(queryCtx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read-only tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(queryCtx, fenced, organizationID)
	if err != nil {
		return nil, fmt.Errorf("execute search query: %w", err)
	}
	defer rows.Close()

	var hits []domain.DocumentHit
	for rows.Next() {
		var hit domain.DocumentHit
		var docType sql.NullString
		var extracted []byte
		if err := rows.Scan(&hit.ID, &hit.FileName, &docType, &extracted, &hit.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		hit.DocumentType = docType.String
		if len(extracted) > 0 {
			hit.ExtractedData = json.RawMessage(extracted)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search hits: %w", err)
	}
	return hits, nil
}

// validateReadOnly rejects anything that is not a single SELECT
// statement before it reaches the database. Structural checks run over
// a copy with string literals blanked out, so a merchant name like
// 'TV Set City' or a literal ';' cannot trip them.
func validateReadOnly(sqlText string) (string, error) {
	cleaned := strings.TrimSpace(sqlText)
	for strings.HasSuffix(cleaned, ";") {
		cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, ";"))
	}
	if cleaned == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "validate query", fmt.Errorf("empty query"))
	}

	masked := stringLiterals.ReplaceAllString(cleaned, "''")
	if strings.Contains(masked, ";") {
		return "", domain.WrapError(domain.ErrInvalidInput, "validate query", fmt.Errorf("multiple statements are not allowed"))
	}

	upper := strings.ToUpper(cleaned)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return "", domain.WrapError(domain.ErrInvalidInput, "validate query", fmt.Errorf("only SELECT queries are allowed"))
	}
	if match := forbiddenKeywords.FindString(masked); match != "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "validate query", fmt.Errorf("forbidden keyword %q", strings.ToUpper(match)))
	}
	return cleaned, nil
}
