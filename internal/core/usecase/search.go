package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avelinsk/finpaper/internal/core/domain"
	"github.com/avelinsk/finpaper/internal/core/ports"
	"github.com/avelinsk/finpaper/internal/core/schema"
)

// SearchDocumentsUseCase turns a free-text question about an
// organization's documents into a constrained SELECT, runs it through
// the guarded executor, and shapes the matches for an agent caller.
// Generation-time rules are advisory; the executor is the authoritative
// guard for read-only semantics and tenant isolation.
type SearchDocumentsUseCase struct {
	model    ports.StructuredModel
	executor ports.ReadQueryExecutor
	registry *schema.Registry
	logger   *slog.Logger
}

func NewSearchDocumentsUseCase(
	model ports.StructuredModel,
	executor ports.ReadQueryExecutor,
	registry *schema.Registry,
	logger *slog.Logger,
) *SearchDocumentsUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchDocumentsUseCase{
		model:    model,
		executor: executor,
		registry: registry,
		logger:   logger,
	}
}

var querySpecSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"sql": map[string]any{
			"type":        "string",
			"description": "The PostgreSQL SELECT query",
		},
		"explanation": map[string]any{
			"type":        "string",
			"description": "Brief explanation of what the query does",
		},
	},
	"required": []any{"sql", "explanation"},
}

// Search never returns an error to the caller; translation and
// execution failures come back inside the result so a conversational
// agent can recover.
func (uc *SearchDocumentsUseCase) Search(ctx context.Context, query, organizationID string) domain.SearchResult {
	spec, err := uc.translate(ctx, query, organizationID)
	if err != nil {
		uc.logger.Error("search.translate_failed", "organization_id", organizationID, "error", err)
		return domain.SearchResult{
			Success: false,
			Error:   "query generation failed",
			Message: "Failed to search documents. Please try rephrasing your query.",
		}
	}

	sqlText := StripTrailingSemicolon(spec.SQL)
	uc.logger.Info("search.generated",
		"organization_id", organizationID,
		"sql", sqlText,
		"explanation", spec.Explanation,
	)

	hits, err := uc.executor.ExecuteReadQuery(ctx, sqlText, organizationID)
	if err != nil {
		uc.logger.Error("search.execute_failed", "organization_id", organizationID, "error", err)
		return domain.SearchResult{
			Success: false,
			Error:   err.Error(),
			Message: "Failed to search documents. Please try rephrasing your query.",
		}
	}

	if len(hits) == 0 {
		return domain.SearchResult{
			Success:     true,
			Found:       0,
			Documents:   []domain.DocumentHit{},
			Explanation: spec.Explanation,
			Message:     "No documents found matching your criteria.",
		}
	}

	return domain.SearchResult{
		Success:     true,
		Found:       len(hits),
		Documents:   hits,
		Explanation: spec.Explanation,
	}
}

func (uc *SearchDocumentsUseCase) translate(ctx context.Context, query, organizationID string) (domain.QuerySpec, error) {
	systemContext, err := uc.buildSchemaContext(organizationID)
	if err != nil {
		return domain.QuerySpec{}, fmt.Errorf("build schema context: %w", err)
	}

	instruction := fmt.Sprintf(`Generate a PostgreSQL SELECT query for this user request:

%q

Remember:
- Filter by organization_id = '%s' AND status = 'completed'
- Use proper JSONB operators (->> for text, -> for objects)
- Select: id, file_name, document_type, extracted_data, created_at
- Be precise with the query based on the user's intent`, query, organizationID)

	raw, err := uc.model.GenerateStructured(ctx, systemContext, instruction, nil, querySpecSchema)
	if err != nil {
		return domain.QuerySpec{}, fmt.Errorf("generate query: %w", err)
	}

	var spec domain.QuerySpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return domain.QuerySpec{}, fmt.Errorf("decode query spec: %w", err)
	}
	if strings.TrimSpace(spec.SQL) == "" {
		return domain.QuerySpec{}, fmt.Errorf("generated query is empty")
	}
	return spec, nil
}

// buildSchemaContext derives the translator's system context from the
// schema registry, so registry changes propagate without hand edits.
func (uc *SearchDocumentsUseCase) buildSchemaContext(organizationID string) (string, error) {
	var payloadSections strings.Builder
	for _, t := range domain.SupportedTypes {
		ctxJSON, err := uc.registry.SchemaContextJSON(t)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&payloadSections, "\n### For document_type = '%s':\n%s\n", t, ctxJSON)
	}

	return fmt.Sprintf(`You are a PostgreSQL expert generating SELECT queries for a financial document system.

## Table Schema

TABLE: documents
- id: text (primary key)
- organization_id: text (tenant ID - ALWAYS filter by this)
- file_name: text
- file_path: text
- file_size: bigint
- mime_type: text
- document_type: text ('invoice', 'bank_statement', 'receipt', 'unknown')
- status: text ('pending', 'processing', 'completed', 'failed')
- extracted_data: jsonb (contains extracted fields, schema varies by document_type)
- extraction_confidence: double precision
- ai_model: text
- run_id: text
- error_message: text
- created_at: timestamptz
- updated_at: timestamptz
- processed_at: timestamptz

## JSONB extracted_data Schemas
%s
## CRITICAL RULES

1. ALWAYS include this filter: organization_id = '%s' AND status = 'completed'
2. Only generate SELECT queries - never UPDATE, DELETE, INSERT, DROP, ALTER, TRUNCATE
3. Use ILIKE for case-insensitive text searches: extracted_data->>'vendor_name' ILIKE '%%search%%'
4. Cast JSONB numbers for comparisons: (extracted_data->>'total')::numeric > 1000
5. Access nested JSONB fields: extracted_data->'statement_period'->>'start_date'
6. Search in JSONB arrays using EXISTS:
   EXISTS (
     SELECT 1 FROM jsonb_array_elements(extracted_data->'transactions') t
     WHERE t->>'description' ILIKE '%%search%%'
   )
7. Handle dates in extracted_data as strings: extracted_data->>'invoice_date' >= '2024-01-01'
8. ORDER BY created_at DESC by default
9. Always select: id, file_name, document_type, extracted_data, created_at
10. Do NOT include a trailing semicolon at the end of the query
`, payloadSections.String(), organizationID), nil
}

// StripTrailingSemicolon removes a trailing statement terminator. The
// generation rules already forbid it, but generated output is not
// trusted at the execution boundary.
func StripTrailingSemicolon(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
