package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/avelinsk/finpaper/internal/core/domain"
	"github.com/avelinsk/finpaper/internal/core/ports"
	"github.com/avelinsk/finpaper/internal/core/schema"
)

type capturingModel struct {
	systemPrompt string
	instruction  string
	response     json.RawMessage
	err          error
}

func (m *capturingModel) GenerateStructured(_ context.Context, systemPrompt, instruction string, _ *ports.DocumentContent, _ map[string]any) (json.RawMessage, error) {
	m.systemPrompt = systemPrompt
	m.instruction = instruction
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *capturingModel) ModelID() string { return "test-model" }

type fakeExecutor struct {
	gotSQL string
	gotOrg string
	hits   []domain.DocumentHit
	err    error
}

func (e *fakeExecutor) ExecuteReadQuery(_ context.Context, sqlText, organizationID string) ([]domain.DocumentHit, error) {
	e.gotSQL = sqlText
	e.gotOrg = organizationID
	if e.err != nil {
		return nil, e.err
	}
	return e.hits, nil
}

func querySpec(sqlText string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{
		"sql":         sqlText,
		"explanation": "finds matching documents",
	})
	return b
}

func TestSearchStripsTrailingSemicolon(t *testing.T) {
	model := &capturingModel{response: querySpec("SELECT id, file_name, document_type, extracted_data, created_at FROM documents;")}
	executor := &fakeExecutor{hits: []domain.DocumentHit{{ID: "doc-1"}}}
	uc := NewSearchDocumentsUseCase(model, executor, schema.NewRegistry(), nil)

	result := uc.Search(context.Background(), "all documents", "org-1")
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if strings.HasSuffix(executor.gotSQL, ";") {
		t.Fatalf("trailing semicolon must be stripped, executor got %q", executor.gotSQL)
	}
	if executor.gotOrg != "org-1" {
		t.Fatalf("executor must receive the tenant, got %q", executor.gotOrg)
	}
}

func TestSearchZeroMatchesIsSuccess(t *testing.T) {
	model := &capturingModel{response: querySpec("SELECT id, file_name, document_type, extracted_data, created_at FROM documents")}
	executor := &fakeExecutor{hits: nil}
	uc := NewSearchDocumentsUseCase(model, executor, schema.NewRegistry(), nil)

	result := uc.Search(context.Background(), "invoices over one million", "org-1")
	if !result.Success {
		t.Fatal("zero matches is a successful search")
	}
	if result.Found != 0 {
		t.Fatalf("expected 0 found, got %d", result.Found)
	}
	if result.Documents == nil {
		t.Fatal("expected empty document slice, not nil")
	}
	if result.Message != "No documents found matching your criteria." {
		t.Fatalf("unexpected zero-match message %q", result.Message)
	}
}

func TestSearchTranslationFailureIsStructured(t *testing.T) {
	model := &capturingModel{err: errors.New("model unavailable")}
	uc := NewSearchDocumentsUseCase(model, &fakeExecutor{}, schema.NewRegistry(), nil)

	result := uc.Search(context.Background(), "anything", "org-1")
	if result.Success {
		t.Fatal("expected structured failure")
	}
	if result.Error == "" || result.Message == "" {
		t.Fatalf("failure must carry error and message, got %+v", result)
	}
}

func TestSearchExecutionFailureIsStructured(t *testing.T) {
	model := &capturingModel{response: querySpec("DELETE FROM documents")}
	executor := &fakeExecutor{err: errors.New("query must be a SELECT statement")}
	uc := NewSearchDocumentsUseCase(model, executor, schema.NewRegistry(), nil)

	result := uc.Search(context.Background(), "drop everything", "org-1")
	if result.Success {
		t.Fatal("expected structured failure")
	}
	if !strings.Contains(result.Message, "rephrasing") {
		t.Fatalf("expected user-facing guidance, got %q", result.Message)
	}
}

func TestSearchEmptyGeneratedQueryFails(t *testing.T) {
	model := &capturingModel{response: querySpec("  ")}
	uc := NewSearchDocumentsUseCase(model, &fakeExecutor{}, schema.NewRegistry(), nil)

	result := uc.Search(context.Background(), "anything", "org-1")
	if result.Success {
		t.Fatal("expected failure for empty generated query")
	}
}

func TestSearchPromptCarriesTenantAndSchemas(t *testing.T) {
	model := &capturingModel{response: querySpec("SELECT id, file_name, document_type, extracted_data, created_at FROM documents")}
	uc := NewSearchDocumentsUseCase(model, &fakeExecutor{}, schema.NewRegistry(), nil)

	uc.Search(context.Background(), "receipts from May", "org-42")

	if !strings.Contains(model.systemPrompt, "organization_id = 'org-42'") {
		t.Fatal("system context must pin the tenant filter")
	}
	for _, docType := range domain.SupportedTypes {
		if !strings.Contains(model.systemPrompt, string(docType)) {
			t.Fatalf("system context must describe %s", docType)
		}
	}
	if !strings.Contains(model.instruction, "receipts from May") {
		t.Fatal("instruction must carry the user query")
	}
}

func TestStripTrailingSemicolon(t *testing.T) {
	cases := map[string]string{
		"SELECT 1;":        "SELECT 1",
		"SELECT 1; ;  ; ":  "SELECT 1",
		"SELECT 1":         "SELECT 1",
		"  SELECT 1  ":     "SELECT 1",
		"SELECT ';' FROM t": "SELECT ';' FROM t",
	}
	for in, want := range cases {
		if got := StripTrailingSemicolon(in); got != want {
			t.Errorf("StripTrailingSemicolon(%q) = %q, want %q", in, got, want)
		}
	}
}
