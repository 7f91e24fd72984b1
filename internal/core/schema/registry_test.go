package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/avelinsk/finpaper/internal/core/domain"
)

func TestValidateMinimalBankStatement(t *testing.T) {
	registry := NewRegistry()

	payload := []byte(`{
		"bank_name": "First National",
		"account_number": "****1234",
		"statement_period": {"start_date": "2024-01-01", "end_date": "2024-01-31"},
		"opening_balance": 1000.50,
		"closing_balance": 900.25,
		"transactions": [
			{"date": "2024-01-05", "description": "Coffee", "amount": -4.50, "type": "debit"}
		]
	}`)

	extracted, err := registry.Validate(domain.TypeBankStatement, payload)
	if err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
	if extracted.BankStatement == nil {
		t.Fatal("expected bank statement variant to be set")
	}
	if extracted.BankStatement.Currency != "USD" {
		t.Fatalf("expected currency default USD, got %q", extracted.BankStatement.Currency)
	}
	if len(extracted.BankStatement.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(extracted.BankStatement.Transactions))
	}
}

func TestValidateMinimalInvoice(t *testing.T) {
	registry := NewRegistry()

	payload := []byte(`{
		"invoice_number": "INV-001",
		"vendor_name": "Acme Corp",
		"invoice_date": "2024-03-15",
		"line_items": [
			{"description": "Widget", "quantity": 2, "unit_price": 10, "amount": 20}
		],
		"subtotal": 20,
		"total": 22
	}`)

	extracted, err := registry.Validate(domain.TypeInvoice, payload)
	if err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
	if extracted.Invoice == nil {
		t.Fatal("expected invoice variant to be set")
	}
	if extracted.Invoice.Currency != "USD" {
		t.Fatalf("expected currency default USD, got %q", extracted.Invoice.Currency)
	}
	if extracted.Invoice.TaxRate != nil {
		t.Fatal("absent optional tax_rate must stay nil, not zero")
	}
}

func TestValidateReceiptDefaultsItemQuantity(t *testing.T) {
	registry := NewRegistry()

	payload := []byte(`{
		"merchant_name": "Corner Deli",
		"receipt_date": "2024-06-02",
		"items": [
			{"name": "Sandwich", "price": 8.50, "amount": 8.50},
			{"name": "Soda", "quantity": 2, "price": 2, "amount": 4}
		],
		"subtotal": 12.50,
		"total": 13.50
	}`)

	extracted, err := registry.Validate(domain.TypeReceipt, payload)
	if err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
	items := extracted.Receipt.Items
	if items[0].Quantity != 1 {
		t.Fatalf("expected defaulted quantity 1, got %v", items[0].Quantity)
	}
	if items[1].Quantity != 2 {
		t.Fatalf("expected explicit quantity 2 preserved, got %v", items[1].Quantity)
	}
}

func TestValidateMissingRequiredNamesField(t *testing.T) {
	registry := NewRegistry()

	payload := []byte(`{
		"vendor_name": "Acme Corp",
		"invoice_date": "2024-03-15",
		"line_items": [],
		"subtotal": 20,
		"total": 22
	}`)

	_, err := registry.Validate(domain.TypeInvoice, payload)
	if err == nil {
		t.Fatal("expected validation error for missing invoice_number")
	}
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected validation kind, got %v", err)
	}

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(validationErr.Fields) == 0 {
		t.Fatal("expected at least one field error")
	}
	if !strings.Contains(validationErr.Error(), "invoice_number") {
		t.Fatalf("expected error to name invoice_number, got %q", validationErr.Error())
	}
}

func TestValidateRejectsMalformedDate(t *testing.T) {
	registry := NewRegistry()

	payload := []byte(`{
		"merchant_name": "Corner Deli",
		"receipt_date": "06/02/2024",
		"items": [{"name": "Sandwich", "price": 8.50, "amount": 8.50}],
		"subtotal": 8.50,
		"total": 8.50
	}`)

	_, err := registry.Validate(domain.TypeReceipt, payload)
	if err == nil {
		t.Fatal("expected validation error for non-ISO date")
	}
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected validation kind, got %v", err)
	}
}

func TestValidateRouterOutput(t *testing.T) {
	registry := NewRegistry()

	classification, err := registry.ValidateRouter([]byte(`{
		"reasoning": "Header shows an invoice number and line items",
		"documentType": "invoice",
		"confidence": 0.93
	}`))
	if err != nil {
		t.Fatalf("expected valid router output, got %v", err)
	}
	if classification.DocumentType != domain.TypeInvoice {
		t.Fatalf("expected invoice, got %q", classification.DocumentType)
	}
	if classification.Confidence != 0.93 {
		t.Fatalf("expected confidence 0.93, got %v", classification.Confidence)
	}
}

func TestValidateRouterRejectsUnlistedType(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.ValidateRouter([]byte(`{
		"reasoning": "Looks like a contract",
		"documentType": "contract",
		"confidence": 0.8
	}`))
	if err == nil {
		t.Fatal("expected rejection of document type outside the enum")
	}
}

func TestExtractionSchemaUnknownType(t *testing.T) {
	registry := NewRegistry()

	if _, err := registry.ExtractionSchema(domain.TypeUnknown); err == nil {
		t.Fatal("expected error: unknown has no extraction schema")
	}
}

func TestSchemaContextJSONCoversSupportedTypes(t *testing.T) {
	registry := NewRegistry()

	for _, docType := range domain.SupportedTypes {
		ctxJSON, err := registry.SchemaContextJSON(docType)
		if err != nil {
			t.Fatalf("schema context for %s: %v", docType, err)
		}
		if !strings.Contains(ctxJSON, `"properties"`) {
			t.Fatalf("expected properties in %s schema context", docType)
		}
	}
}
