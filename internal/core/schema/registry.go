// Package schema is the registry of extraction contracts: one strict
// JSON Schema per supported document type plus the router's output
// schema. Schemas are built as plain maps so the same definition is
// sent to the model as a structured-output constraint and compiled
// locally for validation.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/avelinsk/finpaper/internal/core/domain"
)

type Registry struct {
	extraction map[domain.DocumentType]map[string]any
	router     map[string]any
}

func NewRegistry() *Registry {
	return &Registry{
		extraction: map[domain.DocumentType]map[string]any{
			domain.TypeBankStatement: bankStatementSchema(),
			domain.TypeInvoice:       invoiceSchema(),
			domain.TypeReceipt:       receiptSchema(),
		},
		router: routerSchema(),
	}
}

// RouterSchema is the wire contract for the classification stage.
func (r *Registry) RouterSchema() map[string]any {
	return r.router
}

// ExtractionSchema returns the schema for an extractable type.
func (r *Registry) ExtractionSchema(t domain.DocumentType) (map[string]any, error) {
	s, ok := r.extraction[t]
	if !ok {
		return nil, fmt.Errorf("no extraction schema for document type %q", t)
	}
	return s, nil
}

// SchemaContextJSON renders one extraction schema as indented JSON for
// inclusion in prompts. Derived mechanically so registry changes
// propagate to the search translator without hand-maintained copies.
func (r *Registry) SchemaContextJSON(t domain.DocumentType) (string, error) {
	s, err := r.ExtractionSchema(t)
	if err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s schema: %w", t, err)
	}
	return string(b), nil
}

func routerSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"reasoning": map[string]any{
				"type":        "string",
				"description": "Brief explanation of why this document type was chosen",
			},
			"documentType": map[string]any{
				"type":        "string",
				"enum":        []any{"bank_statement", "invoice", "receipt", "unknown"},
				"description": "The classified document type",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0.0,
				"maximum":     1.0,
				"description": "Confidence score from 0 to 1",
			},
		},
		"required": []any{"reasoning", "documentType", "confidence"},
	}
}

func bankStatementSchema() map[string]any {
	transaction := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"date":        dateProp("Transaction date (YYYY-MM-DD format)"),
			"description": map[string]any{"type": "string", "description": "Transaction description"},
			"amount":      numberProp("Transaction amount (positive for credit, negative for debit)"),
			"type": map[string]any{
				"type":        "string",
				"enum":        []any{"credit", "debit"},
				"description": "Transaction type",
			},
			"balance": numberProp("Running balance after transaction"),
		},
		"required": []any{"date", "description", "amount", "type"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"bank_name":      map[string]any{"type": "string", "minLength": 1, "description": "Name of the bank"},
			"account_number": map[string]any{"type": "string", "minLength": 1, "description": "Account number (may be partially masked)"},
			"account_holder": map[string]any{"type": "string", "description": "Name of the account holder"},
			"statement_period": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"start_date": dateProp("Statement period start date (YYYY-MM-DD)"),
					"end_date":   dateProp("Statement period end date (YYYY-MM-DD)"),
				},
				"required": []any{"start_date", "end_date"},
			},
			"opening_balance": numberProp("Opening balance at start of period"),
			"closing_balance": numberProp("Closing balance at end of period"),
			"total_credits":   numberProp("Total credits during period"),
			"total_debits":    numberProp("Total debits during period"),
			"currency":        currencyProp(),
			"transactions": map[string]any{
				"type":        "array",
				"items":       transaction,
				"description": "List of transactions",
			},
		},
		"required": []any{
			"bank_name", "account_number", "statement_period",
			"opening_balance", "closing_balance", "transactions",
		},
	}
}

func invoiceSchema() map[string]any {
	lineItem := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"description": map[string]any{"type": "string", "description": "Item or service description"},
			"quantity":    numberProp("Quantity"),
			"unit_price":  numberProp("Price per unit"),
			"amount":      numberProp("Total amount for this line item"),
		},
		"required": []any{"description", "quantity", "unit_price", "amount"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"invoice_number":   map[string]any{"type": "string", "minLength": 1, "description": "Invoice number/ID"},
			"vendor_name":      map[string]any{"type": "string", "minLength": 1, "description": "Name of the vendor/seller"},
			"vendor_address":   map[string]any{"type": "string", "description": "Vendor address"},
			"customer_name":    map[string]any{"type": "string", "description": "Name of the customer/buyer"},
			"customer_address": map[string]any{"type": "string", "description": "Customer address"},
			"invoice_date":     dateProp("Invoice date (YYYY-MM-DD)"),
			"due_date":         dateProp("Payment due date (YYYY-MM-DD)"),
			"line_items": map[string]any{
				"type":        "array",
				"items":       lineItem,
				"description": "List of line items",
			},
			"subtotal":      numberProp("Subtotal before tax"),
			"tax_rate":      numberProp("Tax rate as percentage"),
			"tax_amount":    numberProp("Tax amount"),
			"discount":      numberProp("Discount amount"),
			"total":         numberProp("Total amount due"),
			"currency":      currencyProp(),
			"payment_terms": map[string]any{"type": "string", "description": "Payment terms"},
			"notes":         map[string]any{"type": "string", "description": "Additional notes"},
		},
		"required": []any{
			"invoice_number", "vendor_name", "invoice_date",
			"line_items", "subtotal", "total",
		},
	}
}

func receiptSchema() map[string]any {
	item := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"name":     map[string]any{"type": "string", "description": "Item name"},
			"quantity": map[string]any{"type": "number", "default": 1, "description": "Quantity purchased"},
			"price":    numberProp("Price per item"),
			"amount":   numberProp("Total amount for this item"),
		},
		"required": []any{"name", "price", "amount"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"merchant_name":    map[string]any{"type": "string", "minLength": 1, "description": "Name of the merchant/store"},
			"merchant_address": map[string]any{"type": "string", "description": "Merchant address"},
			"merchant_phone":   map[string]any{"type": "string", "description": "Merchant phone number"},
			"receipt_date":     dateProp("Receipt date (YYYY-MM-DD)"),
			"receipt_time": map[string]any{
				"type":        "string",
				"pattern":     `^\d{2}:\d{2}$`,
				"description": "Receipt time (HH:MM, 24-hour)",
			},
			"receipt_number": map[string]any{"type": "string", "description": "Receipt/transaction number"},
			"items": map[string]any{
				"type":        "array",
				"items":       item,
				"description": "List of purchased items",
			},
			"subtotal":   numberProp("Subtotal before tax"),
			"tax_amount": numberProp("Tax amount"),
			"tip":        numberProp("Tip amount"),
			"total":      numberProp("Total amount paid"),
			"payment_method": map[string]any{
				"type":        "string",
				"enum":        []any{"cash", "credit_card", "debit_card", "other"},
				"description": "Payment method used",
			},
			"card_last_four": map[string]any{
				"type":        "string",
				"pattern":     `^\d{4}$`,
				"description": "Last 4 digits of card used",
			},
			"currency": currencyProp(),
		},
		"required": []any{"merchant_name", "receipt_date", "items", "subtotal", "total"},
	}
}

func dateProp(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"pattern":     `^\d{4}-\d{2}-\d{2}$`,
		"description": description,
	}
}

func numberProp(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}

func currencyProp() map[string]any {
	return map[string]any{
		"type":        "string",
		"minLength":   3,
		"maxLength":   3,
		"default":     "USD",
		"description": "Currency code",
	}
}
