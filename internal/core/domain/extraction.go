package domain

import (
	"encoding/json"
	"fmt"
)

// Classification is the router's output for one document. Confidence is
// advisory: the router prompt asks the model to self-apply a >0.5 bar
// before choosing a financial type, and downstream code does not
// re-check it.
type Classification struct {
	Reasoning    string       `json:"reasoning"`
	DocumentType DocumentType `json:"documentType"`
	Confidence   float64      `json:"confidence"`
}

type StatementPeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type Transaction struct {
	Date        string   `json:"date"`
	Description string   `json:"description"`
	Amount      float64  `json:"amount"`
	Type        string   `json:"type"` // credit | debit
	Balance     *float64 `json:"balance,omitempty"`
}

type BankStatementData struct {
	BankName        string          `json:"bank_name"`
	AccountNumber   string          `json:"account_number"`
	AccountHolder   string          `json:"account_holder,omitempty"`
	StatementPeriod StatementPeriod `json:"statement_period"`
	OpeningBalance  float64         `json:"opening_balance"`
	ClosingBalance  float64         `json:"closing_balance"`
	TotalCredits    *float64        `json:"total_credits,omitempty"`
	TotalDebits     *float64        `json:"total_debits,omitempty"`
	Currency        string          `json:"currency"`
	Transactions    []Transaction   `json:"transactions"`
}

type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
}

type InvoiceData struct {
	InvoiceNumber   string     `json:"invoice_number"`
	VendorName      string     `json:"vendor_name"`
	VendorAddress   string     `json:"vendor_address,omitempty"`
	CustomerName    string     `json:"customer_name,omitempty"`
	CustomerAddress string     `json:"customer_address,omitempty"`
	InvoiceDate     string     `json:"invoice_date"`
	DueDate         string     `json:"due_date,omitempty"`
	LineItems       []LineItem `json:"line_items"`
	Subtotal        float64    `json:"subtotal"`
	TaxRate         *float64   `json:"tax_rate,omitempty"`
	TaxAmount       *float64   `json:"tax_amount,omitempty"`
	Discount        *float64   `json:"discount,omitempty"`
	Total           float64    `json:"total"`
	Currency        string     `json:"currency"`
	PaymentTerms    string     `json:"payment_terms,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

type ReceiptItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Amount   float64 `json:"amount"`
}

type ReceiptData struct {
	MerchantName    string        `json:"merchant_name"`
	MerchantAddress string        `json:"merchant_address,omitempty"`
	MerchantPhone   string        `json:"merchant_phone,omitempty"`
	ReceiptDate     string        `json:"receipt_date"`
	ReceiptTime     string        `json:"receipt_time,omitempty"`
	ReceiptNumber   string        `json:"receipt_number,omitempty"`
	Items           []ReceiptItem `json:"items"`
	Subtotal        float64       `json:"subtotal"`
	TaxAmount       *float64      `json:"tax_amount,omitempty"`
	Tip             *float64      `json:"tip,omitempty"`
	Total           float64       `json:"total"`
	PaymentMethod   string        `json:"payment_method,omitempty"` // cash | credit_card | debit_card | other
	CardLastFour    string        `json:"card_last_four,omitempty"`
	Currency        string        `json:"currency"`
}

// ExtractedData is a tagged union over the three payload shapes,
// discriminated by Type. Exactly one payload pointer is set; payloads
// are never mixed across types.
type ExtractedData struct {
	Type          DocumentType
	BankStatement *BankStatementData
	Invoice       *InvoiceData
	Receipt       *ReceiptData
}

// Payload returns the variant matching Type.
func (d *ExtractedData) Payload() any {
	switch d.Type {
	case TypeBankStatement:
		return d.BankStatement
	case TypeInvoice:
		return d.Invoice
	case TypeReceipt:
		return d.Receipt
	default:
		return nil
	}
}

// MarshalJSON emits the payload object directly; the discriminator
// lives in the sibling document_type column, not inside the payload.
func (d *ExtractedData) MarshalJSON() ([]byte, error) {
	p := d.Payload()
	if p == nil {
		return []byte("null"), nil
	}
	return json.Marshal(p)
}

// DecodeExtractedData unmarshals a raw payload into the variant for t.
func DecodeExtractedData(t DocumentType, raw []byte) (*ExtractedData, error) {
	out := &ExtractedData{Type: t}
	var err error
	switch t {
	case TypeBankStatement:
		out.BankStatement = &BankStatementData{}
		err = json.Unmarshal(raw, out.BankStatement)
	case TypeInvoice:
		out.Invoice = &InvoiceData{}
		err = json.Unmarshal(raw, out.Invoice)
	case TypeReceipt:
		out.Receipt = &ReceiptData{}
		err = json.Unmarshal(raw, out.Receipt)
	default:
		return nil, fmt.Errorf("no extraction payload for document type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return out, nil
}
