package domain

import "time"

type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

type DocumentType string

const (
	TypeBankStatement DocumentType = "bank_statement"
	TypeInvoice       DocumentType = "invoice"
	TypeReceipt       DocumentType = "receipt"
	TypeUnknown       DocumentType = "unknown"
)

// SupportedTypes are the extractable document types; TypeUnknown is the
// router fallback and never carries extracted data.
var SupportedTypes = []DocumentType{TypeBankStatement, TypeInvoice, TypeReceipt}

func (t DocumentType) Extractable() bool {
	switch t {
	case TypeBankStatement, TypeInvoice, TypeReceipt:
		return true
	default:
		return false
	}
}

var TypeLabels = map[DocumentType]string{
	TypeBankStatement: "Bank Statement",
	TypeInvoice:       "Invoice",
	TypeReceipt:       "Receipt",
	TypeUnknown:       "Unknown",
}

var StatusLabels = map[DocumentStatus]string{
	StatusPending:    "Pending",
	StatusProcessing: "Processing",
	StatusCompleted:  "Completed",
	StatusFailed:     "Failed",
}

// Document is one uploaded file under processing. Rows are mutated
// exclusively by the processing job; deletion is an external concern.
type Document struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	FileName       string         `json:"file_name"`
	FilePath       string         `json:"file_path"`
	FileSize       int64          `json:"file_size"`
	MimeType       string         `json:"mime_type"`
	Status         DocumentStatus `json:"status"`
	DocumentType   *DocumentType  `json:"document_type,omitempty"`
	ExtractedData  *ExtractedData `json:"extracted_data,omitempty"`
	Confidence     *float64       `json:"extraction_confidence,omitempty"`
	AIModel        string         `json:"ai_model,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	RunID          string         `json:"run_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	ProcessedAt    *time.Time     `json:"processed_at,omitempty"`
}

// DocumentStats is the by-status breakdown for one organization.
type DocumentStats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

// DocumentFilter narrows organization-scoped listings.
type DocumentFilter struct {
	Status DocumentStatus
	Type   DocumentType
}
