package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Run status constants
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Step name constants, in pipeline order
const (
	StepUpload          = "upload"
	StepSessionLogin    = "session_login"
	StepExtraction      = "extraction"
	StepFetchVendorCode = "fetch_vendor_code"
	StepFetchOpenGRN    = "fetch_open_grn"
	StepFilterGRN       = "filter_grn"
	StepValidation      = "validation"
	StepPosted          = "posted"
)

// Step status constants
const (
	StepStatusPending = "pending"
	StepStatusSuccess = "success"
	StepStatusFailed  = "failed"
)

// Validation status constants for a reconciliation result
const (
	ValidationStatusSuccess = "success"
	ValidationStatusFailed  = "failed"
	ValidationStatusPartial = "partial"
)

// Posting status constants for a reconciliation result
const (
	PostingStatusPending = "pending"
	PostingStatusPosted  = "posted"
	PostingStatusFailed  = "failed"
)

// Run represents one automation run.
type Run struct {
	ID          uuid.UUID  `json:"id"`
	UserSubject string     `json:"user_subject"`
	DocumentRef string     `json:"document_ref"`
	Filename    string     `json:"filename"`
	Cardinality string     `json:"cardinality"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Step is one append-only entry in a run's step history.
type Step struct {
	ID        uuid.UUID `json:"id"`
	RunID     uuid.UUID `json:"run_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ReconciliationResult is the outcome for one invoice within a run.
// Once PostingStatus is posted the record is immutable.
type ReconciliationResult struct {
	ID               uuid.UUID        `json:"id"`
	RunID            uuid.UUID        `json:"run_id"`
	InvoiceNumber    string           `json:"invoice_number"`
	InvoiceDate      string           `json:"invoice_date"`
	VendorCode       string           `json:"vendor_code"`
	DocEntry         int              `json:"doc_entry"`
	DocDate          string           `json:"doc_date"`
	BranchID         int              `json:"branch_id"`
	ValidationStatus string           `json:"validation_status"`
	Message          string           `json:"message"`
	PostingStatus    string           `json:"posting_status"`
	PostingMessage   string           `json:"posting_message"`
	VendorRef        string           `json:"vendor_ref"`
	PostedDocEntry   *int             `json:"posted_doc_entry,omitempty"`
	Lines            []AllocationLine `json:"lines,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// AllocationLine is one allocated GRN line persisted with a result, so
// a posting retry can rebuild the payload without re-running matching
// or validation.
type AllocationLine struct {
	ID        uuid.UUID       `json:"id"`
	ResultID  uuid.UUID       `json:"result_id"`
	DocEntry  int             `json:"doc_entry"`
	LineNum   int             `json:"line_num"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ResultInput is the payload for creating a reconciliation result.
type ResultInput struct {
	InvoiceNumber    string
	InvoiceDate      string
	VendorCode       string
	DocEntry         int
	DocDate          string
	BranchID         int
	ValidationStatus string
	Message          string
	Lines            []AllocationLine
}

// ResultFilter narrows result listings.
type ResultFilter struct {
	PostingStatus    string
	ValidationStatus string
}

// Stats aggregates run outcomes over a trailing window.
type Stats struct {
	Days          int `json:"days"`
	TotalRuns     int `json:"total_runs"`
	CompletedRuns int `json:"completed_runs"`
	FailedRuns    int `json:"failed_runs"`
	TotalInvoices int `json:"total_invoices"`
	PostedCount   int `json:"posted_count"`
	FailedCount   int `json:"failed_count"`
}
