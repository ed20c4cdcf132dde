// Package validation defines the boundary to the service that decides
// whether an extracted invoice reconciles against its matched GRNs.
package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aungkyaw/grn-automation/internal/allocation"
	"github.com/aungkyaw/grn-automation/internal/extraction"
	"github.com/aungkyaw/grn-automation/internal/matching"
)

// Status is the validation service's verdict for one invoice.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusFailed         Status = "failed"
	StatusRequiresReview Status = "requires_review"
)

// Request carries everything the validation service needs for one run:
// the matched normalized GRNs, the extracted invoices, and how they
// relate.
type Request struct {
	VendorCode  string
	Cardinality extraction.Cardinality
	MatchedGRNs []matching.MatchedGRN
	Invoices    []extraction.ExtractedInvoice
}

// ProposalLine is one allocated quantity in a decision payload.
type ProposalLine struct {
	LineNum  int             `json:"line_num"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Proposal is the allocation the validation service proposes for one
// GRN within one invoice.
type Proposal struct {
	VendorCode string         `json:"vendor_code"`
	DocEntry   int            `json:"doc_entry"`
	DocDate    string         `json:"doc_date"`
	BranchID   int            `json:"branch_id"`
	Lines      []ProposalLine `json:"lines"`
}

// ToAllocation converts the wire proposal into the builder's input.
func (p Proposal) ToAllocation() allocation.Proposal {
	out := allocation.Proposal{
		VendorCode: p.VendorCode,
		DocEntry:   p.DocEntry,
		DocDate:    p.DocDate,
		BranchID:   p.BranchID,
	}
	for _, l := range p.Lines {
		out.Lines = append(out.Lines, allocation.Line{LineNum: l.LineNum, Quantity: l.Quantity})
	}
	return out
}

// Decision is the per-invoice outcome. Proposals are present only when
// Status is success.
type Decision struct {
	InvoiceNumber string     `json:"invoice_number"`
	InvoiceDate   string     `json:"invoice_date"`
	Status        Status     `json:"status"`
	Reasoning     string     `json:"reasoning"`
	Proposals     []Proposal `json:"proposals,omitempty"`
}

// Gateway is the opaque decision function. A transport-level failure of
// the call surfaces as an error; business rejections come back as
// decisions with a non-success status and are never retried without new
// input.
type Gateway interface {
	Validate(ctx context.Context, req Request) ([]Decision, error)
}

// RejectedError reports that the validation service accepted none of
// the invoices in a run.
type RejectedError struct {
	Decisions []Decision
}

func (e *RejectedError) Error() string {
	reasons := make([]string, 0, len(e.Decisions))
	for _, d := range e.Decisions {
		reasons = append(reasons, fmt.Sprintf("%s: %s (%s)", d.InvoiceNumber, d.Status, d.Reasoning))
	}
	return "validation rejected every invoice: " + strings.Join(reasons, "; ")
}
