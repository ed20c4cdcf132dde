// Package allocation converts accepted validation decisions into
// concrete ERP invoice payloads, re-verifying every quantity bound
// before anything is posted.
package allocation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aungkyaw/grn-automation/internal/sap"
)

// Line is one allocated quantity against a GRN line.
type Line struct {
	LineNum  int
	Quantity decimal.Decimal
}

// Proposal is the accepted allocation for one GRN within one invoice.
// A one-invoice-to-many-GRNs reconciliation produces several proposals
// for the same invoice.
type Proposal struct {
	VendorCode string
	DocEntry   int
	DocDate    string
	BranchID   int
	Lines      []Line
}

// Error reports a proposal the builder refuses to turn into a payload.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return "allocation error: " + e.Message
}

// Build validates the proposals for one invoice and assembles the ERP
// payload. The validation service's quantities are not trusted blindly:
// every allocated quantity must be positive and the total allocated per
// GRN line must not exceed that line's remaining open quantity. Mixed
// vendor codes are a hard error. The payload is stamped with a fresh
// unique vendor reference so the ERP cannot merge or reject repeated
// postings for the same vendor on the same day.
func Build(proposals []Proposal, grns []sap.OpenGRN) (*sap.InvoicePayload, error) {
	if len(proposals) == 0 {
		return nil, &Error{Message: "nothing to invoice"}
	}

	vendorCode := proposals[0].VendorCode
	for _, p := range proposals {
		if p.VendorCode != vendorCode {
			return nil, &Error{Message: fmt.Sprintf("mixed vendor codes %s and %s in one invoice", vendorCode, p.VendorCode)}
		}
	}

	byEntry := make(map[int]*sap.OpenGRN, len(grns))
	for i := range grns {
		byEntry[grns[i].DocEntry] = &grns[i]
	}

	// Quantities already allocated per GRN line, across all proposals,
	// keyed by doc entry and line number.
	allocated := make(map[[2]int]decimal.Decimal)

	payload := &sap.InvoicePayload{
		CardCode:  vendorCode,
		DocDate:   proposals[0].DocDate,
		NumAtCard: NewVendorRef(vendorCode),
		BranchID:  proposals[0].BranchID,
	}

	for _, p := range proposals {
		grn, ok := byEntry[p.DocEntry]
		if !ok {
			return nil, &Error{Message: fmt.Sprintf("proposal references unknown grn doc entry %d", p.DocEntry)}
		}
		if payload.DocDate == "" {
			payload.DocDate = grn.DocDate
		}
		for _, l := range p.Lines {
			grnLine := grn.Line(l.LineNum)
			if grnLine == nil {
				return nil, &Error{Message: fmt.Sprintf("proposal references unknown line %d of grn %d", l.LineNum, p.DocEntry)}
			}
			if !l.Quantity.IsPositive() {
				return nil, &Error{Message: fmt.Sprintf("non-positive quantity %s for line %d of grn %d", l.Quantity, l.LineNum, p.DocEntry)}
			}
			key := [2]int{p.DocEntry, l.LineNum}
			total := allocated[key].Add(l.Quantity)
			if total.GreaterThan(grnLine.RemainingOpenQuantity) {
				return nil, &Error{Message: fmt.Sprintf("allocated quantity %s exceeds remaining open quantity %s on line %d of grn %d",
					total, grnLine.RemainingOpenQuantity, l.LineNum, p.DocEntry)}
			}
			allocated[key] = total

			payload.Lines = append(payload.Lines,
				sap.NewInvoiceLine(p.DocEntry, l.LineNum, l.Quantity, grnLine.UnitPrice))
		}
	}

	if len(payload.Lines) == 0 {
		return nil, &Error{Message: "nothing to invoice"}
	}
	return payload, nil
}

// NewVendorRef generates a globally unique vendor reference from the
// vendor code, the current timestamp, and a random suffix.
func NewVendorRef(vendorCode string) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s-%s-%s", vendorCode, time.Now().UTC().Format("20060102150405"), suffix)
}
