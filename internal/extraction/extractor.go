// Package extraction defines the boundary that turns a source invoice
// document into structured fields the pipeline can reconcile.
package extraction

import (
	"context"

	"github.com/shopspring/decimal"
)

// Cardinality describes how invoices in a document relate to GRNs.
type Cardinality string

const (
	// OneToOne is one invoice reconciled against one GRN.
	OneToOne Cardinality = "one_to_one"
	// OneToMany is one GRN shared by several invoices.
	OneToMany Cardinality = "one_to_many"
	// ManyToOne is one invoice spanning several GRNs.
	ManyToOne Cardinality = "many_to_one"
)

// Valid reports whether c is a known cardinality.
func (c Cardinality) Valid() bool {
	switch c {
	case OneToOne, OneToMany, ManyToOne:
		return true
	}
	return false
}

// LineItem is one billed line of an extracted invoice.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// ExtractedInvoice is one invoice found in the source document.
type ExtractedInvoice struct {
	InvoiceNumber string     `json:"invoice_number"`
	InvoiceDate   string     `json:"invoice_date"`
	LineItems     []LineItem `json:"line_items"`
}

// ExtractedDocument is the structured content of one source document.
// VendorCode may be empty when the document only names the vendor; the
// pipeline then resolves the code through the ERP's business partner
// lookup.
type ExtractedDocument struct {
	VendorCode  string             `json:"vendor_code"`
	VendorName  string             `json:"vendor_name"`
	TargetPOs   []string           `json:"target_pos"`
	Cardinality Cardinality        `json:"cardinality"`
	Invoices    []ExtractedInvoice `json:"invoices"`
}

// Extractor reads a source document. The pipeline treats the
// implementation as opaque.
type Extractor interface {
	ExtractDocument(ctx context.Context, document []byte) (*ExtractedDocument, error)
}
