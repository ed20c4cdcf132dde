package sap

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// GRNLine is one receipt line of an open GRN, read-only from the ERP's
// point of view. RemainingOpenQuantity is the quantity still available to
// invoice against this line.
type GRNLine struct {
	LineNum               int             `json:"line_num"`
	BaseType              int             `json:"base_type"`
	BaseEntry             int             `json:"base_entry"`
	BaseLine              int             `json:"base_line"`
	ItemCode              string          `json:"item_code"`
	ItemDescription       string          `json:"item_description"`
	Quantity              decimal.Decimal `json:"quantity"`
	RemainingOpenQuantity decimal.Decimal `json:"remaining_open_quantity"`
	UnitPrice             decimal.Decimal `json:"unit_price"`
	LineTotal             decimal.Decimal `json:"line_total"`
}

// OpenGRN is the canonical, normalized form of a Goods Receipt Note as
// returned by the ERP. It is never mutated locally; each run refetches.
type OpenGRN struct {
	DocEntry    int             `json:"doc_entry"`
	DocNum      int             `json:"doc_num"`
	DocDate     string          `json:"doc_date"`
	TaxDate     string          `json:"tax_date"`
	CardCode    string          `json:"card_code"`
	CardName    string          `json:"card_name"`
	DocCurrency string          `json:"doc_currency"`
	DocTotal    decimal.Decimal `json:"doc_total"`
	VatSum      decimal.Decimal `json:"vat_sum"`
	BranchID    int             `json:"branch_id"`
	Lines       []GRNLine       `json:"lines"`
}

// Line returns the GRN line with the given line number, or nil.
func (g *OpenGRN) Line(lineNum int) *GRNLine {
	for i := range g.Lines {
		if g.Lines[i].LineNum == lineNum {
			return &g.Lines[i]
		}
	}
	return nil
}

// baseTypeGoodsReceipt is the ERP object type for a goods receipt PO;
// invoice lines drawn from a GRN must reference it.
const baseTypeGoodsReceipt = 20

// InvoiceLine is one line of an outbound AP invoice payload. Quantities
// and prices are serialized as JSON numbers, which the Service Layer
// requires.
type InvoiceLine struct {
	BaseType  int         `json:"BaseType"`
	BaseEntry int         `json:"BaseEntry"`
	BaseLine  int         `json:"BaseLine"`
	Quantity  json.Number `json:"Quantity"`
	UnitPrice json.Number `json:"UnitPrice"`
}

// InvoicePayload is the AP invoice document submitted to the ERP.
// NumAtCard carries the unique vendor reference that prevents the ERP
// from accepting a duplicate posting for the same vendor.
type InvoicePayload struct {
	CardCode  string        `json:"CardCode"`
	DocDate   string        `json:"DocDate"`
	NumAtCard string        `json:"NumAtCard"`
	BranchID  int           `json:"BPL_IDAssignedToInvoice,omitempty"`
	Lines     []InvoiceLine `json:"DocumentLines"`
}

// NewInvoiceLine builds an invoice line against a GRN line.
func NewInvoiceLine(docEntry, baseLine int, quantity, unitPrice decimal.Decimal) InvoiceLine {
	return InvoiceLine{
		BaseType:  baseTypeGoodsReceipt,
		BaseEntry: docEntry,
		BaseLine:  baseLine,
		Quantity:  json.Number(quantity.String()),
		UnitPrice: json.Number(unitPrice.String()),
	}
}

// PostedInvoice describes the ERP document created by a successful post.
type PostedInvoice struct {
	DocEntry  int    `json:"DocEntry"`
	DocNum    int    `json:"DocNum"`
	CardCode  string `json:"CardCode"`
	DocDate   string `json:"DocDate"`
	NumAtCard string `json:"NumAtCard"`
}
