package extraction

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/aungkyaw/grn-automation/internal/llm"
	"github.com/aungkyaw/grn-automation/internal/prompts"
)

const (
	markdownModel = "gemini-2.5-flash"
	fieldsModel   = "gemini-2.5-flash"
)

var (
	markdownPrompt  = prompts.MustGet("extraction.json", "document_to_markdown")
	fieldsPromptFmt = prompts.MustGet("extraction.json", "extract_fields")
)

// Gemini extracts invoice fields in two passes: a faithful markdown
// rendering of the document, then structured field extraction from that
// markdown.
type Gemini struct {
	client llm.Client
	log    *logrus.Entry
}

// NewGemini creates a Gemini-backed extractor.
func NewGemini(client llm.Client, log *logrus.Logger) *Gemini {
	return &Gemini{
		client: client,
		log:    log.WithField("component", "extraction"),
	}
}

// ExtractDocument implements Extractor.
func (g *Gemini) ExtractDocument(ctx context.Context, document []byte) (*ExtractedDocument, error) {
	markdown, err := g.client.GenerateFromDocument(ctx, markdownModel, markdownPrompt, "application/pdf", document)
	if err != nil {
		return nil, fmt.Errorf("failed to render document as markdown: %w", err)
	}

	raw, err := g.client.GenerateJSON(ctx, fieldsModel, fmt.Sprintf(fieldsPromptFmt, markdown))
	if err != nil {
		return nil, fmt.Errorf("failed to extract invoice fields: %w", err)
	}

	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, err
	}

	g.log.WithFields(logrus.Fields{
		"vendor_code":   doc.VendorCode,
		"invoice_count": len(doc.Invoices),
		"target_pos":    doc.TargetPOs,
	}).Info("document extracted")
	return doc, nil
}

// ParseDocument decodes and sanity-checks an extracted document.
func ParseDocument(raw string) (*ExtractedDocument, error) {
	var doc ExtractedDocument
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode extracted document: %w", err)
	}
	if len(doc.Invoices) == 0 {
		return nil, fmt.Errorf("extracted document contains no invoices")
	}
	for i, inv := range doc.Invoices {
		if inv.InvoiceNumber == "" {
			return nil, fmt.Errorf("extracted invoice %d has no invoice number", i)
		}
	}
	if len(doc.TargetPOs) == 0 {
		return nil, fmt.Errorf("extracted document references no purchase orders")
	}
	return &doc, nil
}
