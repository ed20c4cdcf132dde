package extraction

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument(t *testing.T) {
	raw := `{
		"vendor_code": "V10001",
		"vendor_name": "Acme Supplies",
		"target_pos": ["1042"],
		"cardinality": "one_to_one",
		"invoices": [
			{
				"invoice_number": "INV-2026-001",
				"invoice_date": "2026-08-15",
				"line_items": [
					{"description": "Widget", "quantity": 10, "unit_price": 15.05, "line_total": 150.5}
				]
			}
		]
	}`

	doc, err := ParseDocument(raw)
	require.NoError(t, err)
	assert.Equal(t, "V10001", doc.VendorCode)
	assert.Equal(t, []string{"1042"}, doc.TargetPOs)
	assert.Equal(t, OneToOne, doc.Cardinality)
	require.Len(t, doc.Invoices, 1)
	require.Len(t, doc.Invoices[0].LineItems, 1)
	assert.True(t, doc.Invoices[0].LineItems[0].Quantity.Equal(decimal.NewFromInt(10)))
}

func TestParseDocumentStripsMarkdownFence(t *testing.T) {
	raw := "```json\n{\"target_pos\": [\"100\"], \"invoices\": [{\"invoice_number\": \"I1\"}]}\n```"

	doc, err := ParseDocument(raw)
	require.NoError(t, err)
	assert.Equal(t, "I1", doc.Invoices[0].InvoiceNumber)
}

func TestParseDocumentRejections(t *testing.T) {
	cases := map[string]string{
		"not json":           `vendor: acme`,
		"no invoices":        `{"target_pos": ["100"], "invoices": []}`,
		"unnumbered invoice": `{"target_pos": ["100"], "invoices": [{"invoice_date": "2026-08-15"}]}`,
		"no purchase orders": `{"target_pos": [], "invoices": [{"invoice_number": "I1"}]}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDocument(raw)
			assert.Error(t, err)
		})
	}
}

func TestCardinalityValid(t *testing.T) {
	assert.True(t, OneToOne.Valid())
	assert.True(t, OneToMany.Valid())
	assert.True(t, ManyToOne.Valid())
	assert.False(t, Cardinality("both").Valid())
	assert.False(t, Cardinality("").Valid())
}
