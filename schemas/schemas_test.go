package schemas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalschemas "github.com/aungkyaw/grn-automation/internal/schemas"
)

func TestAllocationProposalSchemaIsValidJSON(t *testing.T) {
	var v interface{}
	err := json.Unmarshal([]byte(AllocationProposal), &v)
	require.NoError(t, err, "embedded schema should be valid JSON")
}

func TestAllocationProposalSchemaAcceptsWellFormedDecisions(t *testing.T) {
	doc := `{
		"decisions": [
			{
				"invoice_number": "INV-2026-001",
				"invoice_date": "2026-08-15",
				"status": "success",
				"reasoning": "all line items reconcile against GRN 1042",
				"proposals": [
					{
						"vendor_code": "V10001",
						"doc_entry": 42,
						"doc_date": "2026-08-15",
						"branch_id": 3,
						"lines": [
							{"line_num": 0, "quantity": 10},
							{"line_num": 1, "quantity": 2.5}
						]
					}
				]
			},
			{
				"invoice_number": "INV-2026-002",
				"status": "failed",
				"reasoning": "unit price deviates more than tolerance"
			}
		]
	}`

	assert.NoError(t, internalschemas.ValidateJSONString(AllocationProposal, doc))
}

func TestAllocationProposalSchemaRejectsBadDocuments(t *testing.T) {
	cases := map[string]string{
		"empty decisions":   `{"decisions": []}`,
		"unknown status":    `{"decisions": [{"invoice_number": "I1", "status": "maybe", "reasoning": "x"}]}`,
		"missing reasoning": `{"decisions": [{"invoice_number": "I1", "status": "failed"}]}`,
		"zero quantity": `{"decisions": [{"invoice_number": "I1", "status": "success", "reasoning": "ok",
			"proposals": [{"vendor_code": "V1", "doc_entry": 1, "lines": [{"line_num": 0, "quantity": 0}]}]}]}`,
		"empty lines": `{"decisions": [{"invoice_number": "I1", "status": "success", "reasoning": "ok",
			"proposals": [{"vendor_code": "V1", "doc_entry": 1, "lines": []}]}]}`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			err := internalschemas.ValidateJSONString(AllocationProposal, doc)
			require.Error(t, err)
			var validationErr *internalschemas.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}
