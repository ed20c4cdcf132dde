package sap

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeAppliesDefaults(t *testing.T) {
	grn := Normalize(map[string]any{})

	assert.Equal(t, 0, grn.DocEntry)
	assert.Equal(t, "", grn.CardCode)
	assert.Equal(t, "", grn.DocDate)
	assert.True(t, grn.DocTotal.IsZero())
	assert.Empty(t, grn.Lines)
}

func TestNormalizeFullRecord(t *testing.T) {
	grn := Normalize(stubGRN(42))

	assert.Equal(t, 42, grn.DocEntry)
	assert.Equal(t, 1042, grn.DocNum)
	assert.Equal(t, "V10001", grn.CardCode)
	assert.Equal(t, 3, grn.BranchID)
	assert.True(t, grn.DocTotal.Equal(decimal.NewFromFloat(150.5)))

	if assert.Len(t, grn.Lines, 1) {
		line := grn.Lines[0]
		assert.Equal(t, 0, line.LineNum)
		assert.Equal(t, "ITM-1", line.ItemCode)
		assert.True(t, line.Quantity.Equal(decimal.NewFromInt(10)))
		assert.True(t, line.UnitPrice.Equal(decimal.NewFromFloat(15.05)))
	}
}

func TestNormalizeDefaultsOpenQuantityToQuantity(t *testing.T) {
	grn := Normalize(map[string]any{
		"DocEntry": float64(7),
		"DocumentLines": []any{
			map[string]any{"LineNum": float64(0), "Quantity": float64(25)},
		},
	})

	assert.Len(t, grn.Lines, 1)
	assert.True(t, grn.Lines[0].RemainingOpenQuantity.Equal(decimal.NewFromInt(25)),
		"missing open quantity means the line is fully uninvoiced")
}

func TestNormalizeSkipsMalformedLines(t *testing.T) {
	grn := Normalize(map[string]any{
		"DocEntry": float64(7),
		"DocumentLines": []any{
			"not-a-line",
			map[string]any{"LineNum": float64(2), "Quantity": float64(5)},
		},
	})

	assert.Len(t, grn.Lines, 1)
	assert.Equal(t, 2, grn.Lines[0].LineNum)
}

func TestOpenGRNLineLookup(t *testing.T) {
	grn := Normalize(stubGRN(1))

	assert.NotNil(t, grn.Line(0))
	assert.Nil(t, grn.Line(99))
}
