package sap

import "github.com/shopspring/decimal"

// Normalize reshapes one raw ERP GRN record into the canonical OpenGRN.
// Every field gets an explicit default when absent so downstream
// matching and allocation never branch on missing-field errors; ERP
// schema drift stops here.
func Normalize(raw map[string]any) OpenGRN {
	grn := OpenGRN{
		DocEntry:    intField(raw, "DocEntry"),
		DocNum:      intField(raw, "DocNum"),
		DocDate:     stringField(raw, "DocDate"),
		TaxDate:     stringField(raw, "TaxDate"),
		CardCode:    stringField(raw, "CardCode"),
		CardName:    stringField(raw, "CardName"),
		DocCurrency: stringField(raw, "DocCurrency"),
		DocTotal:    decimalField(raw, "DocTotal"),
		VatSum:      decimalField(raw, "VatSum"),
		BranchID:    intField(raw, "BPLId"),
	}

	for _, rawLine := range listField(raw, "DocumentLines") {
		line := GRNLine{
			LineNum:         intField(rawLine, "LineNum"),
			BaseType:        intField(rawLine, "BaseType"),
			BaseEntry:       intField(rawLine, "BaseEntry"),
			BaseLine:        intField(rawLine, "BaseLine"),
			ItemCode:        stringField(rawLine, "ItemCode"),
			ItemDescription: stringField(rawLine, "ItemDescription"),
			Quantity:        decimalField(rawLine, "Quantity"),
			UnitPrice:       decimalField(rawLine, "UnitPrice"),
			LineTotal:       decimalField(rawLine, "LineTotal"),
		}
		// Older Service Layer versions omit the open quantity on
		// fully uninvoiced lines; treat it as the full quantity.
		if _, ok := rawLine["RemainingOpenQuantity"]; ok {
			line.RemainingOpenQuantity = decimalField(rawLine, "RemainingOpenQuantity")
		} else {
			line.RemainingOpenQuantity = line.Quantity
		}
		grn.Lines = append(grn.Lines, line)
	}
	return grn
}

func stringField(raw map[string]any, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

func intField(raw map[string]any, key string) int {
	switch v := raw[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func decimalField(raw map[string]any, key string) decimal.Decimal {
	switch v := raw[key].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.Zero
}

func listField(raw map[string]any, key string) []map[string]any {
	items, ok := raw[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
