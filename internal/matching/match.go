// Package matching selects the open GRNs that correspond to the
// purchase-order references extracted from a vendor invoice.
package matching

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aungkyaw/grn-automation/internal/sap"
)

// MatchedGRN is an open GRN whose document number matched one of the
// invoice's target purchase orders, tagged with the vendor it belongs
// to.
type MatchedGRN struct {
	VendorCode string
	GRN        sap.OpenGRN
}

// NoMatchError reports that none of the vendor's open GRNs matched any
// target purchase order. It is a distinct condition from an empty
// success so the orchestrator can tell "nothing to reconcile" apart
// from "matched but empty".
type NoMatchError struct {
	VendorCode string
	TargetPOs  []string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no open grn for vendor %s matches purchase orders %s",
		e.VendorCode, strings.Join(e.TargetPOs, ", "))
}

// Match returns every open GRN whose document number exactly equals one
// of the target purchase-order references after trimming whitespace.
// Fuzzy or semantic reconciliation is deliberately not done here; that
// is the validation service's job.
func Match(vendorCode string, targetPOs []string, grns []sap.OpenGRN) ([]MatchedGRN, error) {
	targets := make(map[string]struct{}, len(targetPOs))
	for _, po := range targetPOs {
		if po = strings.TrimSpace(po); po != "" {
			targets[po] = struct{}{}
		}
	}

	var matched []MatchedGRN
	for _, grn := range grns {
		docNum := strconv.Itoa(grn.DocNum)
		if _, ok := targets[docNum]; ok {
			matched = append(matched, MatchedGRN{VendorCode: vendorCode, GRN: grn})
		}
	}
	if len(matched) == 0 {
		return nil, &NoMatchError{VendorCode: vendorCode, TargetPOs: targetPOs}
	}
	return matched, nil
}
