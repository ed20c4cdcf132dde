package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aungkyaw/grn-automation/internal/sap"
)

func grnWithDocNum(docEntry, docNum int) sap.OpenGRN {
	return sap.OpenGRN{DocEntry: docEntry, DocNum: docNum, CardCode: "V10001"}
}

func TestMatchSelectsExactDocNums(t *testing.T) {
	grns := []sap.OpenGRN{
		grnWithDocNum(1, 100),
		grnWithDocNum(2, 200),
		grnWithDocNum(3, 300),
	}

	matched, err := Match("V10001", []string{"100", "200"}, grns)
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, 1, matched[0].GRN.DocEntry)
	assert.Equal(t, 2, matched[1].GRN.DocEntry)
	assert.Equal(t, "V10001", matched[0].VendorCode)
}

func TestMatchTrimsTargetReferences(t *testing.T) {
	grns := []sap.OpenGRN{grnWithDocNum(1, 100)}

	matched, err := Match("V10001", []string{"  100 "}, grns)
	require.NoError(t, err)
	assert.Len(t, matched, 1)
}

func TestMatchNoPartialMatching(t *testing.T) {
	grns := []sap.OpenGRN{grnWithDocNum(1, 1001)}

	_, err := Match("V10001", []string{"100"}, grns)
	var noMatch *NoMatchError
	require.ErrorAs(t, err, &noMatch)
}

func TestMatchNothingFound(t *testing.T) {
	grns := []sap.OpenGRN{grnWithDocNum(1, 100), grnWithDocNum(2, 200)}

	_, err := Match("V10001", []string{"300"}, grns)
	require.Error(t, err)
	var noMatch *NoMatchError
	require.ErrorAs(t, err, &noMatch)
	assert.Equal(t, "V10001", noMatch.VendorCode)
	assert.Contains(t, noMatch.Error(), "300")
}

func TestMatchEmptyGRNList(t *testing.T) {
	_, err := Match("V10001", []string{"100"}, nil)
	var noMatch *NoMatchError
	require.ErrorAs(t, err, &noMatch)
}
