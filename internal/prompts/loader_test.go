package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetKnownPrompts(t *testing.T) {
	for _, ref := range []struct{ file, key string }{
		{"extraction.json", "document_to_markdown"},
		{"extraction.json", "extract_fields"},
		{"validation.json", "reconcile"},
	} {
		prompt, err := Get(ref.file, ref.key)
		require.NoError(t, err, "%s/%s", ref.file, ref.key)
		assert.NotEmpty(t, prompt)
	}
}

func TestGetUnknownKey(t *testing.T) {
	_, err := Get("extraction.json", "no_such_prompt")
	assert.Error(t, err)

	_, err = Get("no_such_file.json", "reconcile")
	assert.Error(t, err)
}

func TestMustGetPanicsOnMissing(t *testing.T) {
	assert.Panics(t, func() { MustGet("extraction.json", "no_such_prompt") })
}

func TestTemplatesCarryTheirPlaceholders(t *testing.T) {
	fields := MustGet("extraction.json", "extract_fields")
	assert.Contains(t, fields, "%s")

	reconcile := MustGet("validation.json", "reconcile")
	assert.Contains(t, reconcile, "remaining_open_quantity")
	assert.Equal(t, 4, countVerb(reconcile), "cardinality, vendor code, grns, invoices")
}

func countVerb(s string) int {
	count := 0
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '%' {
			if s[i+1] == '%' {
				i++
				continue
			}
			if s[i+1] == 's' {
				count++
			}
		}
	}
	return count
}
