package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
	"type": "object",
	"required": ["name", "count"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"count": {"type": "integer", "minimum": 0}
	},
	"additionalProperties": false
}`

func TestValidateJSONStringAccepts(t *testing.T) {
	err := ValidateJSONString(testSchema, `{"name": "grn", "count": 3}`)
	assert.NoError(t, err)
}

func TestValidateJSONStringReportsFieldErrors(t *testing.T) {
	err := ValidateJSONString(testSchema, `{"name": "", "count": -1}`)
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Len(t, validationErr.Errors, 2)

	fields := make([]string, 0, len(validationErr.Errors))
	for _, fe := range validationErr.Errors {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "count")
}

func TestValidateJSONStringRejectsMissingRequired(t *testing.T) {
	err := ValidateJSONString(testSchema, `{"name": "grn"}`)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Error(), "count")
}

func TestValidateJSONStringBadSchema(t *testing.T) {
	err := ValidateJSONString(`{"type": nonsense}`, `{}`)

	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestValidateJSONStringMalformedDocument(t *testing.T) {
	err := ValidateJSONString(testSchema, `{not json`)
	assert.Error(t, err)
}
