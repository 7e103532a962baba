package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divvun/divvun-pipeline/internal/abi"
	"github.com/divvun/divvun-pipeline/internal/schema"
)

func TestValidatePipelineJSON_AcceptsLeafAndNesting(t *testing.T) {
	cases := []string{
		`{"module":"reverse-string","command":"reverse"}`,
		`[{"module":"a","command":"b"},{"module":"c","command":"d"}]`,
		`[[{"module":"a","command":"b"},{"module":"c","command":"d"}]]`,
	}
	for _, c := range cases {
		assert.NoError(t, schema.ValidatePipelineJSON([]byte(c)), c)
	}
}

func TestValidatePipelineJSON_RejectsMissingFields(t *testing.T) {
	err := schema.ValidatePipelineJSON([]byte(`{"module":"reverse-string"}`))
	assert.Error(t, err)
}

func TestValidatePipelineJSON_RejectsUnknownFields(t *testing.T) {
	err := schema.ValidatePipelineJSON([]byte(`{"module":"a","command":"b","bogus":true}`))
	assert.Error(t, err)
}

func TestValidatePipelineJSON_RejectsEmptyArray(t *testing.T) {
	err := schema.ValidatePipelineJSON([]byte(`[]`))
	assert.Error(t, err)
}

func TestValidateParameters_NoSchemaAlwaysPasses(t *testing.T) {
	cmd := abi.CommandMetadata{Name: "reverse"}
	require.NoError(t, schema.ValidateParameters(cmd, []string{"anything"}))
}

func TestValidateParameters_EnforcesDeclaredSchema(t *testing.T) {
	cmd := abi.CommandMetadata{
		Name: "reverse_resource",
		ParametersSchema: `{
			"type": "array",
			"minItems": 1,
			"items": {"type": "string"}
		}`,
	}
	require.NoError(t, schema.ValidateParameters(cmd, []string{"wordlist"}))
	assert.Error(t, schema.ValidateParameters(cmd, nil))
}
