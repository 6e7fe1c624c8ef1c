package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_Validate(t *testing.T) {
	schema, err := CompileSchema(adjustmentSchema())
	require.NoError(t, err)

	tests := []struct {
		name       string
		doc        string
		wantFields []string
	}{
		{
			name: "valid",
			doc:  `{"startDate":"2025-01-01","endDate":"2025-01-02","adjustment":{"type":"percentage","value":10,"operation":"increase"}}`,
		},
		{
			name:       "string instead of number",
			doc:        `{"startDate":"2025-01-01","endDate":"2025-01-02","adjustment":{"type":"percentage","value":"ten","operation":"increase"}}`,
			wantFields: []string{"adjustment.value"},
		},
		{
			name:       "enum violation",
			doc:        `{"startDate":"2025-01-01","endDate":"2025-01-02","adjustment":{"type":"percent","value":10,"operation":"increase"}}`,
			wantFields: []string{"adjustment.type"},
		},
		{
			name:       "missing required fields",
			doc:        `{"startDate":"2025-01-01"}`,
			wantFields: []string{"adjustment", "endDate"},
		},
		{
			name:       "missing nested required field",
			doc:        `{"startDate":"2025-01-01","endDate":"2025-01-02","adjustment":{"type":"percentage","value":10}}`,
			wantFields: []string{"adjustment.operation"},
		},
		{
			name:       "not JSON",
			doc:        `{startDate:`,
			wantFields: []string{"(root)"},
		},
		{
			name:       "not an object",
			doc:        `[1,2]`,
			wantFields: []string{"(root)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := schema.Validate([]byte(tt.doc))
			if len(tt.wantFields) == 0 {
				assert.Empty(t, fields)
				return
			}
			got := make([]string, len(fields))
			for i, f := range fields {
				got[i] = f.Field
				assert.NotEmpty(t, f.Reason)
			}
			assert.Equal(t, tt.wantFields, got)
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Tool:   "updateRoomRates",
		Fields: []FieldError{{Field: "adjustment.value", Reason: "Invalid type. Expected: number, given: string"}},
	}
	assert.Equal(t,
		"invalid arguments for tool 'updateRoomRates': adjustment.value: Invalid type. Expected: number, given: string",
		err.Error())
}
