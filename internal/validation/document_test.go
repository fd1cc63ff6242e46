package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDocumentID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "valid uuid", id: "7b7c1c8e-4c9e-4c0f-9d6a-1d2b3c4d5e6f"},
		{name: "valid brapi id", id: "obs-1"},
		{name: "valid with spaces", id: "plot A1"},
		{name: "empty", id: "", wantErr: true},
		{name: "blank", id: "   ", wantErr: true},
		{name: "slash", id: "a/b", wantErr: true},
		{name: "control character", id: "a\nb", wantErr: true},
		{name: "too long", id: strings.Repeat("x", MaxDocumentIDLen+1), wantErr: true},
		{name: "max length", id: strings.Repeat("x", MaxDocumentIDLen)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocumentID(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFieldName(t *testing.T) {
	assert.NoError(t, ValidateFieldName("value"))
	assert.Error(t, ValidateFieldName(""))
	assert.Error(t, ValidateFieldName("updatedAt"))
	assert.Error(t, ValidateFieldName(strings.Repeat("f", MaxFieldNameLen+1)))
}

func TestValidateFieldNames(t *testing.T) {
	assert.NoError(t, ValidateFieldNames(map[string]any{"value": 1, "media": []string{"a"}}))
	assert.NoError(t, ValidateFieldNames(map[string]int{}))
	assert.Error(t, ValidateFieldNames(map[string]any{"value": 1, "createdAt": "x"}))
}

func TestValidateFieldName_IDAliases(t *testing.T) {
	aliases := []string{"observationDbId", "observation_id", "id"}

	for _, name := range aliases {
		err := ValidateFieldName(name, aliases...)
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), "reserved for the document id")
	}
	assert.NoError(t, ValidateFieldName("trial_id", aliases...))
	assert.NoError(t, ValidateFieldName("id"), "aliases are reserved per collection only")

	assert.Error(t, ValidateFieldNames(map[string]any{"value": 1, "observation_id": "x"}, aliases...))
}
