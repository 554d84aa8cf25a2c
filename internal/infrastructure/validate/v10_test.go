package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type moveRequest struct {
	From *int   `json:"from" validate:"required,min=0"`
	To   *int   `json:"to" validate:"required,min=0"`
	Note string `json:"note" validate:"max=8"`
}

func TestPlaygroundV10_Struct(t *testing.T) {
	v := NewValidator()
	zero := 0

	assert.Nil(t, v.Struct(&moveRequest{From: &zero, To: &zero}))

	errs := v.Struct(&moveRequest{From: &zero, Note: "far too long"})
	require.Len(t, errs, 2)
	assert.Equal(t, "to", errs[0].Domain)
	assert.Equal(t, "note", errs[1].Domain)
	assert.NotEmpty(t, errs[0].Reason)
}

func TestPlaygroundV10_Var(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name   string
		value  string
		tag    string
		reason string
	}{
		{"timestamp", "2020-01-01T00:00:00Z", "required,timestamp", ""},
		{"missing timestamp", "", "required,timestamp", "ts is a required field"},
		{"malformed timestamp", "yesterday", "required,timestamp", "ts must be an RFC3339 timestamp"},
		{"record id", "64b7f0c2e1a9", "required,recordid", ""},
		{"nanoid", "V1StGXR8_Z5jdHi6B-myT", "required,recordid", ""},
		{"path traversal", "../courses", "required,recordid", "id must be a valid record id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := "id"
			if tt.tag == "required,timestamp" {
				name = "ts"
			}
			errs := v.Var(name, tt.value, tt.tag)
			if tt.reason == "" {
				assert.Nil(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Equal(t, name, errs[0].Domain)
			assert.Equal(t, tt.reason, errs[0].Reason)
		})
	}
}

func TestPlaygroundV10_Locale(t *testing.T) {
	errs := NewValidator("zh").Var("id", "a/b", "recordid")
	require.Len(t, errs, 1)
	assert.Equal(t, "id必须是有效的记录ID", errs[0].Reason)
}
