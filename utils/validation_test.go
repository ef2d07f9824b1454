package utils

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRequest struct {
	IDs  []string `json:"ids" validate:"required,min=1,max=3,dive,required"`
	Note string   `json:"note,omitempty"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		req       testRequest
		wantField string
	}{
		{name: "valid", req: testRequest{IDs: []string{"a", "b"}}},
		{name: "missing list", req: testRequest{}, wantField: "ids"},
		{name: "empty list", req: testRequest{IDs: []string{}}, wantField: "ids"},
		{name: "too many", req: testRequest{IDs: []string{"a", "b", "c", "d"}}, wantField: "ids"},
		{name: "blank element", req: testRequest{IDs: []string{"a", ""}}, wantField: "ids[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Contains(t, GetValidationFields(err), tt.wantField)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		want    []string
	}{
		{name: "valid", body: `{"ids":["u1","u2"]}`, want: []string{"u1", "u2"}},
		{name: "not json", body: `ids=u1`, wantErr: true},
		{name: "unknown field", body: `{"ids":["u1"],"extra":true}`, wantErr: true},
		{name: "wrong type", body: `{"ids":"u1"}`, wantErr: true},
		{name: "two objects", body: `{"ids":["u1"]}{"ids":["u2"]}`, wantErr: true},
		{name: "fails validation", body: `{"ids":[]}`, wantErr: true},
		{name: "empty body", body: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			var dst testRequest
			err := DecodeJSON(req, &dst)
			if tt.wantErr {
				assert.True(t, IsValidationError(err), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, dst.IDs)
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Message: "Validation failed"}
	assert.Equal(t, "Validation failed", err.Error())
}

func TestGetValidationFields(t *testing.T) {
	fields := map[string]string{"ids": "ids is required"}
	assert.Equal(t, fields, GetValidationFields(&ValidationError{Fields: fields}))
	assert.Nil(t, GetValidationFields(errors.New("plain")))
	assert.False(t, IsValidationError(errors.New("plain")))
}
