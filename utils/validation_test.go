package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routeBody struct {
	Text string `validate:"required"`
	Mode string `validate:"omitempty,oneof=default dev conversation game"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(routeBody{Text: "hello", Mode: "dev"}))

	err := ValidateStruct(routeBody{})
	require.Error(t, err)
	require.True(t, IsValidationError(err))

	fields := GetValidationFields(err)
	assert.Contains(t, fields, "Text")
	assert.Contains(t, fields["Text"], "required")
}

func TestValidateStruct_OneOf(t *testing.T) {
	err := ValidateStruct(routeBody{Text: "hello", Mode: "turbo"})
	require.Error(t, err)

	fields := GetValidationFields(err)
	assert.Contains(t, fields["Mode"], "must be one of")
}

func TestValidateRequired(t *testing.T) {
	assert.NoError(t, ValidateRequired("x", "field"))
	assert.Error(t, ValidateRequired("", "field"))
}

func TestValidateOneOf(t *testing.T) {
	allowed := []string{"a", "b"}
	assert.NoError(t, ValidateOneOf("a", "field", allowed))
	assert.Error(t, ValidateOneOf("c", "field", allowed))
}

func TestIsValidationError_OtherError(t *testing.T) {
	assert.False(t, IsValidationError(assert.AnError))
	assert.Nil(t, GetValidationFields(assert.AnError))
}
