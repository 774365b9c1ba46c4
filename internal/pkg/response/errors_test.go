package response

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatErrorsNil(t *testing.T) {
	assert.Nil(t, FormatErrors(nil))
	assert.Nil(t, FormatErrors(""))
}

func TestFormatErrorsString(t *testing.T) {
	entries := FormatErrors("something broke")
	require.Len(t, entries, 1)
	assert.Equal(t, "something broke", entries[0].Message)
	assert.Empty(t, entries[0].Field)
}

func TestFormatErrorsStringSlice(t *testing.T) {
	entries := FormatErrors([]string{"first", "second"})
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "second", entries[1].Message)
}

func TestFormatErrorsFieldMap(t *testing.T) {
	entries := FormatErrors(map[string][]string{
		"name":  {"The name field is required"},
		"email": {"The email must be a valid email address", "taken"},
	})
	require.Len(t, entries, 2)
	// 字段按名称排序，顺序稳定
	assert.Equal(t, "email", entries[0].Field)
	assert.Equal(t, []string{"The email must be a valid email address", "taken"}, entries[0].Messages)
	assert.Equal(t, "name", entries[1].Field)
}

func TestFormatErrorsSimpleFieldMap(t *testing.T) {
	entries := FormatErrors(map[string]string{"email": "taken"})
	require.Len(t, entries, 1)
	assert.Equal(t, "email", entries[0].Field)
	assert.Equal(t, []string{"taken"}, entries[0].Messages)
}

func TestFormatErrorsMixedValueMap(t *testing.T) {
	entries := FormatErrors(map[string]interface{}{
		"a": "one",
		"b": []string{"two", "three"},
		"c": 7,
	})
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"one"}, entries[0].Messages)
	assert.Equal(t, []string{"two", "three"}, entries[1].Messages)
	assert.Equal(t, []string{"7"}, entries[2].Messages)
}

func TestFormatErrorsPassthrough(t *testing.T) {
	in := []ErrorEntry{{Field: "x", Messages: []string{"m"}}}
	assert.Equal(t, in, FormatErrors(in))
}

func TestFormatErrorsPlainError(t *testing.T) {
	entries := FormatErrors(errors.New("db down"))
	require.Len(t, entries, 1)
	assert.Equal(t, "db down", entries[0].Message)
}

func TestFormatErrorsValidator(t *testing.T) {
	type payload struct {
		Name  string `validate:"required"`
		Email string `validate:"required,email"`
	}

	v := validator.New()
	err := v.Struct(payload{Email: "not-an-email"})
	require.Error(t, err)

	entries := FormatErrors(err)
	require.Len(t, entries, 2)
	assert.Equal(t, "name", entries[0].Field)
	assert.Equal(t, []string{"The name field is required"}, entries[0].Messages)
	assert.Equal(t, "email", entries[1].Field)
	assert.Equal(t, []string{"The email must be a valid email address"}, entries[1].Messages)
}
