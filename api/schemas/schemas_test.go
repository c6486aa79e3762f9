// api/schemas/schemas_test.go
package schemas

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductValidate(t *testing.T) {
	require.NoError(t, Product{Name: "Amul Milk", Price: "₹33"}.Validate())

	err := Product{Name: "   "}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaValidation))
}

func TestProductListValidate(t *testing.T) {
	list := ProductList{Products: []Product{
		{Name: "bread"},
		{Name: ""},
	}}
	err := list.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaValidation))

	require.NoError(t, ProductList{}.Validate())
}

func TestErrorConstructorsKeepSentinelAndCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")

	testCases := []struct {
		err      error
		sentinel error
	}{
		{NewEnvironmentError("no browser", nil), ErrEnvironment},
		{NewConnectivityError("port closed", cause), ErrConnectivity},
		{NewConfigurationError("no key", nil), ErrConfiguration},
		{NewElementNotFoundError("no input", cause), ErrElementNotFound},
		{NewSchemaValidationError("empty name", nil), ErrSchemaValidation},
		{NewActionNotResolvedError("no match", nil), ErrActionNotResolved},
	}

	for _, tc := range testCases {
		assert.True(t, errors.Is(tc.err, tc.sentinel), tc.err.Error())
	}

	wrapped := NewConnectivityError("port closed", cause)
	assert.True(t, errors.Is(wrapped, cause))
	assert.Contains(t, wrapped.Error(), "port closed")
	assert.Contains(t, wrapped.Error(), "connection refused")
}
