package attribute

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facet/internal/core/apperror"
)

func TestValidate_CodeFormat(t *testing.T) {
	ctx := context.Background()

	valid := []string{"name", "weight_kg", "a_b", "sku2"}
	for _, code := range valid {
		a := &Attribute{Code: code, FieldType: "text"}
		assert.NoError(t, a.Validate(ctx), "code %q", code)
	}

	// "a-b" and "a_b" would otherwise collapse to the same SQL join
	// alias; only the snake_case form is accepted.
	invalid := []string{"a-b", "Name", "9lives", "weight kg", "a.b", "_x"}
	for _, code := range invalid {
		a := &Attribute{Code: code, FieldType: "text"}
		err := a.Validate(ctx)
		require.Error(t, err, "code %q", code)
		assert.True(t, apperror.IsValidation(err), "code %q", code)
	}
}

func TestValidate_CollectsViolations(t *testing.T) {
	a := &Attribute{Code: "a-b", Status: "bogus"}
	err := a.Validate(context.Background())
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Details, "code")
	assert.Contains(t, appErr.Details, "field_type")
	assert.Contains(t, appErr.Details, "status")
}
