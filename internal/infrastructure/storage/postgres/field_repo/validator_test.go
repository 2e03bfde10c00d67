package field_repo

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facet/internal/core/apperror"
	"facet/internal/core/id"
	"facet/internal/core/jsonb"
	"facet/internal/domain/attribute"
	"facet/internal/domain/fieldtype"
	"facet/internal/domain/filter"
)

// failEngine reports a fixed violation for every value.
type failEngine struct{ message string }

func (f failEngine) Validate(ctx context.Context, value any, rule string) []string {
	return []string{f.message}
}

func booleanValidator() *BaseValidator {
	return NewBaseValidator(fieldtype.Descriptor{
		Key:             fieldtype.Boolean,
		Table:           fieldtype.TableInteger,
		CanHaveDefault:  true,
		CanBeLocalized:  true,
		CanBeFilterable: true,
		FilterOperators: []filter.Operator{filter.Equal, filter.NotEqual},
	}, nil, booleanCodec{}, nil)
}

func textValidator() *BaseValidator {
	return NewBaseValidator(fieldtype.Descriptor{
		Key:             fieldtype.Text,
		Table:           fieldtype.TableText,
		CanHaveDefault:  true,
		CanBeUnique:     true,
		CanBeLocalized:  true,
		CanBeFilterable: true,
		Sortable:        true,
		FilterOperators: filter.All,
	}, nil, textCodec{}, nil)
}

func TestValidateForInsert_RejectsForbiddenCapabilities(t *testing.T) {
	attr := &attribute.Attribute{
		Code:      "active",
		FieldType: "boolean",
		Unique:    true,
		Options:   []attribute.Option{{Value: "yes"}},
	}

	err := booleanValidator().ValidateForInsert(context.Background(), attr)
	require.True(t, apperror.IsValidation(err))

	appErr, _ := apperror.AsAppError(err)
	assert.Contains(t, appErr.Details, "unique")
	assert.Contains(t, appErr.Details, "options")
}

func TestValidateForInsert_UniqueLocalizedConflict(t *testing.T) {
	attr := &attribute.Attribute{
		Code:      "sku",
		FieldType: "text",
		Unique:    true,
		Localized: true,
	}

	err := textValidator().ValidateForInsert(context.Background(), attr)
	require.True(t, apperror.IsValidation(err))

	appErr, _ := apperror.AsAppError(err)
	assert.Contains(t, appErr.Details, "unique")
}

func TestValidateForInsert_Valid(t *testing.T) {
	attr := &attribute.Attribute{Code: "name", FieldType: "text", Localized: true}
	assert.NoError(t, textValidator().ValidateForInsert(context.Background(), attr))
}

func TestValidateForUpdate_ImmutableColumns(t *testing.T) {
	existing := &attribute.Attribute{Code: "name", FieldType: "text"}

	err := textValidator().ValidateForUpdate(context.Background(),
		&attribute.Attribute{Code: "title", FieldType: "text"}, existing)
	require.True(t, apperror.IsValidation(err))
	appErr, _ := apperror.AsAppError(err)
	assert.Contains(t, appErr.Details, "code")

	err = textValidator().ValidateForUpdate(context.Background(),
		&attribute.Attribute{Code: "name", FieldType: "integer"}, existing)
	require.True(t, apperror.IsValidation(err))
	appErr, _ = apperror.AsAppError(err)
	assert.Contains(t, appErr.Details, "field_type")
}

func TestValidateValue_Required(t *testing.T) {
	attr := &attribute.Attribute{Code: "name", FieldType: "text", Required: true}

	err := textValidator().ValidateValue(context.Background(), nil, attr, id.Nil())
	require.True(t, apperror.IsValidation(err))

	err = textValidator().ValidateValue(context.Background(), "", attr, id.Nil())
	require.True(t, apperror.IsValidation(err))

	err = textValidator().ValidateValue(context.Background(), "widget", attr, id.Nil())
	assert.NoError(t, err)
}

func TestValidateValue_OptionalEmpty(t *testing.T) {
	attr := &attribute.Attribute{Code: "name", FieldType: "text"}
	assert.NoError(t, textValidator().ValidateValue(context.Background(), nil, attr, id.Nil()))
}

func TestValidateValue_BadShape(t *testing.T) {
	validator := NewBaseValidator(fieldtype.Descriptor{
		Key:             fieldtype.Integer,
		Table:           fieldtype.TableInteger,
		FilterOperators: filter.All,
	}, nil, integerCodec{}, nil)
	attr := &attribute.Attribute{Code: "weight", FieldType: "integer"}

	err := validator.ValidateValue(context.Background(), "heavy", attr, id.Nil())
	require.True(t, apperror.IsValidation(err))
	appErr, _ := apperror.AsAppError(err)
	assert.Contains(t, appErr.Details, "weight")
}

func TestValidateValue_RuleViolation(t *testing.T) {
	validator := NewBaseValidator(fieldtype.Descriptor{
		Key:             fieldtype.Text,
		Table:           fieldtype.TableText,
		FilterOperators: filter.All,
	}, nil, textCodec{}, failEngine{message: "value too short"})
	attr := &attribute.Attribute{Code: "name", FieldType: "text"}
	attr.Data.Set("rule", "value.size() > 3")

	err := validator.ValidateValue(context.Background(), "ab", attr, id.Nil())
	require.True(t, apperror.IsValidation(err))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, []string{"value too short"}, appErr.Details["name"])
}

func TestValidateValue_NoRuleSkipsEngine(t *testing.T) {
	validator := NewBaseValidator(fieldtype.Descriptor{
		Key:             fieldtype.Text,
		Table:           fieldtype.TableText,
		FilterOperators: filter.All,
	}, nil, textCodec{}, failEngine{message: "never"})
	attr := &attribute.Attribute{Code: "name", FieldType: "text"}

	assert.NoError(t, validator.ValidateValue(context.Background(), "ab", attr, id.Nil()))
}

func TestValidateFilter(t *testing.T) {
	attr := &attribute.Attribute{Code: "active", FieldType: "boolean", Filterable: true}

	expr, err := booleanValidator().ValidateFilter(filter.Expr{filter.Equal: true}, attr)
	require.NoError(t, err)
	assert.Equal(t, filter.Expr{filter.Equal: true}, expr)

	// Range operators are outside the boolean operator set.
	_, err = booleanValidator().ValidateFilter(filter.Expr{filter.Greater: 1}, attr)
	assert.True(t, apperror.IsBadRequest(err))
}

func TestValidateFilter_NotFilterable(t *testing.T) {
	attr := &attribute.Attribute{Code: "notes", FieldType: "text"}

	_, err := textValidator().ValidateFilter(filter.Expr{filter.Equal: "x"}, attr)
	assert.True(t, apperror.IsBadRequest(err))
}

func relationValidator(lookup EntityLookupFunc) *RelationValidator {
	base := NewBaseValidator(fieldtype.Descriptor{
		Key:             fieldtype.Relation,
		Table:           fieldtype.TableRef,
		FilterOperators: refOperators,
	}, nil, relationCodec{}, nil)
	return NewRelationValidator(base, lookup)
}

func TestRelationValidator_MissingTarget(t *testing.T) {
	validator := relationValidator(func(ctx context.Context, entityID id.ID) (string, bool, error) {
		return "", false, nil
	})
	attr := &attribute.Attribute{Code: "brand", FieldType: "relation"}

	err := validator.ValidateValue(context.Background(), id.New().String(), attr, id.Nil())
	require.True(t, apperror.IsValidation(err))
	appErr, _ := apperror.AsAppError(err)
	assert.Contains(t, appErr.Details, "brand")
}

func TestRelationValidator_ExistingTarget(t *testing.T) {
	validator := relationValidator(func(ctx context.Context, entityID id.ID) (string, bool, error) {
		return "manufacturer", true, nil
	})
	attr := &attribute.Attribute{Code: "brand", FieldType: "relation"}

	assert.NoError(t, validator.ValidateValue(context.Background(), id.New().String(), attr, id.Nil()))
}

func TestRelationValidator_AllowedEntityTypes(t *testing.T) {
	validator := relationValidator(func(ctx context.Context, entityID id.ID) (string, bool, error) {
		return "category", true, nil
	})
	attr := &attribute.Attribute{
		Code:      "brand",
		FieldType: "relation",
		Data:      jsonb.Map{"related_entity_types": []any{"manufacturer"}},
	}

	err := validator.ValidateValue(context.Background(), id.New().String(), attr, id.Nil())
	require.True(t, apperror.IsValidation(err))
	appErr, _ := apperror.AsAppError(err)
	assert.Contains(t, fmt.Sprint(appErr.Details["brand"]), `"category"`)

	// The target's type appearing in the list passes.
	attr.Data = jsonb.Map{"related_entity_types": []any{"manufacturer", "category"}}
	assert.NoError(t, validator.ValidateValue(context.Background(), id.New().String(), attr, id.Nil()))

	// No restriction in the data blob means any type.
	attr.Data = nil
	assert.NoError(t, validator.ValidateValue(context.Background(), id.New().String(), attr, id.Nil()))
}

type denyingAssets struct{}

func (denyingAssets) Exists(ctx context.Context, assetID id.ID) (bool, error) {
	return false, nil
}

func TestAssetValidator_MissingAsset(t *testing.T) {
	base := NewBaseValidator(fieldtype.Descriptor{
		Key:             fieldtype.Asset,
		Table:           fieldtype.TableRef,
		FilterOperators: refOperators,
	}, nil, assetCodec{}, nil)
	validator := NewAssetValidator(base, denyingAssets{})
	attr := &attribute.Attribute{Code: "image", FieldType: "asset"}

	err := validator.ValidateValue(context.Background(), id.New().String(), attr, id.Nil())
	require.True(t, apperror.IsValidation(err))
}
