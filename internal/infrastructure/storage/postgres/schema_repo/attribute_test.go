package schema_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facet/internal/core/apperror"
	"facet/internal/core/id"
	"facet/internal/domain/attribute"
	"facet/internal/domain/fieldtype"
)

func TestPlanOptionChanges(t *testing.T) {
	attrID := id.New()
	red := attribute.Option{ID: id.New(), AttributeID: attrID, Value: "red", Label: "Red", SortOrder: 0}
	green := attribute.Option{ID: id.New(), AttributeID: attrID, Value: "green", Label: "Green", SortOrder: 1}
	blue := attribute.Option{ID: id.New(), AttributeID: attrID, Value: "blue", Label: "Blue", SortOrder: 2}
	existing := []attribute.Option{red, green, blue}

	relabeled := green
	relabeled.Label = "Emerald"
	added := attribute.Option{ID: id.New(), AttributeID: attrID, Value: "black", Label: "Black", SortOrder: 2}
	incoming := []attribute.Option{red, relabeled, added}

	changes := planOptionChanges(existing, incoming)

	// red survives untouched, green is relabeled, blue is removed and
	// black is new.
	assert.Equal(t, []attribute.Option{added}, changes.insert)
	assert.Equal(t, []attribute.Option{relabeled}, changes.update)
	assert.Equal(t, []id.ID{blue.ID}, changes.remove)
}

func TestPlanOptionChanges_NoChanges(t *testing.T) {
	opts := []attribute.Option{
		{ID: id.New(), Value: "red"},
		{ID: id.New(), Value: "green"},
	}

	changes := planOptionChanges(opts, opts)
	assert.Empty(t, changes.insert)
	assert.Empty(t, changes.update)
	assert.Empty(t, changes.remove)
}

func TestNormalizeOptions(t *testing.T) {
	attrID := id.New()
	kept := id.New()

	out := normalizeOptions(attrID, []attribute.Option{
		{Value: "red", SortOrder: 9},
		{ID: kept, Value: "green"},
	})

	require.Len(t, out, 2)
	assert.False(t, id.IsNil(out[0].ID))
	assert.Equal(t, kept, out[1].ID)
	for i, opt := range out {
		assert.Equal(t, attrID, opt.AttributeID)
		assert.Equal(t, i, opt.SortOrder)
	}
}

func selectDescriptor() fieldtype.Descriptor {
	return fieldtype.Descriptor{
		Key:        fieldtype.Select,
		Table:      fieldtype.TableRef,
		HasOptions: true,
	}
}

func TestValidateOptions(t *testing.T) {
	desc := selectDescriptor()

	err := validateOptions([]attribute.Option{
		{Value: "red"}, {Value: "green"},
	}, desc)
	assert.NoError(t, err)

	err = validateOptions([]attribute.Option{
		{Value: "red"}, {Value: "red"},
	}, desc)
	assert.True(t, apperror.IsValidation(err))

	err = validateOptions([]attribute.Option{{Value: ""}}, desc)
	assert.True(t, apperror.IsValidation(err))
}

func TestValidateOptions_DefaultCardinality(t *testing.T) {
	single := selectDescriptor()
	err := validateOptions([]attribute.Option{
		{Value: "red", Default: true},
		{Value: "green", Default: true},
	}, single)
	assert.True(t, apperror.IsValidation(err))

	multi := single
	multi.Key = fieldtype.Multiselect
	multi.HasMultipleValues = true
	err = validateOptions([]attribute.Option{
		{Value: "red", Default: true},
		{Value: "green", Default: true},
	}, multi)
	assert.NoError(t, err)
}

func TestValidateOptions_TypeWithoutOptions(t *testing.T) {
	desc := fieldtype.Descriptor{Key: fieldtype.Text, Table: fieldtype.TableText}
	err := validateOptions([]attribute.Option{{Value: "red"}}, desc)
	assert.True(t, apperror.IsValidation(err))
}
