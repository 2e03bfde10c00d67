package field_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facet/internal/domain/fieldtype"
	"facet/internal/domain/filter"
)

func TestNewDefaultRegistry(t *testing.T) {
	reg := NewDefaultRegistry(Deps{})

	assert.Equal(t, []fieldtype.Key{
		fieldtype.Text,
		fieldtype.Integer,
		fieldtype.Decimal,
		fieldtype.Datetime,
		fieldtype.Boolean,
		fieldtype.Select,
		fieldtype.Multiselect,
		fieldtype.Relation,
		fieldtype.RelationCollection,
		fieldtype.Asset,
	}, reg.Keys())

	// Ten types over five value tables.
	assert.Equal(t, []string{
		fieldtype.TableText,
		fieldtype.TableInteger,
		fieldtype.TableDecimal,
		fieldtype.TableDatetime,
		fieldtype.TableRef,
	}, reg.Tables())
}

func TestDefaultRegistry_Capabilities(t *testing.T) {
	reg := NewDefaultRegistry(Deps{})

	boolean, err := reg.Get(fieldtype.Boolean)
	require.NoError(t, err)
	assert.False(t, boolean.Descriptor.CanBeUnique)
	assert.False(t, boolean.Descriptor.Sortable)
	assert.Equal(t, fieldtype.TableInteger, boolean.Descriptor.Table)
	assert.True(t, boolean.Descriptor.AllowsOperator(filter.Equal))
	assert.False(t, boolean.Descriptor.AllowsOperator(filter.Greater))

	multiselect, err := reg.Get(fieldtype.Multiselect)
	require.NoError(t, err)
	assert.True(t, multiselect.Descriptor.HasOptions)
	assert.True(t, multiselect.Descriptor.HasMultipleValues)
	assert.False(t, multiselect.Descriptor.CanHaveDefault)

	text, err := reg.Get(fieldtype.Text)
	require.NoError(t, err)
	assert.True(t, text.Descriptor.CanBeUnique)
	assert.True(t, text.Descriptor.Sortable)
	assert.True(t, text.Descriptor.AllowsOperator(filter.GreaterOrEqual))

	relation, err := reg.Get(fieldtype.RelationCollection)
	require.NoError(t, err)
	assert.True(t, relation.Descriptor.HasMultipleValues)
	assert.False(t, relation.Descriptor.CanBeLocalized)
}
