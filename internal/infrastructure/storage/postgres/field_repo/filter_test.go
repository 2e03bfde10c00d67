package field_repo

import (
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facet/internal/core/apperror"
	"facet/internal/core/id"
	"facet/internal/domain/attribute"
	"facet/internal/domain/fieldtype"
	"facet/internal/domain/filter"
)

func baseEntityQuery() squirrel.SelectBuilder {
	return squirrel.StatementBuilder.
		PlaceholderFormat(squirrel.Dollar).
		Select("entities.id").
		From("entities")
}

func textHandler() *BaseHandler {
	return NewBaseHandler(fieldtype.Descriptor{
		Key:             fieldtype.Text,
		Table:           fieldtype.TableText,
		Sortable:        true,
		FilterOperators: filter.All,
	}, nil, textCodec{})
}

func TestFilterEntities_Equal(t *testing.T) {
	attrID := id.New()
	attr := &attribute.Attribute{ID: attrID, Code: "color", FieldType: "text"}

	q, err := textHandler().FilterEntities(baseEntityQuery(), attr, filter.Expr{filter.Equal: "red"})
	require.NoError(t, err)

	sql, args, err := q.ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT entities.id FROM entities "+
			"JOIN attribute_values_text AS fv_color ON fv_color.entity_id = entities.id AND fv_color.attribute_id = $1 "+
			"WHERE fv_color.value = $2",
		sql)
	assert.Equal(t, []any{attrID, "red"}, args)
}

func TestFilterEntities_RangeOperators(t *testing.T) {
	handler := NewBaseHandler(fieldtype.Descriptor{
		Key:             fieldtype.Integer,
		Table:           fieldtype.TableInteger,
		Sortable:        true,
		FilterOperators: filter.All,
	}, nil, integerCodec{})
	attr := &attribute.Attribute{ID: id.New(), Code: "weight", FieldType: "integer"}

	q, err := handler.FilterEntities(baseEntityQuery(), attr, filter.Expr{
		filter.GreaterOrEqual: "10",
		filter.Less:           "50",
	})
	require.NoError(t, err)

	sql, args, err := q.ToSql()
	require.NoError(t, err)

	// Operators appear in canonical order regardless of map iteration.
	assert.Equal(t,
		"SELECT entities.id FROM entities "+
			"JOIN attribute_values_integer AS fv_weight ON fv_weight.entity_id = entities.id AND fv_weight.attribute_id = $1 "+
			"WHERE fv_weight.value < $2 AND fv_weight.value >= $3",
		sql)
	assert.Equal(t, []any{attr.ID, int64(50), int64(10)}, args)
}

func TestFilterEntities_InList(t *testing.T) {
	attr := &attribute.Attribute{ID: id.New(), Code: "color", FieldType: "text"}

	q, err := textHandler().FilterEntities(baseEntityQuery(), attr, filter.Expr{
		filter.In: []any{"red", "green"},
	})
	require.NoError(t, err)

	sql, args, err := q.ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "fv_color.value IN ($2,$3)")
	assert.Equal(t, []any{attr.ID, "red", "green"}, args)
}

func TestFilterEntities_NotInList(t *testing.T) {
	attr := &attribute.Attribute{ID: id.New(), Code: "color", FieldType: "text"}

	q, err := textHandler().FilterEntities(baseEntityQuery(), attr, filter.Expr{
		filter.NotIn: []any{"red", "green"},
	})
	require.NoError(t, err)

	sql, _, err := q.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "fv_color.value NOT IN ($2,$3)")
}

func TestFilterEntities_BadOperand(t *testing.T) {
	handler := NewBaseHandler(fieldtype.Descriptor{
		Key:             fieldtype.Integer,
		Table:           fieldtype.TableInteger,
		FilterOperators: filter.All,
	}, nil, integerCodec{})
	attr := &attribute.Attribute{ID: id.New(), Code: "weight", FieldType: "integer"}

	_, err := handler.FilterEntities(baseEntityQuery(), attr, filter.Expr{filter.Equal: "not-a-number"})
	assert.True(t, apperror.IsBadRequest(err))
}

func TestSortEntities(t *testing.T) {
	attr := &attribute.Attribute{ID: id.New(), Code: "name", FieldType: "text"}

	q, err := textHandler().SortEntities(baseEntityQuery(), attr, true)
	require.NoError(t, err)

	sql, args, err := q.ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT entities.id FROM entities "+
			"LEFT JOIN attribute_values_text AS fv_name_ord ON fv_name_ord.entity_id = entities.id AND fv_name_ord.attribute_id = $1 "+
			"ORDER BY MIN(fv_name_ord.value) DESC",
		sql)
	assert.Equal(t, []any{attr.ID}, args)
}

func TestSortEntities_FilterAndSortSameAttribute(t *testing.T) {
	attr := &attribute.Attribute{ID: id.New(), Code: "name", FieldType: "text"}
	handler := textHandler()

	q, err := handler.FilterEntities(baseEntityQuery(), attr, filter.Expr{filter.Equal: "widget"})
	require.NoError(t, err)
	q, err = handler.SortEntities(q, attr, false)
	require.NoError(t, err)

	sql, _, err := q.ToSql()
	require.NoError(t, err)

	// The sort join uses its own alias so the two joins never collide.
	assert.Contains(t, sql, "JOIN attribute_values_text AS fv_name ON")
	assert.Contains(t, sql, "LEFT JOIN attribute_values_text AS fv_name_ord ON")
	assert.Contains(t, sql, "ORDER BY MIN(fv_name_ord.value) ASC")
}

func TestSortEntities_NotSortable(t *testing.T) {
	handler := NewBaseHandler(fieldtype.Descriptor{
		Key:             fieldtype.Multiselect,
		Table:           fieldtype.TableRef,
		FilterOperators: refOperators,
	}, nil, selectCodec{})
	attr := &attribute.Attribute{ID: id.New(), Code: "tags", FieldType: "multiselect"}

	_, err := handler.SortEntities(baseEntityQuery(), attr, false)
	assert.True(t, apperror.IsBadRequest(err))
}
