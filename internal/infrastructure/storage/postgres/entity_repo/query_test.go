package entity_repo

import (
	"context"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facet/internal/core/apperror"
	"facet/internal/core/id"
	"facet/internal/domain/attribute"
	"facet/internal/domain/attributeset"
	"facet/internal/domain/entity"
	"facet/internal/domain/fieldtype"
	"facet/internal/domain/filter"
	"facet/internal/domain/locale"
	"facet/internal/infrastructure/storage/postgres/field_repo"
)

func baseEntityQuery() squirrel.SelectBuilder {
	return squirrel.StatementBuilder.
		PlaceholderFormat(squirrel.Dollar).
		Select("entities.id").
		From("entities")
}

func TestApplyFilters_EntityColumns(t *testing.T) {
	r := &Repo{}

	q, err := r.applyFilters(context.Background(), baseEntityQuery(), filter.Set{
		"created_at": map[string]any{"gte": "2024-01-01"},
	})
	require.NoError(t, err)

	sql, args, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT entities.id FROM entities WHERE entities.created_at >= $1", sql)
	assert.Equal(t, []any{"2024-01-01"}, args)
}

func TestApplyFilters_UnknownField(t *testing.T) {
	r := &Repo{}

	_, err := r.applyFilters(context.Background(), baseEntityQuery(), filter.Set{
		"color": "red",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsBadRequest(err))
}

func TestApplySort_EntityColumns(t *testing.T) {
	r := &Repo{}

	q, err := r.applySort(context.Background(), baseEntityQuery(), []string{"-updated_at", "id"})
	require.NoError(t, err)

	sql, _, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT entities.id FROM entities ORDER BY entities.updated_at DESC, entities.id ASC", sql)
}

func TestApplySort_DefaultsToCreatedAt(t *testing.T) {
	r := &Repo{}

	q, err := r.applySort(context.Background(), baseEntityQuery(), nil)
	require.NoError(t, err)

	sql, _, err := q.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "ORDER BY entities.created_at ASC")
}

func TestApplySort_UnknownField(t *testing.T) {
	r := &Repo{}

	_, err := r.applySort(context.Background(), baseEntityQuery(), []string{"color"})
	require.Error(t, err)
	assert.True(t, apperror.IsBadRequest(err))
}

// schemaStub serves definitions from memory the way the schema cache
// does. Tests pair it with nil schema repositories, so any fallback
// lookup fails loudly.
type schemaStub struct {
	attrs map[string]*attribute.Attribute
	sets  map[string]*attributeset.AttributeSet
}

func (s schemaStub) Attribute(code string) *attribute.Attribute { return s.attrs[code] }

func (s schemaStub) AttributeSet(code string) *attributeset.AttributeSet { return s.sets[code] }

func TestApplyFilters_FieldViaSchemaLookup(t *testing.T) {
	weight := &attribute.Attribute{
		ID:         id.New(),
		Code:       "weight",
		FieldType:  string(fieldtype.Integer),
		Filterable: true,
	}
	r := &Repo{
		registry: field_repo.NewDefaultRegistry(field_repo.Deps{}),
		schema:   schemaStub{attrs: map[string]*attribute.Attribute{"weight": weight}},
	}

	q, err := r.applyFilters(context.Background(), baseEntityQuery(), filter.Set{
		"fields.weight": map[string]any{"gte": "10"},
	})
	require.NoError(t, err)

	sql, args, err := q.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "JOIN attribute_values_integer AS fv_weight")
	assert.Contains(t, sql, "fv_weight.value >= $2")
	assert.Equal(t, weight.ID, args[0])
}

func TestApplySort_FieldViaSchemaLookup(t *testing.T) {
	name := &attribute.Attribute{ID: id.New(), Code: "name", FieldType: string(fieldtype.Text)}
	r := &Repo{
		registry: field_repo.NewDefaultRegistry(field_repo.Deps{}),
		schema:   schemaStub{attrs: map[string]*attribute.Attribute{"name": name}},
	}

	q, err := r.applySort(context.Background(), baseEntityQuery(), []string{"-fields.name"})
	require.NoError(t, err)

	sql, _, err := q.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "ORDER BY MIN(fv_name_ord.value) DESC")
}

func TestApplyFilters_SetCodeViaSchemaLookup(t *testing.T) {
	set := &attributeset.AttributeSet{ID: id.New(), Code: "general"}
	r := &Repo{
		schema: schemaStub{sets: map[string]*attributeset.AttributeSet{"general": set}},
	}

	q, err := r.applyFilters(context.Background(), baseEntityQuery(), filter.Set{
		"attribute_set": "general",
	})
	require.NoError(t, err)

	sql, args, err := q.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "entities.attribute_set_id = $1")
	assert.Equal(t, []any{set.ID}, args)
}

func TestResolveFields_UnknownLocale(t *testing.T) {
	r := &Repo{locales: locale.NewStaticResolverFromCodes([]string{"en_US"})}

	err := r.resolveFields(context.Background(), []*entity.Entity{{ID: id.New()}}, "fr_FR")
	require.Error(t, err)
	// Caller input, not missing data: the read path reports the locale
	// the same way the write planner does.
	assert.True(t, apperror.IsBadRequest(err))
}

func TestResolveCodes(t *testing.T) {
	resolve := func(ctx context.Context, code string) (any, error) {
		return "id:" + code, nil
	}

	got, err := resolveCodes(context.Background(), "product", resolve)
	require.NoError(t, err)
	assert.Equal(t, "id:product", got)

	got, err = resolveCodes(context.Background(), []any{"a", "b"}, resolve)
	require.NoError(t, err)
	assert.Equal(t, []any{"id:a", "id:b"}, got)

	_, err = resolveCodes(context.Background(), 42, resolve)
	require.Error(t, err)
	assert.True(t, apperror.IsBadRequest(err))
}
