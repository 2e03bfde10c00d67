package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"facet/internal/core/apperror"
	"facet/internal/core/id"
	"facet/internal/domain/fieldtype"
	"facet/internal/domain/locale"
)

// ValueStore gives one value table a uniform access surface: ordered
// multi-row writes, scope deletes for the cascade paths, and the unioned
// read used by entity aggregation. Field handlers own a store for their
// table; the entity repository opens one per distinct table for reads.
type ValueStore struct {
	table string
	tm    *TxManager
}

// NewValueStore creates a store for a value table.
func NewValueStore(tm *TxManager, table string) *ValueStore {
	return &ValueStore{table: table, tm: tm}
}

// Table returns the store's value table name.
func (s *ValueStore) Table() string { return s.table }

// Builder returns a squirrel builder with PostgreSQL placeholders.
func (s *ValueStore) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// InsertValues writes one row per value with sort_order = position.
// Values must already be in storable native form.
func (s *ValueStore) InsertValues(ctx context.Context, entityID, attributeID id.ID, localeID int, values []any) error {
	if len(values) == 0 {
		return nil
	}

	q := s.Builder().
		Insert(s.table).
		Columns("entity_id", "attribute_id", "locale_id", "sort_order", "value")
	for i, v := range values {
		q = q.Values(entityID, attributeID, localeID, i, v)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert %s: %w", s.table, err)
	}

	if _, err := s.tm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewDuplicate(s.table, "value", attributeID.String()).WithCause(err)
		}
		return fmt.Errorf("insert %s: %w", s.table, err)
	}
	return nil
}

// DeleteScope removes every row for the (entity, attribute, locale)
// tuple. The update path is delete-then-insert through this method.
func (s *ValueStore) DeleteScope(ctx context.Context, entityID, attributeID id.ID, localeID int) error {
	q := s.Builder().
		Delete(s.table).
		Where(squirrel.Eq{
			"entity_id":    entityID,
			"attribute_id": attributeID,
			"locale_id":    localeID,
		})
	return s.execDelete(ctx, q)
}

// DeleteField removes every row of one attribute on one entity, all
// locales included. Clearing a field goes through this method.
func (s *ValueStore) DeleteField(ctx context.Context, entityID, attributeID id.ID) error {
	q := s.Builder().
		Delete(s.table).
		Where(squirrel.Eq{"entity_id": entityID, "attribute_id": attributeID})
	return s.execDelete(ctx, q)
}

// DeleteByEntity removes every row of one entity.
func (s *ValueStore) DeleteByEntity(ctx context.Context, entityID id.ID) error {
	return s.execDelete(ctx, s.Builder().Delete(s.table).Where(squirrel.Eq{"entity_id": entityID}))
}

// DeleteByAttribute removes every row of one attribute across entities.
func (s *ValueStore) DeleteByAttribute(ctx context.Context, attributeID id.ID) error {
	return s.execDelete(ctx, s.Builder().Delete(s.table).Where(squirrel.Eq{"attribute_id": attributeID}))
}

// DeleteByAttributeSet removes rows of every entity bound to the set.
func (s *ValueStore) DeleteByAttributeSet(ctx context.Context, attributeSetID id.ID) error {
	q := s.Builder().
		Delete(s.table).
		Where(squirrel.Expr("entity_id IN (SELECT id FROM entities WHERE attribute_set_id = ?)", attributeSetID))
	return s.execDelete(ctx, q)
}

// DeleteByEntityType removes rows of every entity of the type.
func (s *ValueStore) DeleteByEntityType(ctx context.Context, entityTypeID id.ID) error {
	q := s.Builder().
		Delete(s.table).
		Where(squirrel.Expr("entity_id IN (SELECT id FROM entities WHERE entity_type_id = ?)", entityTypeID))
	return s.execDelete(ctx, q)
}

// DeleteByOption removes rows referencing a deleted option. Only
// meaningful for the ref table; other stores hold no option references.
func (s *ValueStore) DeleteByOption(ctx context.Context, optionID id.ID) error {
	return s.execDelete(ctx, s.Builder().Delete(s.table).Where(squirrel.Eq{"value": optionID}))
}

func (s *ValueStore) execDelete(ctx context.Context, q squirrel.DeleteBuilder) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete %s: %w", s.table, err)
	}
	if _, err := s.tm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete %s: %w", s.table, err)
	}
	return nil
}

// ReadByEntities returns every row of the given entities joined through
// set_attributes, so rows carry the set position of their attribute.
// localeID < 0 reads all locales; otherwise rows are restricted to
// locale 0 plus the requested locale. Rows come back ordered by set
// position, then value position.
func (s *ValueStore) ReadByEntities(ctx context.Context, entityIDs []id.ID, localeID int) ([]fieldtype.ValueRow, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}

	q := s.Builder().
		Select(
			"av.entity_id",
			"av.attribute_id",
			"av.locale_id",
			"sa.sort_order AS set_sort_order",
			"av.sort_order",
			"av.value::text AS value",
		).
		From(s.table+" AS av").
		Join("entities e ON e.id = av.entity_id").
		Join("set_attributes sa ON sa.attribute_set_id = e.attribute_set_id AND sa.attribute_id = av.attribute_id").
		Where(squirrel.Eq{"av.entity_id": entityIDs}).
		OrderBy("sa.sort_order", "av.sort_order")

	if localeID >= 0 {
		q = q.Where(squirrel.Eq{"av.locale_id": []int{locale.None, localeID}})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build read %s: %w", s.table, err)
	}

	var rows []fieldtype.ValueRow
	if err := pgxscan.Select(ctx, s.tm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.table, err)
	}
	return rows, nil
}

// ValueExists is the read half of the uniqueness check: it looks for any
// other entity holding the formatted value for the attribute. Not
// isolated from a concurrent insert; the schema's unique index is the
// backstop.
func (s *ValueStore) ValueExists(ctx context.Context, attributeID id.ID, value any, excludeEntity id.ID) (bool, error) {
	q := s.Builder().
		Select("1").
		From(s.table).
		Where(squirrel.Eq{"attribute_id": attributeID, "value": value}).
		Limit(1)
	if !id.IsNil(excludeEntity) {
		q = q.Where(squirrel.NotEq{"entity_id": excludeEntity})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists %s: %w", s.table, err)
	}

	var one int
	err = s.tm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", s.table, err)
	}
	return true, nil
}

// ValueAlias namespaces a filter/sort join by attribute code so two
// attributes of the same field type can appear in one query. Attribute
// codes are validated to snake_case, so valid codes pass through
// unchanged and distinct codes get distinct aliases; the character
// replacement is a backstop for anything else.
func ValueAlias(code string) string {
	var b strings.Builder
	b.WriteString("fv_")
	for _, r := range code {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
