// Package schema_repo provides the PostgreSQL repositories for the
// schema side of the engine: attributes with their options, attribute
// sets with their ordered membership, and entity types.
package schema_repo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"facet/internal/core/apperror"
	"facet/internal/core/id"
	"facet/internal/domain"
	"facet/internal/domain/filter"
	"facet/internal/infrastructure/storage/postgres"
)

// pgUniqueViolation is the SQLSTATE for unique constraint errors.
const pgUniqueViolation = "23505"

// baseRepo provides the column-level CRUD shared by the schema
// repositories. Type-specific behavior (options, membership, cascades)
// lives in the embedding repository.
type baseRepo[T any] struct {
	tm         *postgres.TxManager
	tableName  string
	selectCols []string
	newFn      func() T
}

func newBaseRepo[T any](tm *postgres.TxManager, tableName string, selectCols []string, newFn func() T) *baseRepo[T] {
	return &baseRepo[T]{
		tm:         tm,
		tableName:  tableName,
		selectCols: selectCols,
		newFn:      newFn,
	}
}

// Builder returns a squirrel builder with PostgreSQL placeholders.
func (r *baseRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *baseRepo[T]) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.tableName)
}

// insert writes a row using the model's "db" tags.
func (r *baseRepo[T]) insert(ctx context.Context, model T) error {
	data := postgres.StructToMap(model)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in model")
	}

	filtered := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	sql, args, err := r.Builder().
		Insert(r.tableName).
		SetMap(filtered).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.tm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return r.wrapWriteError(err, data["code"])
	}
	return nil
}

// update rewrites the mutable columns of a row.
func (r *baseRepo[T]) update(ctx context.Context, modelID id.ID, model T) error {
	data := postgres.StructToMap(model)

	filtered := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if col == "id" || col == "created_at" {
			continue
		}
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	sql, args, err := r.Builder().
		Update(r.tableName).
		SetMap(filtered).
		Where(squirrel.Eq{"id": modelID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.tm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return r.wrapWriteError(err, data["code"])
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.tableName, modelID.String())
	}
	return nil
}

func (r *baseRepo[T]) wrapWriteError(err error, code any) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return apperror.NewDuplicate(r.tableName, "code", fmt.Sprintf("%v", code)).WithCause(err)
	}
	return fmt.Errorf("write %s: %w", r.tableName, err)
}

// getByID fetches one row.
func (r *baseRepo[T]) getByID(ctx context.Context, modelID id.ID) (T, error) {
	model := r.newFn()

	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"id": modelID}).
		Limit(1).
		ToSql()
	if err != nil {
		return model, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.tm.GetQuerier(ctx), model, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return model, apperror.NewNotFound(r.tableName, modelID.String())
		}
		return model, fmt.Errorf("get by id: %w", err)
	}
	return model, nil
}

// getByCode fetches one row addressed by code.
func (r *baseRepo[T]) getByCode(ctx context.Context, code string) (T, error) {
	model := r.newFn()

	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"code": code}).
		Limit(1).
		ToSql()
	if err != nil {
		return model, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.tm.GetQuerier(ctx), model, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return model, apperror.NewNotFound(r.tableName, code)
		}
		return model, fmt.Errorf("get by code: %w", err)
	}
	return model, nil
}

// exists probes a row by id.
func (r *baseRepo[T]) exists(ctx context.Context, modelID id.ID) (bool, error) {
	sql, args, err := r.Builder().
		Select("1").
		From(r.tableName).
		Where(squirrel.Eq{"id": modelID}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = r.tm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return true, nil
}

// delete removes a row.
func (r *baseRepo[T]) delete(ctx context.Context, modelID id.ID) error {
	sql, args, err := r.Builder().
		Delete(r.tableName).
		Where(squirrel.Eq{"id": modelID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.tm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("execute delete %s: %w", r.tableName, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.tableName, modelID.String())
	}
	return nil
}

// list runs a filtered, sorted, paginated read with the total counted
// before pagination.
func (r *baseRepo[T]) list(ctx context.Context, q domain.ListQuery) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{
		Limit:  q.Limit,
		Offset: q.Offset,
	}

	query := r.baseSelect()
	query, err := r.applyFilter(query, q.Filter)
	if err != nil {
		return result, err
	}

	countSQL, countArgs, err := r.Builder().
		Select("COUNT(*)").
		FromSelect(query, "sub").
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	querier := r.tm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	query, err = r.applySort(query, q.Sort)
	if err != nil {
		return result, err
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list %s: %w", r.tableName, err)
	}
	return result, nil
}

// applyFilter lowers a filter set onto whitelisted columns.
func (r *baseRepo[T]) applyFilter(query squirrel.SelectBuilder, set filter.Set) (squirrel.SelectBuilder, error) {
	for _, field := range sortedFields(set) {
		if !r.validColumn(field) {
			return query, apperror.NewBadRequest(fmt.Sprintf("unknown filter field %q", field))
		}

		expr, err := filter.FromAny(set[field])
		if err != nil {
			return query, err
		}
		expr, err = expr.Normalize(filter.All)
		if err != nil {
			return query, err
		}

		for _, op := range filter.All {
			operand, ok := expr[op]
			if !ok {
				continue
			}
			pred, err := columnPredicate(field, op, operand)
			if err != nil {
				return query, err
			}
			query = query.Where(pred)
		}
	}
	return query, nil
}

// applySort lowers "-field" sort tokens onto whitelisted columns.
func (r *baseRepo[T]) applySort(query squirrel.SelectBuilder, sort []string) (squirrel.SelectBuilder, error) {
	if len(sort) == 0 {
		return query.OrderBy("created_at ASC"), nil
	}

	for _, token := range sort {
		key, err := filter.ParseSortKey(token)
		if err != nil {
			return query, err
		}
		if !r.validColumn(key.Field) {
			return query, apperror.NewBadRequest(fmt.Sprintf("unknown sort field %q", key.Field))
		}
		direction := " ASC"
		if key.Desc {
			direction = " DESC"
		}
		query = query.OrderBy(key.Field + direction)
	}
	return query, nil
}

func (r *baseRepo[T]) validColumn(field string) bool {
	for _, col := range r.selectCols {
		if col == field {
			return true
		}
	}
	return false
}

// columnPredicate maps a normalized operator to a squirrel condition.
func columnPredicate(column string, op filter.Operator, operand any) (squirrel.Sqlizer, error) {
	switch op {
	case filter.Equal:
		return squirrel.Eq{column: operand}, nil
	case filter.NotEqual:
		return squirrel.NotEq{column: operand}, nil
	case filter.Less:
		return squirrel.Lt{column: operand}, nil
	case filter.LessOrEqual:
		return squirrel.LtOrEq{column: operand}, nil
	case filter.Greater:
		return squirrel.Gt{column: operand}, nil
	case filter.GreaterOrEqual:
		return squirrel.GtOrEq{column: operand}, nil
	case filter.In:
		return squirrel.Eq{column: operand}, nil
	case filter.NotIn:
		return squirrel.NotEq{column: operand}, nil
	}
	return nil, apperror.NewBadRequest("filter operator not allowed").WithDetail("operator", string(op))
}

// sortedFields returns the filter field names in deterministic order.
func sortedFields(set filter.Set) []string {
	fields := make([]string, 0, len(set))
	for field := range set {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
