package entity_repo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"

	"facet/internal/core/apperror"
	"facet/internal/domain/attribute"
	"facet/internal/domain/filter"
)

// fieldPrefix addresses attribute values in filter and sort expressions.
const fieldPrefix = "fields."

// entityColumns maps filterable entity row fields to their qualified
// column names.
var entityColumns = map[string]string{
	"id":         "entities.id",
	"created_at": "entities.created_at",
	"updated_at": "entities.updated_at",
}

// refOps is the operator set for code-addressed references ("type" and
// "attribute_set"); ranges over codes make no sense.
var refOps = []filter.Operator{filter.Equal, filter.NotEqual, filter.In, filter.NotIn}

// applyFilters lowers a filter set onto the entity list query. Entity
// columns filter directly, "type" and "attribute_set" resolve codes to
// ids, and "fields.<code>" delegates to the attribute's field handler.
func (r *Repo) applyFilters(ctx context.Context, query squirrel.SelectBuilder, set filter.Set) (squirrel.SelectBuilder, error) {
	for _, field := range sortedFilterFields(set) {
		expr, err := filter.FromAny(set[field])
		if err != nil {
			return query, err
		}

		switch {
		case field == "type":
			query, err = r.applyCodeFilter(ctx, query, "entities.entity_type_id", expr, r.resolveTypeCode)
		case field == "attribute_set":
			query, err = r.applyCodeFilter(ctx, query, "entities.attribute_set_id", expr, r.resolveSetCode)
		case strings.HasPrefix(field, fieldPrefix):
			query, err = r.applyFieldFilter(ctx, query, strings.TrimPrefix(field, fieldPrefix), expr)
		default:
			column, ok := entityColumns[field]
			if !ok {
				return query, apperror.NewBadRequest(fmt.Sprintf("unknown filter field %q", field))
			}
			query, err = applyColumnFilter(query, column, expr)
		}
		if err != nil {
			return query, err
		}
	}
	return query, nil
}

// applyColumnFilter appends predicates for a plain entity column.
func applyColumnFilter(query squirrel.SelectBuilder, column string, expr filter.Expr) (squirrel.SelectBuilder, error) {
	expr, err := expr.Normalize(filter.All)
	if err != nil {
		return query, err
	}
	for _, op := range filter.All {
		operand, ok := expr[op]
		if !ok {
			continue
		}
		pred, err := columnPredicate(column, op, operand)
		if err != nil {
			return query, err
		}
		query = query.Where(pred)
	}
	return query, nil
}

// applyCodeFilter translates code operands to ids before filtering the
// given id column.
func (r *Repo) applyCodeFilter(ctx context.Context, query squirrel.SelectBuilder, column string, expr filter.Expr, resolve func(context.Context, string) (any, error)) (squirrel.SelectBuilder, error) {
	expr, err := expr.Normalize(refOps)
	if err != nil {
		return query, err
	}

	for _, op := range refOps {
		operand, ok := expr[op]
		if !ok {
			continue
		}
		resolved, err := resolveCodes(ctx, operand, resolve)
		if err != nil {
			return query, err
		}
		pred, err := columnPredicate(column, op, resolved)
		if err != nil {
			return query, err
		}
		query = query.Where(pred)
	}
	return query, nil
}

// attributeByCode serves an attribute definition from the schema cache
// when present, falling back to the repository.
func (r *Repo) attributeByCode(ctx context.Context, code string) (*attribute.Attribute, error) {
	if r.schema != nil {
		if attr := r.schema.Attribute(code); attr != nil {
			return attr, nil
		}
	}
	return r.attrs.FetchByCode(ctx, code)
}

// applyFieldFilter validates the expression against the attribute's type
// and delegates join and predicate construction to its handler.
func (r *Repo) applyFieldFilter(ctx context.Context, query squirrel.SelectBuilder, code string, expr filter.Expr) (squirrel.SelectBuilder, error) {
	attr, err := r.attributeByCode(ctx, code)
	if err != nil {
		if apperror.IsNotFound(err) {
			return query, apperror.NewBadRequest(fmt.Sprintf("unknown filter field %q", fieldPrefix+code))
		}
		return query, err
	}

	binding, err := r.registry.ForAttribute(attr)
	if err != nil {
		return query, err
	}
	expr, err = binding.Validator.ValidateFilter(expr, attr)
	if err != nil {
		return query, err
	}
	return binding.Handler.FilterEntities(query, attr, expr)
}

// applySort lowers sort tokens: entity columns order directly,
// "fields.<code>" delegates to the attribute's handler.
func (r *Repo) applySort(ctx context.Context, query squirrel.SelectBuilder, tokens []string) (squirrel.SelectBuilder, error) {
	if len(tokens) == 0 {
		return query.OrderBy("entities.created_at ASC"), nil
	}

	for _, token := range tokens {
		key, err := filter.ParseSortKey(token)
		if err != nil {
			return query, err
		}

		if strings.HasPrefix(key.Field, fieldPrefix) {
			code := strings.TrimPrefix(key.Field, fieldPrefix)
			attr, err := r.attributeByCode(ctx, code)
			if err != nil {
				if apperror.IsNotFound(err) {
					return query, apperror.NewBadRequest(fmt.Sprintf("unknown sort field %q", key.Field))
				}
				return query, err
			}
			binding, err := r.registry.ForAttribute(attr)
			if err != nil {
				return query, err
			}
			query, err = binding.Handler.SortEntities(query, attr, key.Desc)
			if err != nil {
				return query, err
			}
			continue
		}

		column, ok := entityColumns[key.Field]
		if !ok {
			return query, apperror.NewBadRequest(fmt.Sprintf("unknown sort field %q", key.Field))
		}
		direction := " ASC"
		if key.Desc {
			direction = " DESC"
		}
		query = query.OrderBy(column + direction)
	}
	return query, nil
}

func (r *Repo) resolveTypeCode(ctx context.Context, code string) (any, error) {
	et, err := r.entityTypes.FetchByCode(ctx, code)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewBadRequest(fmt.Sprintf("unknown entity type %q", code))
		}
		return nil, err
	}
	return et.ID, nil
}

func (r *Repo) resolveSetCode(ctx context.Context, code string) (any, error) {
	if r.schema != nil {
		if set := r.schema.AttributeSet(code); set != nil {
			return set.ID, nil
		}
	}
	set, err := r.sets.FetchByCode(ctx, code)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewBadRequest(fmt.Sprintf("unknown attribute set %q", code))
		}
		return nil, err
	}
	return set.ID, nil
}

// resolveCodes maps a normalized operand (scalar or list of codes) to
// ids. Non-string operands are rejected; ids are addressed by code here.
func resolveCodes(ctx context.Context, operand any, resolve func(context.Context, string) (any, error)) (any, error) {
	switch v := operand.(type) {
	case string:
		return resolve(ctx, v)
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			code, ok := item.(string)
			if !ok {
				return nil, apperror.NewBadRequest("reference filters take codes")
			}
			resolved, err := resolve(ctx, code)
			if err != nil {
				return nil, err
			}
			out = append(out, resolved)
		}
		return out, nil
	default:
		return nil, apperror.NewBadRequest("reference filters take codes")
	}
}

// columnPredicate maps a normalized operator to a squirrel condition.
func columnPredicate(column string, op filter.Operator, operand any) (squirrel.Sqlizer, error) {
	switch op {
	case filter.Equal, filter.In:
		return squirrel.Eq{column: operand}, nil
	case filter.NotEqual, filter.NotIn:
		return squirrel.NotEq{column: operand}, nil
	case filter.Less:
		return squirrel.Lt{column: operand}, nil
	case filter.LessOrEqual:
		return squirrel.LtOrEq{column: operand}, nil
	case filter.Greater:
		return squirrel.Gt{column: operand}, nil
	case filter.GreaterOrEqual:
		return squirrel.GtOrEq{column: operand}, nil
	}
	return nil, apperror.NewBadRequest("filter operator not allowed").WithDetail("operator", string(op))
}

// sortedFilterFields returns filter field names in deterministic order.
func sortedFilterFields(set filter.Set) []string {
	fields := make([]string, 0, len(set))
	for field := range set {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
