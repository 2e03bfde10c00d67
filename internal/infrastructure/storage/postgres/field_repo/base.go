// Package field_repo provides the PostgreSQL field handlers and
// validators: one pair per field type, all built on a shared base that
// delegates storage to the type's value table.
package field_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"facet/internal/core/apperror"
	"facet/internal/core/id"
	"facet/internal/domain/attribute"
	"facet/internal/domain/fieldtype"
	"facet/internal/domain/filter"
	"facet/internal/infrastructure/storage/postgres"
)

// Codec converts between a field type's logical values and their
// storable native form. Pure; no I/O.
type Codec interface {
	// Parse converts the text rendering of a stored value into the
	// logical value handed to callers.
	Parse(ctx context.Context, raw string, attr *attribute.Attribute) (any, error)

	// Format converts a caller-supplied value into the native value
	// bound on insert and in filter predicates. Inverse of Parse.
	Format(v any, attr *attribute.Attribute) (any, error)
}

// BaseHandler implements fieldtype.Handler for one field type by
// combining the type's descriptor, its value-table store and its codec.
type BaseHandler struct {
	desc  fieldtype.Descriptor
	store *postgres.ValueStore
	codec Codec
}

// NewBaseHandler creates a handler over a value store and codec.
func NewBaseHandler(desc fieldtype.Descriptor, store *postgres.ValueStore, codec Codec) *BaseHandler {
	return &BaseHandler{desc: desc, store: store, codec: codec}
}

// Descriptor returns the handler's field-type descriptor.
func (h *BaseHandler) Descriptor() fieldtype.Descriptor { return h.desc }

// ParseValue converts a stored text rendering into the logical value.
func (h *BaseHandler) ParseValue(ctx context.Context, raw string, attr *attribute.Attribute) (any, error) {
	return h.codec.Parse(ctx, raw, attr)
}

// FormatValue converts a logical value into storable form.
func (h *BaseHandler) FormatValue(v any, attr *attribute.Attribute) (any, error) {
	return h.codec.Format(v, attr)
}

// Insert writes one row per value, sort_order = position.
func (h *BaseHandler) Insert(ctx context.Context, entityID id.ID, attr *attribute.Attribute, localeID int, values []any) error {
	formatted, err := h.formatAll(values, attr)
	if err != nil {
		return err
	}
	return h.store.InsertValues(ctx, entityID, attr.ID, localeID, formatted)
}

// Update is delete-then-insert for the (entity, attribute, locale) scope.
func (h *BaseHandler) Update(ctx context.Context, entityID id.ID, attr *attribute.Attribute, localeID int, values []any) error {
	if err := h.store.DeleteScope(ctx, entityID, attr.ID, localeID); err != nil {
		return err
	}
	return h.Insert(ctx, entityID, attr, localeID, values)
}

// DeleteField clears the attribute's values on the entity across all
// locales.
func (h *BaseHandler) DeleteField(ctx context.Context, entityID, attributeID id.ID) error {
	return h.store.DeleteField(ctx, entityID, attributeID)
}

func (h *BaseHandler) formatAll(values []any, attr *attribute.Attribute) ([]any, error) {
	out := make([]any, 0, len(values))
	for _, v := range values {
		f, err := h.codec.Format(v, attr)
		if err != nil {
			return nil, apperror.NewValidation(err.Error()).WithDetail(attr.Code, err.Error())
		}
		out = append(out, f)
	}
	return out, nil
}

// --- Cascade deletes ---

func (h *BaseHandler) DeleteByEntity(ctx context.Context, entityID id.ID) error {
	return h.store.DeleteByEntity(ctx, entityID)
}

func (h *BaseHandler) DeleteByAttribute(ctx context.Context, attributeID id.ID) error {
	return h.store.DeleteByAttribute(ctx, attributeID)
}

func (h *BaseHandler) DeleteByAttributeSet(ctx context.Context, attributeSetID id.ID) error {
	return h.store.DeleteByAttributeSet(ctx, attributeSetID)
}

func (h *BaseHandler) DeleteByEntityType(ctx context.Context, entityTypeID id.ID) error {
	return h.store.DeleteByEntityType(ctx, entityTypeID)
}

func (h *BaseHandler) DeleteByOption(ctx context.Context, optionID id.ID) error {
	// Only option-bearing types hold option references.
	if !h.desc.HasOptions {
		return nil
	}
	return h.store.DeleteByOption(ctx, optionID)
}

// --- Filter / sort lowering ---

// FilterEntities joins the handler's value table under an alias derived
// from the attribute code and appends one predicate per operator. The
// expression must already be normalized by the validator.
func (h *BaseHandler) FilterEntities(q squirrel.SelectBuilder, attr *attribute.Attribute, expr filter.Expr) (squirrel.SelectBuilder, error) {
	alias := postgres.ValueAlias(attr.Code)
	q = q.Join(
		fmt.Sprintf("%s AS %s ON %s.entity_id = entities.id AND %s.attribute_id = ?",
			h.desc.Table, alias, alias, alias),
		attr.ID,
	)

	column := alias + ".value"
	// Iterate in canonical operator order so generated SQL is stable.
	for _, op := range filter.All {
		operand, ok := expr[op]
		if !ok {
			continue
		}
		predicate, err := h.predicate(column, op, operand, attr)
		if err != nil {
			return q, err
		}
		q = q.Where(predicate)
	}
	return q, nil
}

func (h *BaseHandler) predicate(column string, op filter.Operator, operand any, attr *attribute.Attribute) (squirrel.Sqlizer, error) {
	switch op {
	case filter.In, filter.NotIn:
		list, ok := operand.([]any)
		if !ok {
			list = []any{operand}
		}
		formatted := make([]any, 0, len(list))
		for _, item := range list {
			f, err := h.codec.Format(item, attr)
			if err != nil {
				return nil, apperror.NewBadRequest(fmt.Sprintf("bad %s operand: %v", op, err)).
					WithDetail("field", attr.Code)
			}
			formatted = append(formatted, f)
		}
		if op == filter.In {
			return squirrel.Eq{column: formatted}, nil
		}
		return squirrel.NotEq{column: formatted}, nil
	}

	f, err := h.codec.Format(operand, attr)
	if err != nil {
		return nil, apperror.NewBadRequest(fmt.Sprintf("bad %s operand: %v", op, err)).
			WithDetail("field", attr.Code)
	}

	switch op {
	case filter.Equal:
		return squirrel.Eq{column: f}, nil
	case filter.NotEqual:
		return squirrel.NotEq{column: f}, nil
	case filter.Less:
		return squirrel.Lt{column: f}, nil
	case filter.LessOrEqual:
		return squirrel.LtOrEq{column: f}, nil
	case filter.Greater:
		return squirrel.Gt{column: f}, nil
	case filter.GreaterOrEqual:
		return squirrel.GtOrEq{column: f}, nil
	}
	return nil, apperror.NewBadRequest("filter operator not allowed").WithDetail("operator", string(op))
}

// SortEntities left-joins the value table so entities lacking a value
// still appear, then orders by the value column. The order expression is
// aggregated because entity list queries group by entity id to collapse
// join duplicates from multi-valued and localized attributes.
func (h *BaseHandler) SortEntities(q squirrel.SelectBuilder, attr *attribute.Attribute, desc bool) (squirrel.SelectBuilder, error) {
	if !h.desc.Sortable {
		return q, apperror.NewBadRequest(fmt.Sprintf("field type %q is not sortable", h.desc.Key)).
			WithDetail("field", attr.Code)
	}

	// Distinct alias keeps a simultaneous filter join on the same
	// attribute from colliding.
	alias := postgres.ValueAlias(attr.Code) + "_ord"
	q = q.LeftJoin(
		fmt.Sprintf("%s AS %s ON %s.entity_id = entities.id AND %s.attribute_id = ?",
			h.desc.Table, alias, alias, alias),
		attr.ID,
	)

	direction := "ASC"
	if desc {
		direction = "DESC"
	}
	return q.OrderBy(fmt.Sprintf("MIN(%s.value) %s", alias, direction)), nil
}
