package fieldtype

import (
	"context"

	"github.com/Masterminds/squirrel"

	"facet/internal/core/id"
	"facet/internal/domain/attribute"
	"facet/internal/domain/filter"
)

// ValueRow is one row read from a value table, joined through
// set_attributes so aggregation can order fields by set position.
// Value is the text rendering of the stored native value.
type ValueRow struct {
	EntityID     id.ID  `db:"entity_id"`
	AttributeID  id.ID  `db:"attribute_id"`
	LocaleID     int    `db:"locale_id"`
	SetSortOrder int    `db:"set_sort_order"`
	SortOrder    int    `db:"sort_order"`
	Value        string `db:"value"`
}

// Handler reads, writes, formats and parses a single field type's values
// in its dedicated table, and lowers filter/sort requests into query
// fragments. One implementation per field type.
type Handler interface {
	// Descriptor returns the handler's type descriptor.
	Descriptor() Descriptor

	// ParseValue converts a stored value (text rendering) into its
	// logical type. For option types the stored option id is resolved
	// against the attribute's options.
	ParseValue(ctx context.Context, raw string, attr *attribute.Attribute) (any, error)

	// FormatValue converts a logical value into its storable native
	// form. Inverse of ParseValue.
	FormatValue(v any, attr *attribute.Attribute) (any, error)

	// Insert writes one row per value with sort_order = position.
	// No pre-delete.
	Insert(ctx context.Context, entityID id.ID, attr *attribute.Attribute, localeID int, values []any) error

	// Update is delete-then-insert for the (entity, attribute, locale)
	// scope. Partial in-place updates are not attempted.
	Update(ctx context.Context, entityID id.ID, attr *attribute.Attribute, localeID int, values []any) error

	// DeleteField clears one attribute's values on one entity, all
	// locales included.
	DeleteField(ctx context.Context, entityID, attributeID id.ID) error

	// Cascade deletes, each scoped to the handler's own value table.
	DeleteByEntity(ctx context.Context, entityID id.ID) error
	DeleteByAttribute(ctx context.Context, attributeID id.ID) error
	DeleteByAttributeSet(ctx context.Context, attributeSetID id.ID) error
	DeleteByEntityType(ctx context.Context, entityTypeID id.ID) error
	DeleteByOption(ctx context.Context, optionID id.ID) error

	// FilterEntities joins the value table (aliased per attribute code)
	// and appends the predicate for a normalized filter expression.
	FilterEntities(q squirrel.SelectBuilder, attr *attribute.Attribute, expr filter.Expr) (squirrel.SelectBuilder, error)

	// SortEntities left-joins the value table and orders by its value
	// column, so entities lacking a value still appear.
	SortEntities(q squirrel.SelectBuilder, attr *attribute.Attribute, desc bool) (squirrel.SelectBuilder, error)
}

// Validator validates attribute definitions, attribute values and filter
// expressions for a single field type.
type Validator interface {
	// ValidateForInsert rejects definition-level combinations the type
	// forbids. All violations are collected before returning.
	ValidateForInsert(ctx context.Context, attr *attribute.Attribute) error

	// ValidateForUpdate does the same against an existing definition.
	ValidateForUpdate(ctx context.Context, attr, existing *attribute.Attribute) error

	// ValidateValue enforces required/unique and type-specific value
	// rules. excludeEntity is skipped by the uniqueness check (the
	// entity being updated); pass id.Nil() on create.
	ValidateValue(ctx context.Context, v any, attr *attribute.Attribute, excludeEntity id.ID) error

	// ValidateFilter normalizes a filter expression and rejects
	// operators the type does not support.
	ValidateFilter(expr filter.Expr, attr *attribute.Attribute) (filter.Expr, error)
}
