// Package fieldtype holds the field-type registry: the static
// configuration that maps a field-type key to its storage table, handler,
// validator and capability flags.
package fieldtype

import (
	"facet/internal/domain/filter"
)

// Key identifies a field type at runtime.
type Key string

const (
	Text               Key = "text"
	Integer            Key = "integer"
	Decimal            Key = "decimal"
	Datetime           Key = "datetime"
	Boolean            Key = "boolean"
	Select             Key = "select"
	Multiselect        Key = "multiselect"
	Relation           Key = "relation"
	RelationCollection Key = "relation_collection"
	Asset              Key = "asset"
)

// Value table names. Several types share a table: booleans are stored as
// integers, and every reference-shaped type (options, relations, assets)
// shares the ref table.
const (
	TableText     = "attribute_values_text"
	TableInteger  = "attribute_values_integer"
	TableDecimal  = "attribute_values_decimal"
	TableDatetime = "attribute_values_datetime"
	TableRef      = "attribute_values_ref"
)

// Descriptor carries a field type's capability flags and storage table.
// Immutable after registration.
type Descriptor struct {
	Key   Key
	Table string

	CanHaveDefault    bool
	CanBeUnique       bool
	CanBeLocalized    bool
	CanBeFilterable   bool
	HasOptions        bool
	HasMultipleValues bool
	Sortable          bool

	// FilterOperators lists the operators a filter on this type accepts.
	FilterOperators []filter.Operator
}

// AllowsOperator reports whether the descriptor permits a filter operator.
func (d Descriptor) AllowsOperator(op filter.Operator) bool {
	for _, allowed := range d.FilterOperators {
		if allowed == op {
			return true
		}
	}
	return false
}
