// Package entity defines the entity model and its dynamic field bag.
// An entity's fields are not persisted on the entity row; they are
// assembled at read time from the per-type value tables.
package entity

import (
	"time"

	"facet/internal/core/id"
)

// Entity is a record bound to an attribute set. Its field set is exactly
// the set's attribute list.
type Entity struct {
	ID             id.ID     `db:"id" json:"id"`
	EntityTypeID   id.ID     `db:"entity_type_id" json:"entityTypeId"`
	AttributeSetID id.ID     `db:"attribute_set_id" json:"attributeSetId"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`

	// Fields is derived at read time, keyed by attribute code.
	Fields *Fields `db:"-" json:"fields"`
}
