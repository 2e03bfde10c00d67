// Package entitytype defines the entity type catalog. Attribute sets and
// entities are partitioned by entity type; request filters address types
// by code.
package entitytype

import (
	"context"
	"time"

	"facet/internal/core/apperror"
	"facet/internal/core/id"
)

// EntityType groups entities and their attribute sets.
type EntityType struct {
	ID        id.ID     `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Validate checks model invariants.
func (t *EntityType) Validate(ctx context.Context) error {
	var v apperror.Violations
	if t.Code == "" {
		v.Add("code", "code is required")
	}
	if t.Name == "" {
		v.Add("name", "name is required")
	}
	return v.Err()
}
