// Package attributeset defines named, ordered collections of attribute
// references. Entities are bound to a set; the set decides which
// attributes are relevant, validated and resolved for them.
package attributeset

import (
	"context"
	"time"

	"facet/internal/core/apperror"
	"facet/internal/core/id"
)

// AttributeSet is the schema entities attach to.
type AttributeSet struct {
	ID           id.ID     `db:"id" json:"id"`
	Code         string    `db:"code" json:"code"`
	Name         string    `db:"name" json:"name"`
	EntityTypeID id.ID     `db:"entity_type_id" json:"entityTypeId"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`

	// Attributes is the ordered membership, resolved separately.
	Attributes []SetAttribute `db:"-" json:"attributes,omitempty"`
}

// SetAttribute is one membership row. An attribute may appear in a set at
// most once; SortOrder defines field ordering in reads.
type SetAttribute struct {
	AttributeSetID id.ID `db:"attribute_set_id" json:"-"`
	AttributeID    id.ID `db:"attribute_id" json:"id"`
	SortOrder      int   `db:"sort_order" json:"-"`
}

// Validate checks model invariants.
func (s *AttributeSet) Validate(ctx context.Context) error {
	var v apperror.Violations
	if s.Code == "" {
		v.Add("code", "code is required")
	}
	if s.Name == "" {
		v.Add("name", "name is required")
	}
	seen := make(map[id.ID]struct{}, len(s.Attributes))
	for _, sa := range s.Attributes {
		if _, dup := seen[sa.AttributeID]; dup {
			v.Addf("attributes", "attribute %s referenced more than once", sa.AttributeID)
			continue
		}
		seen[sa.AttributeID] = struct{}{}
	}
	return v.Err()
}

// AttributeIDs returns the member attribute ids in sort order.
func (s *AttributeSet) AttributeIDs() []id.ID {
	out := make([]id.ID, len(s.Attributes))
	for i, sa := range s.Attributes {
		out[i] = sa.AttributeID
	}
	return out
}

// Contains reports whether the set references the attribute.
func (s *AttributeSet) Contains(attributeID id.ID) bool {
	for _, sa := range s.Attributes {
		if sa.AttributeID == attributeID {
			return true
		}
	}
	return false
}
