// Package domain provides the repository contracts and shared list types
// of the EAV engine.
package domain

import (
	"context"

	"facet/internal/core/id"
	"facet/internal/domain/attribute"
	"facet/internal/domain/attributeset"
	"facet/internal/domain/entity"
	"facet/internal/domain/entitytype"
	"facet/internal/domain/filter"
)

// --- Filter & pagination ---

// ListQuery contains filtering, sorting and pagination for list reads.
type ListQuery struct {
	// Filter maps a field name to a filter payload: a bare value
	// (implicit equality) or an operator map. Entity field filters use
	// the "fields.<code>" prefix.
	Filter filter.Set

	// Sort is an ordered list of field names, '-' prefix = descending.
	Sort []string

	// Offset/Limit paginate; Limit 0 means unbounded.
	Offset uint64
	Limit  uint64
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T    `json:"items"`
	TotalCount int64  `json:"totalCount"`
	Limit      uint64 `json:"limit"`
	Offset     uint64 `json:"offset"`
}

// --- Entity write payloads ---

// EntityParams is the write payload for an entity. Fields maps attribute
// code to a raw value: a scalar, an ordered list, or a locale-keyed map
// for localized attributes. Unknown codes are rejected.
type EntityParams struct {
	EntityType   string // entity type code (create only)
	AttributeSet string // attribute set code (create only)

	// Locale scopes scalar values of localized attributes. Empty means
	// values must be locale-keyed maps (or the attribute non-localized).
	Locale string

	Fields map[string]any
}

// --- Repositories ---

// AttributeRepository manages attribute definitions and their options.
type AttributeRepository interface {
	Create(ctx context.Context, attr *attribute.Attribute) (*attribute.Attribute, error)
	Update(ctx context.Context, attrID id.ID, attr *attribute.Attribute) (*attribute.Attribute, error)
	Delete(ctx context.Context, attrID id.ID) error
	Fetch(ctx context.Context, attrID id.ID) (*attribute.Attribute, error)
	FetchByCode(ctx context.Context, code string) (*attribute.Attribute, error)
	Get(ctx context.Context, q ListQuery) (ListResult[*attribute.Attribute], error)
}

// AttributeSetRepository manages named, ordered attribute collections.
type AttributeSetRepository interface {
	Create(ctx context.Context, set *attributeset.AttributeSet) (*attributeset.AttributeSet, error)
	// Update replaces membership wholesale when set.Attributes is
	// non-nil and preserves it when nil.
	Update(ctx context.Context, setID id.ID, set *attributeset.AttributeSet) (*attributeset.AttributeSet, error)
	Delete(ctx context.Context, setID id.ID) error
	Fetch(ctx context.Context, setID id.ID) (*attributeset.AttributeSet, error)
	FetchByCode(ctx context.Context, code string) (*attributeset.AttributeSet, error)
	Get(ctx context.Context, q ListQuery) (ListResult[*attributeset.AttributeSet], error)
}

// EntityTypeRepository resolves entity types addressed by code.
type EntityTypeRepository interface {
	Create(ctx context.Context, et *entitytype.EntityType) (*entitytype.EntityType, error)
	Fetch(ctx context.Context, etID id.ID) (*entitytype.EntityType, error)
	FetchByCode(ctx context.Context, code string) (*entitytype.EntityType, error)
	Get(ctx context.Context, q ListQuery) (ListResult[*entitytype.EntityType], error)
	Delete(ctx context.Context, etID id.ID) error
}

// EntityRepository orchestrates field handlers for entity CRUD, value
// aggregation and filter/sort translation.
type EntityRepository interface {
	Create(ctx context.Context, p EntityParams) (*entity.Entity, error)
	Update(ctx context.Context, entityID id.ID, p EntityParams) (*entity.Entity, error)
	Delete(ctx context.Context, entityID id.ID) error
	Fetch(ctx context.Context, entityID id.ID, localeCode string) (*entity.Entity, error)
	Get(ctx context.Context, q ListQuery, localeCode string) (ListResult[*entity.Entity], error)

	// Cascades fanned out across every registered field type.
	DeleteByAttribute(ctx context.Context, attributeID id.ID) error
	DeleteByAttributeSet(ctx context.Context, attributeSetID id.ID) error
	DeleteByEntityType(ctx context.Context, entityTypeID id.ID) error
}
