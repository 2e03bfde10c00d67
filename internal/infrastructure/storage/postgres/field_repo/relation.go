package field_repo

import (
	"context"
	"fmt"

	"facet/internal/core/id"
	"facet/internal/domain/attribute"
)

// relationCodec stores related entity ids in the ref table. Serves both
// relation and relation_collection; the ordered-list behavior of the
// collection type comes from the descriptor's HasMultipleValues flag.
type relationCodec struct{}

func (relationCodec) Parse(ctx context.Context, raw string, attr *attribute.Attribute) (any, error) {
	entityID, err := id.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("stored value %q is not an entity id", raw)
	}
	return Ref{ID: entityID, Type: "entity"}, nil
}

func (relationCodec) Format(v any, attr *attribute.Attribute) (any, error) {
	return refID(v)
}

// assetCodec stores asset references in the ref table. The engine owns
// only the id; metadata lives with the asset collaborator.
type assetCodec struct{}

func (assetCodec) Parse(ctx context.Context, raw string, attr *attribute.Attribute) (any, error) {
	assetID, err := id.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("stored value %q is not an asset id", raw)
	}
	return Ref{ID: assetID, Type: "asset"}, nil
}

func (assetCodec) Format(v any, attr *attribute.Attribute) (any, error) {
	return refID(v)
}
