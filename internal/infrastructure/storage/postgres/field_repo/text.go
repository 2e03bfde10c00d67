package field_repo

import (
	"context"
	"fmt"

	"facet/internal/domain/attribute"
)

// textCodec stores values verbatim in the text table.
type textCodec struct{}

func (textCodec) Parse(ctx context.Context, raw string, attr *attribute.Attribute) (any, error) {
	return raw, nil
}

func (textCodec) Format(v any, attr *attribute.Attribute) (any, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	default:
		return nil, fmt.Errorf("expected a string, got %T", v)
	}
}
