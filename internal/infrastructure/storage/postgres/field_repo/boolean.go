package field_repo

import (
	"context"
	"fmt"

	"facet/internal/domain/attribute"
)

// booleanCodec shares the integer table, storing 0/1.
type booleanCodec struct{}

func (booleanCodec) Parse(ctx context.Context, raw string, attr *attribute.Attribute) (any, error) {
	switch raw {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return nil, fmt.Errorf("stored value %q is not a boolean", raw)
	}
}

func (booleanCodec) Format(v any, attr *attribute.Attribute) (any, error) {
	switch b := v.(type) {
	case bool:
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	case int64:
		if b == 0 || b == 1 {
			return b, nil
		}
	case int:
		if b == 0 || b == 1 {
			return int64(b), nil
		}
	case float64:
		if b == 0 || b == 1 {
			return int64(b), nil
		}
	case string:
		switch b {
		case "true", "1":
			return int64(1), nil
		case "false", "0":
			return int64(0), nil
		}
	}
	return nil, fmt.Errorf("expected a boolean, got %v (%T)", v, v)
}
