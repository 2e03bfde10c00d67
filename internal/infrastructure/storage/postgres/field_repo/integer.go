package field_repo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"facet/internal/domain/attribute"
)

// integerCodec stores int64 values in the integer table.
type integerCodec struct{}

func (integerCodec) Parse(ctx context.Context, raw string, attr *attribute.Attribute) (any, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("stored value %q is not an integer: %w", raw, err)
	}
	return n, nil
}

func (integerCodec) Format(v any, attr *attribute.Attribute) (any, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		// JSON numbers decode as float64; accept only whole values.
		if n != math.Trunc(n) {
			return nil, fmt.Errorf("expected an integer, got %v", n)
		}
		return int64(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %q", n.String())
		}
		return i, nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %q", n)
		}
		return i, nil
	default:
		return nil, fmt.Errorf("expected an integer, got %T", v)
	}
}
