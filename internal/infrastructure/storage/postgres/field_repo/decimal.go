package field_repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"facet/internal/domain/attribute"
)

// decimalCodec stores decimal.Decimal values in the numeric table.
// Full precision is preserved through the string rendering.
type decimalCodec struct{}

func (decimalCodec) Parse(ctx context.Context, raw string, attr *attribute.Attribute) (any, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("stored value %q is not a decimal: %w", raw, err)
	}
	return d, nil
}

func (decimalCodec) Format(v any, attr *attribute.Attribute) (any, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return nil, fmt.Errorf("expected a decimal, got %q", n)
		}
		return d, nil
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return nil, fmt.Errorf("expected a decimal, got %q", n.String())
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	default:
		return nil, fmt.Errorf("expected a decimal, got %T", v)
	}
}
