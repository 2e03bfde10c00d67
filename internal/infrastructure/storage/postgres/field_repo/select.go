package field_repo

import (
	"context"
	"fmt"

	"facet/internal/core/id"
	"facet/internal/domain/attribute"
)

// selectCodec stores the chosen option's id in the ref table and parses
// it back into the option's value. Serves both select and multiselect.
type selectCodec struct{}

func (selectCodec) Parse(ctx context.Context, raw string, attr *attribute.Attribute) (any, error) {
	optionID, err := id.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("stored value %q is not an option id", raw)
	}
	opt := attr.OptionByID(optionID)
	if opt == nil {
		return nil, fmt.Errorf("attribute %q has no option %s", attr.Code, optionID)
	}
	return opt.Value, nil
}

func (selectCodec) Format(v any, attr *attribute.Attribute) (any, error) {
	// Accept the option's value or its id.
	if s, ok := v.(string); ok {
		if opt := attr.OptionByValue(s); opt != nil {
			return opt.ID, nil
		}
		if optionID, err := id.Parse(s); err == nil {
			if opt := attr.OptionByID(optionID); opt != nil {
				return opt.ID, nil
			}
		}
		return nil, fmt.Errorf("attribute %q has no option %q", attr.Code, s)
	}
	if optionID, err := refID(v); err == nil {
		if opt := attr.OptionByID(optionID); opt != nil {
			return opt.ID, nil
		}
		return nil, fmt.Errorf("attribute %q has no option %s", attr.Code, optionID)
	}
	return nil, fmt.Errorf("expected an option value or id, got %T", v)
}
