package field_repo

import (
	"context"
	"fmt"
	"time"

	"facet/internal/domain/attribute"
)

// pgTimestampLayouts cover the text renderings PostgreSQL produces for
// timestamptz columns, plus RFC 3339 for values written by this engine.
var pgTimestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07",
	time.RFC3339Nano,
	time.RFC3339,
}

// datetimeCodec stores UTC instants in the datetime table. Values are
// canonicalized to UTC on both directions so round trips are stable
// across session timezones.
type datetimeCodec struct{}

func (datetimeCodec) Parse(ctx context.Context, raw string, attr *attribute.Attribute) (any, error) {
	for _, layout := range pgTimestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return nil, fmt.Errorf("stored value %q is not a timestamp", raw)
}

func (datetimeCodec) Format(v any, attr *attribute.Attribute) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			parsed, err = time.Parse(time.RFC3339Nano, t)
		}
		if err != nil {
			return nil, fmt.Errorf("expected an RFC 3339 timestamp, got %q", t)
		}
		return parsed.UTC(), nil
	default:
		return nil, fmt.Errorf("expected a timestamp, got %T", v)
	}
}
