package field_repo

import (
	"fmt"

	"facet/internal/core/id"
)

// Ref is the logical value of relation-shaped field types: a typed
// reference resolved by the caller.
type Ref struct {
	ID   id.ID  `json:"id"`
	Type string `json:"type"`
}

// refID extracts an id from the accepted reference shapes: an id.ID, a
// UUID string, a Ref, or a {"id": ...} map from a JSON payload.
func refID(v any) (id.ID, error) {
	switch r := v.(type) {
	case id.ID:
		return r, nil
	case Ref:
		return r.ID, nil
	case *Ref:
		return r.ID, nil
	case string:
		parsed, err := id.Parse(r)
		if err != nil {
			return id.Nil(), fmt.Errorf("expected a reference id, got %q", r)
		}
		return parsed, nil
	case map[string]any:
		raw, ok := r["id"].(string)
		if !ok {
			return id.Nil(), fmt.Errorf("reference object is missing an id")
		}
		parsed, err := id.Parse(raw)
		if err != nil {
			return id.Nil(), fmt.Errorf("expected a reference id, got %q", raw)
		}
		return parsed, nil
	default:
		return id.Nil(), fmt.Errorf("expected a reference, got %T", v)
	}
}
