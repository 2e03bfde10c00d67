// Package filter defines the filter/sort expression set accepted by the
// repository list operations.
package filter

import (
	"fmt"
	"strings"

	"facet/internal/core/apperror"
)

// Operator identifies a comparison kind.
type Operator string

const (
	Equal          Operator = "e"
	NotEqual       Operator = "ne"
	Less           Operator = "lt"
	LessOrEqual    Operator = "lte"
	Greater        Operator = "gt"
	GreaterOrEqual Operator = "gte"
	In             Operator = "in"
	NotIn          Operator = "nin"
)

// All lists every operator the engine understands. Field-type descriptors
// narrow this down per type.
var All = []Operator{Equal, NotEqual, Less, LessOrEqual, Greater, GreaterOrEqual, In, NotIn}

// Expr is a single field's filter: operator -> operand. A bare value in a
// request payload is shorthand for {e: value} and is wrapped by FromAny.
type Expr map[Operator]any

// Set maps a field name (entity column or "fields.<code>") to its filter.
type Set map[string]any

// FromAny converts a raw filter payload for one field into an Expr.
// A map is interpreted operator-by-operator; anything else is implicit
// equality.
func FromAny(raw any) (Expr, error) {
	switch v := raw.(type) {
	case Expr:
		return v, nil
	case map[string]any:
		expr := make(Expr, len(v))
		for op, operand := range v {
			expr[Operator(op)] = operand
		}
		return expr, nil
	case map[Operator]any:
		return Expr(v), nil
	default:
		return Expr{Equal: raw}, nil
	}
}

// Normalize validates the expression against the allowed operator set and
// coerces scalar in/nin operands into lists (comma-splitting strings).
// An operator outside allowed is a BAD_REQUEST error.
func (e Expr) Normalize(allowed []Operator) (Expr, error) {
	permitted := make(map[Operator]struct{}, len(allowed))
	for _, op := range allowed {
		permitted[op] = struct{}{}
	}

	out := make(Expr, len(e))
	for op, operand := range e {
		if _, ok := permitted[op]; !ok {
			return nil, apperror.NewBadRequest("filter operator not allowed").
				WithDetail("operator", string(op)).
				WithDetail("allowed", operatorStrings(allowed))
		}
		if op == In || op == NotIn {
			operand = coerceList(operand)
		}
		out[op] = operand
	}
	return out, nil
}

// coerceList turns a scalar in/nin operand into a list. Strings are split
// on commas; other scalars become single-element lists.
func coerceList(operand any) []any {
	switch v := operand.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case string:
		parts := strings.Split(v, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out
	default:
		return []any{operand}
	}
}

func operatorStrings(ops []Operator) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = string(op)
	}
	return out
}

// --- Sort ---

// SortKey is one element of a sort expression: a field name with an
// optional leading '-' for descending order.
type SortKey struct {
	Field string
	Desc  bool
}

// ParseSortKey splits the '-'/'+' prefix off a sort token.
func ParseSortKey(token string) (SortKey, error) {
	key := SortKey{Field: strings.TrimSpace(token)}
	if strings.HasPrefix(key.Field, "-") {
		key.Desc = true
		key.Field = strings.TrimPrefix(key.Field, "-")
	} else if strings.HasPrefix(key.Field, "+") {
		key.Field = strings.TrimPrefix(key.Field, "+")
	}
	if key.Field == "" {
		return key, apperror.NewBadRequest(fmt.Sprintf("invalid sort token %q", token))
	}
	return key, nil
}
