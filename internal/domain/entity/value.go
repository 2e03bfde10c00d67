package entity

import (
	"encoding/json"
)

// ValueKind discriminates the Value union.
type ValueKind int

const (
	// KindScalar is a single value.
	KindScalar ValueKind = iota
	// KindList is an ordered multi-value.
	KindList
	// KindLocalized maps locale codes to scalar or list values.
	KindLocalized
)

// Value is a tagged union representing one field's value: a scalar, an
// ordered list, or a locale-keyed map of either. Localization and
// multiplicity are explicit rather than inferred at runtime.
type Value struct {
	kind    ValueKind
	scalar  any
	list    []any
	locales map[string]Value
	order   []string // locale insertion order for deterministic JSON
}

// Scalar wraps a single value.
func Scalar(v any) Value {
	return Value{kind: KindScalar, scalar: v}
}

// List wraps an ordered multi-value.
func List(vs []any) Value {
	return Value{kind: KindList, list: vs}
}

// Localized builds a locale-keyed value preserving the given code order.
func Localized(codes []string, values map[string]Value) Value {
	return Value{kind: KindLocalized, locales: values, order: codes}
}

// Kind returns the union tag.
func (v Value) Kind() ValueKind { return v.kind }

// ScalarValue returns the scalar payload (nil unless KindScalar).
func (v Value) ScalarValue() any {
	if v.kind != KindScalar {
		return nil
	}
	return v.scalar
}

// ListValue returns the list payload (nil unless KindList).
func (v Value) ListValue() []any {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// ForLocale returns the value stored under a locale code.
func (v Value) ForLocale(code string) (Value, bool) {
	if v.kind != KindLocalized {
		return Value{}, false
	}
	lv, ok := v.locales[code]
	return lv, ok
}

// LocaleCodes returns the locale codes in insertion order.
func (v Value) LocaleCodes() []string {
	return v.order
}

// IsEmpty reports whether the value carries no payload.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindScalar:
		return v.scalar == nil || v.scalar == ""
	case KindList:
		return len(v.list) == 0
	case KindLocalized:
		return len(v.locales) == 0
	}
	return true
}

// Interface flattens the value into plain Go data: scalar, []any, or
// map[string]any for localized values.
func (v Value) Interface() any {
	switch v.kind {
	case KindScalar:
		return v.scalar
	case KindList:
		return v.list
	case KindLocalized:
		out := make(map[string]any, len(v.locales))
		for code, lv := range v.locales {
			out[code] = lv.Interface()
		}
		return out
	}
	return nil
}

// MarshalJSON renders the flattened form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Fields is an insertion-ordered map of attribute code -> Value. The
// order follows the attribute set's sort order.
type Fields struct {
	codes  []string
	values map[string]Value
}

// NewFields creates an empty field bag.
func NewFields() *Fields {
	return &Fields{values: make(map[string]Value)}
}

// Set stores a value under a code, keeping first-set order.
func (f *Fields) Set(code string, v Value) {
	if f.values == nil {
		f.values = make(map[string]Value)
	}
	if _, exists := f.values[code]; !exists {
		f.codes = append(f.codes, code)
	}
	f.values[code] = v
}

// Get returns the value for a code.
func (f *Fields) Get(code string) (Value, bool) {
	if f == nil || f.values == nil {
		return Value{}, false
	}
	v, ok := f.values[code]
	return v, ok
}

// Codes returns the attribute codes in insertion order.
func (f *Fields) Codes() []string {
	if f == nil {
		return nil
	}
	return f.codes
}

// Len returns the number of fields.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.codes)
}

// MarshalJSON renders an ordered JSON object.
func (f *Fields) MarshalJSON() ([]byte, error) {
	if f == nil || len(f.codes) == 0 {
		return []byte("{}"), nil
	}
	buf := []byte{'{'}
	for i, code := range f.codes {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(code)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.values[code])
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}
