package fieldtype

import (
	"fmt"

	"facet/internal/core/apperror"
	"facet/internal/domain/attribute"
)

// Binding ties a field-type key to its descriptor, handler and validator.
type Binding struct {
	Descriptor Descriptor
	Handler    Handler
	Validator  Validator
}

// Registry is the read-only field-type lookup, loaded once at process
// start. Immutable after load; safe for concurrent reads.
type Registry struct {
	bindings map[Key]Binding
	keys     []Key
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[Key]Binding)}
}

// Register adds a binding. Duplicate and inconsistent keys are rejected
// here, at startup, rather than per-call.
func (r *Registry) Register(b Binding) error {
	key := b.Descriptor.Key
	if key == "" {
		return fmt.Errorf("fieldtype: binding has empty key")
	}
	if b.Descriptor.Table == "" {
		return fmt.Errorf("fieldtype: %q has no value table", key)
	}
	if b.Handler == nil || b.Validator == nil {
		return fmt.Errorf("fieldtype: %q is missing a handler or validator", key)
	}
	if _, dup := r.bindings[key]; dup {
		return fmt.Errorf("fieldtype: %q registered twice", key)
	}
	r.bindings[key] = b
	r.keys = append(r.keys, key)
	return nil
}

// MustRegister registers a binding and panics on error. For startup
// wiring only.
func (r *Registry) MustRegister(b Binding) {
	if err := r.Register(b); err != nil {
		panic(err)
	}
}

// Get resolves a field-type key, failing with UNKNOWN_FIELD_TYPE when
// the key is absent.
func (r *Registry) Get(key Key) (Binding, error) {
	b, ok := r.bindings[key]
	if !ok {
		return Binding{}, apperror.NewUnknownFieldType(string(key))
	}
	return b, nil
}

// ForAttribute resolves the binding for an attribute's field type.
func (r *Registry) ForAttribute(attr *attribute.Attribute) (Binding, error) {
	return r.Get(Key(attr.FieldType))
}

// Keys returns the registered keys in registration order.
func (r *Registry) Keys() []Key {
	out := make([]Key, len(r.keys))
	copy(out, r.keys)
	return out
}

// Bindings returns every binding in registration order.
func (r *Registry) Bindings() []Binding {
	out := make([]Binding, 0, len(r.keys))
	for _, key := range r.keys {
		out = append(out, r.bindings[key])
	}
	return out
}

// Tables returns the distinct value tables in registration order. Read
// aggregation issues one query per table, not per type or attribute.
func (r *Registry) Tables() []string {
	seen := make(map[string]struct{}, len(r.keys))
	var out []string
	for _, key := range r.keys {
		table := r.bindings[key].Descriptor.Table
		if _, ok := seen[table]; ok {
			continue
		}
		seen[table] = struct{}{}
		out = append(out, table)
	}
	return out
}
