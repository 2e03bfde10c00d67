package fieldtype

import (
	"context"
	"testing"

	"github.com/Masterminds/squirrel"

	"facet/internal/core/apperror"
	"facet/internal/core/id"
	"facet/internal/domain/attribute"
	"facet/internal/domain/filter"
)

type stubHandler struct{ desc Descriptor }

func (h stubHandler) Descriptor() Descriptor { return h.desc }
func (h stubHandler) ParseValue(ctx context.Context, raw string, attr *attribute.Attribute) (any, error) {
	return raw, nil
}
func (h stubHandler) FormatValue(v any, attr *attribute.Attribute) (any, error) { return v, nil }
func (h stubHandler) Insert(ctx context.Context, entityID id.ID, attr *attribute.Attribute, localeID int, values []any) error {
	return nil
}
func (h stubHandler) Update(ctx context.Context, entityID id.ID, attr *attribute.Attribute, localeID int, values []any) error {
	return nil
}
func (h stubHandler) DeleteField(ctx context.Context, entityID, attributeID id.ID) error {
	return nil
}
func (h stubHandler) DeleteByEntity(ctx context.Context, entityID id.ID) error       { return nil }
func (h stubHandler) DeleteByAttribute(ctx context.Context, attributeID id.ID) error { return nil }
func (h stubHandler) DeleteByAttributeSet(ctx context.Context, attributeSetID id.ID) error {
	return nil
}
func (h stubHandler) DeleteByEntityType(ctx context.Context, entityTypeID id.ID) error { return nil }
func (h stubHandler) DeleteByOption(ctx context.Context, optionID id.ID) error         { return nil }
func (h stubHandler) FilterEntities(q squirrel.SelectBuilder, attr *attribute.Attribute, expr filter.Expr) (squirrel.SelectBuilder, error) {
	return q, nil
}
func (h stubHandler) SortEntities(q squirrel.SelectBuilder, attr *attribute.Attribute, desc bool) (squirrel.SelectBuilder, error) {
	return q, nil
}

type stubValidator struct{}

func (stubValidator) ValidateForInsert(ctx context.Context, attr *attribute.Attribute) error {
	return nil
}
func (stubValidator) ValidateForUpdate(ctx context.Context, attr, existing *attribute.Attribute) error {
	return nil
}
func (stubValidator) ValidateValue(ctx context.Context, v any, attr *attribute.Attribute, excludeEntity id.ID) error {
	return nil
}
func (stubValidator) ValidateFilter(expr filter.Expr, attr *attribute.Attribute) (filter.Expr, error) {
	return expr, nil
}

func binding(key Key, table string) Binding {
	desc := Descriptor{Key: key, Table: table}
	return Binding{Descriptor: desc, Handler: stubHandler{desc}, Validator: stubValidator{}}
}

func TestRegistry_GetUnknownKey(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("compound")
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeUnknownFieldType {
		t.Errorf("expected UNKNOWN_FIELD_TYPE, got %v", err)
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(binding(Text, TableText)); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := r.Register(binding(Text, TableText)); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestRegistry_RejectsIncompleteBindings(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Binding{Descriptor: Descriptor{Key: Text}}); err == nil {
		t.Fatal("expected binding without table to fail")
	}
	if err := r.Register(Binding{Descriptor: Descriptor{Key: Text, Table: TableText}}); err == nil {
		t.Fatal("expected binding without handler to fail")
	}
}

func TestRegistry_TablesAreDistinct(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(binding(Text, TableText))
	r.MustRegister(binding(Integer, TableInteger))
	r.MustRegister(binding(Boolean, TableInteger))
	r.MustRegister(binding(Select, TableRef))
	r.MustRegister(binding(Relation, TableRef))

	tables := r.Tables()
	want := []string{TableText, TableInteger, TableRef}
	if len(tables) != len(want) {
		t.Fatalf("tables = %v, want %v", tables, want)
	}
	for i := range want {
		if tables[i] != want[i] {
			t.Errorf("tables[%d] = %s, want %s", i, tables[i], want[i])
		}
	}
}

func TestRegistry_ForAttribute(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(binding(Text, TableText))

	attr := &attribute.Attribute{Code: "title", FieldType: "text"}
	b, err := r.ForAttribute(attr)
	if err != nil {
		t.Fatalf("ForAttribute failed: %v", err)
	}
	if b.Descriptor.Key != Text {
		t.Errorf("resolved key = %s, want text", b.Descriptor.Key)
	}

	attr.FieldType = "node"
	if _, err := r.ForAttribute(attr); err == nil {
		t.Error("expected unknown field type error")
	}
}

func TestDescriptor_AllowsOperator(t *testing.T) {
	d := Descriptor{FilterOperators: []filter.Operator{filter.Equal, filter.In}}
	if !d.AllowsOperator(filter.Equal) {
		t.Error("expected e to be allowed")
	}
	if d.AllowsOperator(filter.Greater) {
		t.Error("expected gt to be rejected")
	}
}
