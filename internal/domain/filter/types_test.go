package filter

import (
	"reflect"
	"testing"

	"facet/internal/core/apperror"
)

func TestFromAny(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want Expr
	}{
		{
			name: "bare scalar is implicit equality",
			raw:  "red",
			want: Expr{Equal: "red"},
		},
		{
			name: "operator map",
			raw:  map[string]any{"gte": 2, "lt": 10},
			want: Expr{GreaterOrEqual: 2, Less: 10},
		},
		{
			name: "bare number",
			raw:  42,
			want: Expr{Equal: 42},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.raw)
			if err != nil {
				t.Fatalf("FromAny failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FromAny mismatch\nwant: %v\ngot:  %v", tt.want, got)
			}
		})
	}
}

func TestNormalize_CoercesInOperands(t *testing.T) {
	expr := Expr{In: "1, 2,3"}
	got, err := expr.Normalize(All)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	want := []any{"1", "2", "3"}
	if !reflect.DeepEqual(got[In], want) {
		t.Errorf("in operand mismatch\nwant: %v\ngot:  %v", want, got[In])
	}

	expr = Expr{NotIn: 7}
	got, err = expr.Normalize(All)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !reflect.DeepEqual(got[NotIn], []any{7}) {
		t.Errorf("nin operand mismatch: %v", got[NotIn])
	}
}

func TestNormalize_ListOperandPassedThrough(t *testing.T) {
	expr := Expr{In: []any{1, 3}}
	got, err := expr.Normalize(All)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !reflect.DeepEqual(got[In], []any{1, 3}) {
		t.Errorf("list operand changed: %v", got[In])
	}
}

func TestNormalize_RejectsDisallowedOperator(t *testing.T) {
	expr := Expr{Greater: 5}
	_, err := expr.Normalize([]Operator{Equal, NotEqual, In, NotIn})
	if err == nil {
		t.Fatal("expected error for disallowed operator")
	}
	if !apperror.IsBadRequest(err) {
		t.Errorf("expected BAD_REQUEST, got %v", err)
	}
}

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		token string
		want  SortKey
	}{
		{"code", SortKey{Field: "code"}},
		{"-created_at", SortKey{Field: "created_at", Desc: true}},
		{"+name", SortKey{Field: "name"}},
	}
	for _, tt := range tests {
		got, err := ParseSortKey(tt.token)
		if err != nil {
			t.Fatalf("ParseSortKey(%q) failed: %v", tt.token, err)
		}
		if got != tt.want {
			t.Errorf("ParseSortKey(%q) = %+v, want %+v", tt.token, got, tt.want)
		}
	}

	if _, err := ParseSortKey("-"); err == nil {
		t.Error("expected error for bare '-'")
	}
}
