package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Kinds(t *testing.T) {
	s := Scalar("Widget")
	assert.Equal(t, KindScalar, s.Kind())
	assert.Equal(t, "Widget", s.ScalarValue())
	assert.Nil(t, s.ListValue())

	l := List([]any{"red", "green"})
	assert.Equal(t, KindList, l.Kind())
	assert.Equal(t, []any{"red", "green"}, l.ListValue())
	assert.Nil(t, l.ScalarValue())

	loc := Localized([]string{"en_US", "de_DE"}, map[string]Value{
		"en_US": Scalar("Hello"),
		"de_DE": Scalar("Hallo"),
	})
	assert.Equal(t, KindLocalized, loc.Kind())
	assert.Equal(t, []string{"en_US", "de_DE"}, loc.LocaleCodes())
	v, ok := loc.ForLocale("de_DE")
	require.True(t, ok)
	assert.Equal(t, "Hallo", v.ScalarValue())
	_, ok = loc.ForLocale("fr_FR")
	assert.False(t, ok)
}

func TestValue_IsEmpty(t *testing.T) {
	assert.True(t, Scalar(nil).IsEmpty())
	assert.True(t, Scalar("").IsEmpty())
	assert.False(t, Scalar(0).IsEmpty())
	assert.True(t, List(nil).IsEmpty())
	assert.False(t, List([]any{"x"}).IsEmpty())
	assert.True(t, Localized(nil, nil).IsEmpty())
}

func TestFields_InsertionOrder(t *testing.T) {
	f := NewFields()
	f.Set("weight", Scalar(int64(42)))
	f.Set("name", Scalar("Widget"))
	f.Set("weight", Scalar(int64(43))) // overwrite keeps first-set position

	assert.Equal(t, []string{"weight", "name"}, f.Codes())
	assert.Equal(t, 2, f.Len())

	v, ok := f.Get("weight")
	require.True(t, ok)
	assert.Equal(t, int64(43), v.ScalarValue())
}

func TestFields_MarshalJSON_Ordered(t *testing.T) {
	f := NewFields()
	f.Set("name", Scalar("Widget"))
	f.Set("tags", List([]any{"a", "b"}))
	f.Set("title", Localized([]string{"en_US"}, map[string]Value{"en_US": Scalar("Hello")}))

	raw, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Widget","tags":["a","b"],"title":{"en_US":"Hello"}}`, string(raw))
	// Key order is the set order, not lexical.
	assert.Equal(t, `{"name":"Widget","tags":["a","b"],"title":{"en_US":"Hello"}}`, string(raw))

	raw, err = json.Marshal(NewFields())
	require.NoError(t, err)
	assert.Equal(t, "{}", string(raw))
}
