package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type baseRow struct {
	ID      string `db:"id"`
	private string //nolint:unused // must be skipped by reflection
}

type attrRow struct {
	baseRow
	Code      string `db:"code"`
	FieldType string `db:"field_type"`
	Ignored   string `db:"-"`
	NoTag     string
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[attrRow]()
	require.Equal(t, []string{"id", "code", "field_type"}, cols)
}

func TestStructToMap(t *testing.T) {
	row := attrRow{
		baseRow:   baseRow{ID: "a1"},
		Code:      "title",
		FieldType: "text",
		Ignored:   "skip",
		NoTag:     "skip",
	}

	m := StructToMap(row)
	assert.Equal(t, "a1", m["id"])
	assert.Equal(t, "title", m["code"])
	assert.Equal(t, "text", m["field_type"])
	assert.NotContains(t, m, "Ignored")
	assert.NotContains(t, m, "NoTag")
	assert.Len(t, m, 3)
}

func TestStructToMap_Pointer(t *testing.T) {
	row := &attrRow{Code: "height"}
	m := StructToMap(row)
	assert.Equal(t, "height", m["code"])
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
}
