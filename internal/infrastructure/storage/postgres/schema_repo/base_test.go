package schema_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facet/internal/core/apperror"
	"facet/internal/domain/filter"
)

func testRepo() *baseRepo[any] {
	return newBaseRepo[any](nil, "test_table", []string{"id", "code", "created_at"}, func() any { return nil })
}

func TestApplyFilter_Operators(t *testing.T) {
	repo := testRepo()

	tests := []struct {
		name     string
		set      filter.Set
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "bare value is implicit equality",
			set:      filter.Set{"code": "sku"},
			wantSQL:  "SELECT id, code, created_at FROM test_table WHERE code = $1",
			wantArgs: []any{"sku"},
		},
		{
			name:     "operator map",
			set:      filter.Set{"code": map[string]any{"ne": "sku"}},
			wantSQL:  "SELECT id, code, created_at FROM test_table WHERE code <> $1",
			wantArgs: []any{"sku"},
		},
		{
			name:     "comma string coerces to IN list",
			set:      filter.Set{"code": map[string]any{"in": "a, b,c"}},
			wantSQL:  "SELECT id, code, created_at FROM test_table WHERE code IN ($1,$2,$3)",
			wantArgs: []any{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := repo.applyFilter(repo.baseSelect(), tt.set)
			require.NoError(t, err)

			sql, args, err := q.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestApplyFilter_UnknownColumn(t *testing.T) {
	repo := testRepo()

	_, err := repo.applyFilter(repo.baseSelect(), filter.Set{"password": "x"})
	assert.True(t, apperror.IsBadRequest(err))
}

func TestApplySort(t *testing.T) {
	repo := testRepo()

	q, err := repo.applySort(repo.baseSelect(), []string{"-created_at", "code"})
	require.NoError(t, err)

	sql, _, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, code, created_at FROM test_table ORDER BY created_at DESC, code ASC", sql)
}

func TestApplySort_DefaultAndUnknown(t *testing.T) {
	repo := testRepo()

	q, err := repo.applySort(repo.baseSelect(), nil)
	require.NoError(t, err)
	sql, _, err := q.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "ORDER BY created_at ASC")

	_, err = repo.applySort(repo.baseSelect(), []string{"-secret"})
	assert.True(t, apperror.IsBadRequest(err))
}
