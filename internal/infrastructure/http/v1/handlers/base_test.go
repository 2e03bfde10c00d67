package handlers

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facet/internal/core/apperror"
	"facet/internal/domain/filter"
)

func TestParseFilterParams(t *testing.T) {
	values, err := url.ParseQuery("filter[name]=Widget&filter[fields.weight][gt]=10&filter[fields.weight][lte]=50&limit=5")
	require.NoError(t, err)

	set, err := parseFilterParams(values)
	require.NoError(t, err)

	assert.Equal(t, filter.Set{
		"name": "Widget",
		"fields.weight": map[string]any{
			"gt":  "10",
			"lte": "50",
		},
	}, set)
}

func TestParseFilterParams_NoFilters(t *testing.T) {
	values, err := url.ParseQuery("limit=5&sort=-created_at")
	require.NoError(t, err)

	set, err := parseFilterParams(values)
	require.NoError(t, err)
	assert.Nil(t, set)
}

func TestParseFilterParams_Conflicting(t *testing.T) {
	values, err := url.ParseQuery("filter[name]=a&filter[name][gt]=b")
	require.NoError(t, err)

	_, err = parseFilterParams(values)
	require.Error(t, err)
	assert.True(t, apperror.IsBadRequest(err))
}

func TestParseFilterParams_Malformed(t *testing.T) {
	values := url.Values{"filter[]": []string{"x"}}

	_, err := parseFilterParams(values)
	require.Error(t, err)
	assert.True(t, apperror.IsBadRequest(err))
}
