package locale

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facet/internal/core/apperror"
)

func TestStaticResolverFromCodes(t *testing.T) {
	ctx := context.Background()
	r := NewStaticResolverFromCodes([]string{"en_US", "de_DE"})

	en, err := r.Resolve(ctx, "en_US")
	require.NoError(t, err)
	assert.Equal(t, Locale{ID: 1, Code: "en_US"}, en)

	de, err := r.ByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "de_DE", de.Code)

	all, err := r.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Locale{{ID: 1, Code: "en_US"}, {ID: 2, Code: "de_DE"}}, all)
}

func TestStaticResolver_Unknown(t *testing.T) {
	ctx := context.Background()
	r := NewStaticResolverFromCodes([]string{"en_US"})

	_, err := r.Resolve(ctx, "fr_FR")
	assert.True(t, apperror.IsNotFound(err))

	// The sentinel id is not a locale.
	_, err = r.ByID(ctx, None)
	assert.True(t, apperror.IsNotFound(err))
}
