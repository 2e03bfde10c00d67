package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCELEngine_Validate(t *testing.T) {
	engine, err := NewCELEngine()
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name      string
		value     any
		rule      string
		wantClean bool
	}{
		{"empty rule passes", "anything", "", true},
		{"string length ok", "short", `size(value) <= 10`, true},
		{"string length exceeded", "a much longer string", `size(value) <= 10`, false},
		{"numeric range ok", int64(5), `value >= 1 && value <= 10`, true},
		{"numeric range violated", int64(42), `value >= 1 && value <= 10`, false},
		{"prefix match", "SKU-991", `value.startsWith("SKU-")`, true},
		{"broken rule reports violation", "x", `value ===`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := engine.Validate(ctx, tt.value, tt.rule)
			if tt.wantClean {
				assert.Empty(t, msgs)
			} else {
				assert.NotEmpty(t, msgs)
			}
		})
	}
}

func TestCELEngine_CachesPrograms(t *testing.T) {
	engine, err := NewCELEngine()
	require.NoError(t, err)
	ctx := context.Background()

	rule := `size(value) > 0`
	require.Empty(t, engine.Validate(ctx, "a", rule))
	require.Empty(t, engine.Validate(ctx, "b", rule))

	engine.mu.RLock()
	defer engine.mu.RUnlock()
	assert.Len(t, engine.programs, 1)
}
