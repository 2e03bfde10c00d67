package postgres

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditDiff(t *testing.T) {
	oldState := map[string]any{
		"name":   "Widget",
		"weight": 10,
		"color":  "red",
	}
	newState := map[string]any{
		"name":   "Widget",
		"weight": 12,
		"tags":   []string{"new"},
	}

	changes := AuditDiff(oldState, newState)

	assert.NotContains(t, changes, "name")
	assert.Equal(t, map[string]any{"old": 10, "new": 12}, changes["weight"])
	assert.Equal(t, map[string]any{"old": "red", "new": nil}, changes["color"])
	assert.Equal(t, map[string]any{"old": nil, "new": []string{"new"}}, changes["tags"])
}

func TestAuditLog_PackRoundTrip(t *testing.T) {
	l, err := NewAuditLog(nil)
	require.NoError(t, err)

	small := json.RawMessage(`{"name":"Widget"}`)
	plain, compressed, algo := l.pack(small)
	assert.Equal(t, small, plain)
	assert.Nil(t, compressed)
	assert.Equal(t, CompressionNone, algo)

	big, err := json.Marshal(map[string]any{
		"description": string(bytes.Repeat([]byte("lorem ipsum "), 2000)),
	})
	require.NoError(t, err)
	plain, compressed, algo = l.pack(big)
	assert.Nil(t, plain)
	assert.Less(t, len(compressed), len(big))
	assert.Equal(t, CompressionZstd, algo)

	restored, err := l.unpack(AuditEntry{
		ChangesCompressed: compressed,
		CompressionAlgo:   algo,
	})
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(big), restored)
}
