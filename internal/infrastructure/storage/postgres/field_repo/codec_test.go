package field_repo

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facet/internal/core/id"
	"facet/internal/domain/attribute"
)

func TestTextCodec(t *testing.T) {
	codec := textCodec{}
	attr := &attribute.Attribute{Code: "name"}

	v, err := codec.Format("widget", attr)
	require.NoError(t, err)
	assert.Equal(t, "widget", v)

	parsed, err := codec.Parse(context.Background(), "widget", attr)
	require.NoError(t, err)
	assert.Equal(t, "widget", parsed)

	_, err = codec.Format(42, attr)
	assert.Error(t, err)
}

func TestIntegerCodec(t *testing.T) {
	codec := integerCodec{}
	attr := &attribute.Attribute{Code: "weight"}

	tests := []struct {
		name  string
		input any
		want  int64
		err   bool
	}{
		{name: "int64", input: int64(7), want: 7},
		{name: "int", input: 7, want: 7},
		{name: "whole float", input: float64(7), want: 7},
		{name: "fractional float", input: 7.5, err: true},
		{name: "json number", input: json.Number("7"), want: 7},
		{name: "numeric string", input: "7", want: 7},
		{name: "garbage string", input: "seven", err: true},
		{name: "bool", input: true, err: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := codec.Format(tt.input, attr)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	parsed, err := codec.Parse(context.Background(), "42", attr)
	require.NoError(t, err)
	assert.Equal(t, int64(42), parsed)

	_, err = codec.Parse(context.Background(), "not-a-number", attr)
	assert.Error(t, err)
}

func TestDecimalCodec(t *testing.T) {
	codec := decimalCodec{}
	attr := &attribute.Attribute{Code: "price"}

	v, err := codec.Format("19.99", attr)
	require.NoError(t, err)
	assert.True(t, v.(decimal.Decimal).Equal(decimal.RequireFromString("19.99")))

	// Parse(Format(x)) preserves the exact value through the text form.
	parsed, err := codec.Parse(context.Background(), v.(decimal.Decimal).String(), attr)
	require.NoError(t, err)
	assert.True(t, parsed.(decimal.Decimal).Equal(decimal.RequireFromString("19.99")))

	_, err = codec.Format("not-a-decimal", attr)
	assert.Error(t, err)
}

func TestDatetimeCodec(t *testing.T) {
	codec := datetimeCodec{}
	attr := &attribute.Attribute{Code: "released_at"}

	moment := time.Date(2024, 3, 15, 10, 30, 0, 0, time.FixedZone("CET", 3600))

	v, err := codec.Format(moment, attr)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, v.(time.Time).Location())
	assert.True(t, v.(time.Time).Equal(moment))

	v, err = codec.Format("2024-03-15T10:30:00+01:00", attr)
	require.NoError(t, err)
	assert.True(t, v.(time.Time).Equal(moment))

	// PostgreSQL's timestamptz text rendering.
	parsed, err := codec.Parse(context.Background(), "2024-03-15 09:30:00+00", attr)
	require.NoError(t, err)
	assert.True(t, parsed.(time.Time).Equal(moment))

	_, err = codec.Format("yesterday", attr)
	assert.Error(t, err)
}

func TestBooleanCodec(t *testing.T) {
	codec := booleanCodec{}
	attr := &attribute.Attribute{Code: "active"}

	v, err := codec.Format(true, attr)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = codec.Format("false", attr)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	parsed, err := codec.Parse(context.Background(), "1", attr)
	require.NoError(t, err)
	assert.Equal(t, true, parsed)

	_, err = codec.Format(2, attr)
	assert.Error(t, err)
	_, err = codec.Parse(context.Background(), "2", attr)
	assert.Error(t, err)
}

func TestSelectCodec(t *testing.T) {
	codec := selectCodec{}
	red := attribute.Option{ID: id.New(), Value: "red", Label: "Red"}
	green := attribute.Option{ID: id.New(), Value: "green", Label: "Green"}
	attr := &attribute.Attribute{Code: "color", Options: []attribute.Option{red, green}}

	// Accepts the option value.
	v, err := codec.Format("green", attr)
	require.NoError(t, err)
	assert.Equal(t, green.ID, v)

	// Accepts the option id.
	v, err = codec.Format(red.ID.String(), attr)
	require.NoError(t, err)
	assert.Equal(t, red.ID, v)

	// Parses back to the option value.
	parsed, err := codec.Parse(context.Background(), green.ID.String(), attr)
	require.NoError(t, err)
	assert.Equal(t, "green", parsed)

	_, err = codec.Format("blue", attr)
	assert.Error(t, err)

	_, err = codec.Parse(context.Background(), id.New().String(), attr)
	assert.Error(t, err)
}

func TestRelationCodec(t *testing.T) {
	codec := relationCodec{}
	attr := &attribute.Attribute{Code: "brand"}
	target := id.New()

	v, err := codec.Format(target.String(), attr)
	require.NoError(t, err)
	assert.Equal(t, target, v)

	v, err = codec.Format(map[string]any{"id": target.String()}, attr)
	require.NoError(t, err)
	assert.Equal(t, target, v)

	parsed, err := codec.Parse(context.Background(), target.String(), attr)
	require.NoError(t, err)
	assert.Equal(t, Ref{ID: target, Type: "entity"}, parsed)

	_, err = codec.Format("not-a-uuid", attr)
	assert.Error(t, err)
}

func TestAssetCodec(t *testing.T) {
	codec := assetCodec{}
	attr := &attribute.Attribute{Code: "image"}
	assetID := id.New()

	v, err := codec.Format(Ref{ID: assetID, Type: "asset"}, attr)
	require.NoError(t, err)
	assert.Equal(t, assetID, v)

	parsed, err := codec.Parse(context.Background(), assetID.String(), attr)
	require.NoError(t, err)
	assert.Equal(t, Ref{ID: assetID, Type: "asset"}, parsed)
}
