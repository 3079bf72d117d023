package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bcerrors "github.com/esrf-bliss/blisscore/errors"
)

func TestAutoCodec_DecodeOrder(t *testing.T) {
	codec := AutoCodec{}

	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"FALSE", false},
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"1.5", 1.5},
		{"1e3", 1000.0},
		{"hello", "hello"},
		{"1.2.3", "1.2.3"},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := codec.Decode(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "decode %q", tt.in)
	}
}

func TestAutoCodec_EncodeRoundTrip(t *testing.T) {
	codec := AutoCodec{}

	for _, v := range []any{true, int64(42), 1.5, "text"} {
		s, err := codec.Encode(v)
		require.NoError(t, err)
		got, err := codec.Decode(s)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestBoolCodec(t *testing.T) {
	codec := BoolCodec{}

	s, err := codec.Encode(true)
	require.NoError(t, err)
	assert.Equal(t, "true", s)

	v, err := codec.Decode("TRUE")
	require.NoError(t, err)
	assert.True(t, v)

	v, err = codec.Decode("0")
	require.NoError(t, err)
	assert.False(t, v)

	_, err = codec.Decode("maybe")
	require.Error(t, err)
	assert.ErrorIs(t, err, bcerrors.ErrDecodeFailed)
}

func TestIntCodec_RejectsGarbage(t *testing.T) {
	_, err := IntCodec{}.Decode("not-a-number")
	require.Error(t, err)
	assert.ErrorIs(t, err, bcerrors.ErrDecodeFailed)
}

func TestJSONCodec(t *testing.T) {
	type params struct {
		Count  int     `json:"count"`
		Expo   float64 `json:"expo"`
		Silent bool    `json:"silent"`
	}
	codec := JSONCodec[params]{}

	s, err := codec.Encode(params{Count: 10, Expo: 0.1, Silent: true})
	require.NoError(t, err)

	got, err := codec.Decode(s)
	require.NoError(t, err)
	assert.Equal(t, params{Count: 10, Expo: 0.1, Silent: true}, got)

	_, err = codec.Decode("{broken")
	require.Error(t, err)
	assert.ErrorIs(t, err, bcerrors.ErrDecodeFailed)
}
