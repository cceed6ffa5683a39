package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gowinmd/internal/token"
)

func roundTrip(t *testing.T, v uint32, width int) {
	t.Helper()

	encoded, err := EncodeCompressed(v)
	require.NoError(t, err)
	require.Len(t, encoded, width, "width of 0x%x", v)

	r := NewReader(encoded)
	got, err := r.ReadCompressed()
	require.NoError(t, err)
	require.Equal(t, v, got)
	require.Equal(t, width, r.Offset())
}

func TestCompressedRoundTripOneByte(t *testing.T) {
	for v := uint32(0); v <= 0x7f; v++ {
		roundTrip(t, v, 1)
	}
}

func TestCompressedRoundTripTwoBytes(t *testing.T) {
	for v := uint32(0x80); v <= 0x3fff; v++ {
		roundTrip(t, v, 2)
	}
}

func TestCompressedRoundTripFourBytes(t *testing.T) {
	for v := uint32(0x4000); v <= 0x1fffffff; v += 0x1fff {
		roundTrip(t, v, 4)
	}
	for _, v := range []uint32{0x4000, 0x4001, 0xffff, 0x10000, 0xffffff, 0x1000000, 0x1ffffffe, 0x1fffffff} {
		roundTrip(t, v, 4)
	}
}

func TestCompressedKnownEncodings(t *testing.T) {
	// Examples from ECMA-335 §II.23.2.
	tests := []struct {
		value uint32
		bytes []byte
	}{
		{0x03, []byte{0x03}},
		{0x7f, []byte{0x7f}},
		{0x80, []byte{0x80, 0x80}},
		{0x2e57, []byte{0xae, 0x57}},
		{0x3fff, []byte{0xbf, 0xff}},
		{0x4000, []byte{0xc0, 0x00, 0x40, 0x00}},
		{0x1fffffff, []byte{0xdf, 0xff, 0xff, 0xff}},
	}

	for _, tt := range tests {
		encoded, err := EncodeCompressed(tt.value)
		require.NoError(t, err)
		assert.Equal(t, tt.bytes, encoded)

		got, err := NewReader(tt.bytes).ReadCompressed()
		require.NoError(t, err)
		assert.Equal(t, tt.value, got)
	}
}

func TestEncodeCompressedRejectsWideValues(t *testing.T) {
	_, err := EncodeCompressed(0x20000000)
	assert.ErrorIs(t, err, ErrCompressedRange)
}

func TestReadCompressedInvalidPrefix(t *testing.T) {
	r := NewReader([]byte{0x01, 0xe0, 0x00, 0x00, 0x00})
	_, err := r.ReadCompressed()
	require.NoError(t, err)

	_, err = r.ReadCompressed()
	require.ErrorIs(t, err, ErrMalformed)

	var sigErr *Error
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, 1, sigErr.Offset)
	assert.Equal(t, byte(0xe0), sigErr.Tag)
}

func TestReadCompressedTruncated(t *testing.T) {
	for _, blob := range [][]byte{{}, {0x80}, {0xc0, 0x00, 0x00}} {
		_, err := NewReader(blob).ReadCompressed()
		assert.ErrorIs(t, err, ErrMalformed, "% x", blob)
	}
}

func TestReadCompressedSigned(t *testing.T) {
	// Examples from ECMA-335 §II.23.2.
	tests := []struct {
		bytes []byte
		value int32
	}{
		{[]byte{0x06}, 3},
		{[]byte{0x7b}, -3},
		{[]byte{0x80, 0x80}, 64},
		{[]byte{0x01}, -64},
		{[]byte{0xc0, 0x00, 0x40, 0x00}, 8192},
		{[]byte{0x80, 0x01}, -8192},
		{[]byte{0xdf, 0xff, 0xff, 0xfe}, 268435455},
		{[]byte{0xc0, 0x00, 0x00, 0x01}, -268435456},
	}

	for _, tt := range tests {
		got, err := NewReader(tt.bytes).ReadCompressedSigned()
		require.NoError(t, err)
		assert.Equal(t, tt.value, got, "% x", tt.bytes)
	}
}

func TestCompressedTokenRoundTrip(t *testing.T) {
	for _, tok := range []token.Token{
		token.New(token.TypeDef, 1),
		token.New(token.TypeRef, 0x1234),
		token.New(token.TypeSpec, 0x7ffff),
	} {
		encoded, err := EncodeCompressedToken(tok)
		require.NoError(t, err)

		got, err := NewReader(encoded).ReadCompressedToken()
		require.NoError(t, err)
		assert.Equal(t, tok, got)
	}
}

func TestReadSerString(t *testing.T) {
	r := NewReader([]byte{0x05, 'h', 'e', 'l', 'l', 'o', 0xff, 0x00})

	s, ok, err := r.ReadSerString()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", s)

	s, ok, err = r.ReadSerString()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, s)

	s, ok, err = r.ReadSerString()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, s)
	assert.Zero(t, r.Remaining())
}
