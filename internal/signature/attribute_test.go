package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAttributeValueString(t *testing.T) {
	blob := []byte{0x01, 0x00, 0x09, 'k', 'e', 'r', 'n', 'e', 'l', '3', '2', '!', 0x00, 0x00}

	fixed, named, err := DecodeAttributeValue([]TypeIdentifier{Primitive(ElementTypeString)}, blob)
	require.NoError(t, err)

	require.Len(t, fixed, 1)
	s, ok := fixed[0].AsString()
	assert.True(t, ok)
	assert.Equal(t, "kernel32!", s)
	assert.Empty(t, named)
}

func TestDecodeAttributeValueNullString(t *testing.T) {
	fixed, _, err := DecodeAttributeValue([]TypeIdentifier{Primitive(ElementTypeString)}, []byte{0x01, 0x00, 0xff})
	require.NoError(t, err)

	_, ok := fixed[0].AsString()
	assert.False(t, ok)
	assert.Nil(t, fixed[0].Value)
}

func TestDecodeAttributeValuePrimitivesAndEnum(t *testing.T) {
	params := []TypeIdentifier{
		Primitive(ElementTypeBoolean),
		Primitive(ElementTypeU2),
		Primitive(ElementTypeI8),
		{CorType: ElementTypeValueType, Name: "Windows.Win32.Foundation.Metadata.Architecture"},
		Primitive(ElementTypeR4),
	}
	blob := []byte{
		0x01, 0x00,
		0x01,
		0x34, 0x12,
		0xfe, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0x06, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x80, 0x3f,
	}

	fixed, _, err := DecodeAttributeValue(params, blob)
	require.NoError(t, err)
	require.Len(t, fixed, 5)

	assert.Equal(t, true, fixed[0].Value)
	assert.Equal(t, uint16(0x1234), fixed[1].Value)
	assert.Equal(t, int64(-2), fixed[2].Value)
	arch, ok := fixed[3].AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(6), arch)
	assert.Equal(t, float32(1), fixed[4].Value)
}

func TestDecodeAttributeValueArrayAndBoxed(t *testing.T) {
	params := []TypeIdentifier{
		{CorType: ElementTypeSZArray, TypeArgs: []TypeIdentifier{Primitive(ElementTypeU1)}},
		Primitive(ElementTypeObject),
		{CorType: ElementTypeClass, Name: "System.Type"},
	}
	blob := []byte{
		0x01, 0x00,
		0x02, 0x00, 0x00, 0x00, 0xaa, 0xbb,
		0x08, 0x2a, 0x00, 0x00, 0x00,
		0x03, 'I', 'F', 'o',
	}

	fixed, _, err := DecodeAttributeValue(params, blob)
	require.NoError(t, err)

	items, ok := fixed[0].Value.([]AttributeValue)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, uint8(0xbb), items[1].Value)

	assert.Equal(t, ElementTypeI4, fixed[1].Type.CorType)
	assert.Equal(t, int32(42), fixed[1].Value)

	s, ok := fixed[2].AsString()
	assert.True(t, ok)
	assert.Equal(t, "IFo", s)
}

func TestDecodeAttributeValueNamedArguments(t *testing.T) {
	blob := []byte{
		0x01, 0x00,
		0x02, 0x00,
		0x54, 0x02, 0x0d, 'A', 'l', 'l', 'o', 'w', 'M', 'u', 'l', 't', 'i', 'p', 'l', 'e', 0x01,
		0x53, 0x55, 0x03, 'E', 'n', 'm', 0x01, 'V', 0x07, 0x00, 0x00, 0x00,
	}

	fixed, named, err := DecodeAttributeValue(nil, blob)
	require.NoError(t, err)
	assert.Empty(t, fixed)

	require.Len(t, named, 2)
	assert.False(t, named[0].IsField)
	assert.Equal(t, "AllowMultiple", named[0].Name)
	assert.Equal(t, true, named[0].Value)

	assert.True(t, named[1].IsField)
	assert.Equal(t, "V", named[1].Name)
	assert.Equal(t, "Enm", named[1].Type.Name)
	assert.Equal(t, int32(7), named[1].Value)
}

func TestDecodeAttributeValueErrors(t *testing.T) {
	_, _, err := DecodeAttributeValue(nil, []byte{0x02, 0x00})
	assert.ErrorIs(t, err, ErrMalformed)

	_, _, err = DecodeAttributeValue([]TypeIdentifier{Primitive(ElementTypeI4)}, []byte{0x01, 0x00, 0x01})
	assert.ErrorIs(t, err, ErrMalformed)

	_, _, err = DecodeAttributeValue([]TypeIdentifier{{CorType: ElementTypeClass, Name: "Other"}}, []byte{0x01, 0x00, 0x00})
	assert.ErrorIs(t, err, ErrMalformed)
}
