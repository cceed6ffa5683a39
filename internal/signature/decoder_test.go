package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gowinmd/internal/token"
)

type nameMap map[token.Token]string

func (m nameMap) TypeName(t token.Token) (string, bool) {
	name, ok := m[t]
	return name, ok
}

var (
	hwnd      = token.New(token.TypeRef, 1)
	iterable  = token.New(token.TypeRef, 2)
	isConst   = token.New(token.TypeRef, 3)
	localType = token.New(token.TypeDef, 4)

	names = nameMap{
		hwnd:      "Windows.Win32.Foundation.HWND",
		iterable:  "Windows.Foundation.Collections.IIterable`1",
		isConst:   "System.Runtime.CompilerServices.IsConst",
		localType: "Sample.Local",
	}
)

// hwnd is TypeRef row 1: (1 << 2) | 1.
const hwndCoded = 0x05

func TestParsePrimitives(t *testing.T) {
	for _, et := range []ElementType{
		ElementTypeVoid, ElementTypeBoolean, ElementTypeChar,
		ElementTypeI1, ElementTypeU1, ElementTypeI2, ElementTypeU2,
		ElementTypeI4, ElementTypeU4, ElementTypeI8, ElementTypeU8,
		ElementTypeR4, ElementTypeR8, ElementTypeString, ElementTypeObject,
		ElementTypeI, ElementTypeU, ElementTypeTypedByRef,
	} {
		t.Run(et.String(), func(t *testing.T) {
			got, n, err := ParseType([]byte{byte(et), 0xaa}, nil)
			require.NoError(t, err)
			assert.Equal(t, Primitive(et), got)
			assert.Equal(t, 1, n)
		})
	}
}

func TestParseSZArrayOfI4(t *testing.T) {
	got, n, err := ParseType([]byte{0x1d, 0x08, 0x08}, nil)
	require.NoError(t, err)

	assert.Equal(t, ElementTypeSZArray, got.CorType)
	require.Len(t, got.TypeArgs, 1)
	assert.Equal(t, ElementTypeI4, got.TypeArgs[0].CorType)
	assert.Equal(t, 2, n)
	assert.Equal(t, "int[]", got.String())
}

func TestParsePointerToValueType(t *testing.T) {
	got, n, err := ParseType([]byte{0x0f, 0x11, hwndCoded}, names)
	require.NoError(t, err)

	assert.Equal(t, 3, n)
	assert.Equal(t, ElementTypePtr, got.CorType)
	inner := got.TypeArgs[0]
	assert.Equal(t, ElementTypeValueType, inner.CorType)
	assert.Equal(t, hwnd, inner.Token)
	assert.Equal(t, "Windows.Win32.Foundation.HWND", inner.Name)
	assert.Equal(t, "Windows.Win32.Foundation.HWND*", got.String())
}

func TestParseClassWithoutResolver(t *testing.T) {
	got, n, err := ParseType([]byte{0x12, 0x10}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, localType, got.Token)
	assert.Empty(t, got.Name)
}

func TestParseGenericInst(t *testing.T) {
	// GENERICINST CLASS IIterable`1 argc=2 I4 STRING, then a trailing byte.
	blob := []byte{0x15, 0x12, 0x09, 0x02, 0x08, 0x0e, 0x01}

	got, n, err := ParseType(blob, names)
	require.NoError(t, err)

	assert.Equal(t, 6, n)
	assert.Equal(t, ElementTypeGenericInst, got.CorType)
	assert.Equal(t, iterable, got.Token)
	require.Len(t, got.TypeArgs, 2)
	assert.Equal(t, ElementTypeI4, got.TypeArgs[0].CorType)
	assert.Equal(t, ElementTypeString, got.TypeArgs[1].CorType)
	assert.Equal(t, "Windows.Foundation.Collections.IIterable`1<int, string>", got.String())
}

func TestParseGenericInstRejectsNonClassBase(t *testing.T) {
	_, _, err := ParseType([]byte{0x15, 0x08, 0x09, 0x01, 0x08}, nil)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseArrayConsumesShape(t *testing.T) {
	// ARRAY I4 rank=2 numSizes=2 (3, 4) numLoBounds=1 (-1), then VOID.
	blob := []byte{0x14, 0x08, 0x02, 0x02, 0x03, 0x04, 0x01, 0x7f, 0x01}

	got, n, err := ParseType(blob, nil)
	require.NoError(t, err)

	assert.Equal(t, 8, n)
	assert.Equal(t, ElementTypeArray, got.CorType)
	require.NotNil(t, got.ArrayShape)
	assert.Equal(t, uint32(2), got.ArrayShape.Rank)
	assert.Equal(t, []uint32{3, 4}, got.ArrayShape.Sizes)
	assert.Equal(t, []int32{-1}, got.ArrayShape.LowerBounds)
	assert.Equal(t, "int[,]", got.String())
}

func TestParseArrayEmptyBounds(t *testing.T) {
	got, n, err := ParseType([]byte{0x14, 0x05, 0x01, 0x00, 0x00}, nil)
	require.NoError(t, err)

	assert.Equal(t, 5, n)
	assert.Empty(t, got.ArrayShape.Sizes)
	assert.Empty(t, got.ArrayShape.LowerBounds)
}

func TestParseCustomModifier(t *testing.T) {
	// CMOD_REQD IsConst BYREF I4
	blob := []byte{0x1f, 0x0d, 0x10, 0x08}

	got, n, err := ParseType(blob, names)
	require.NoError(t, err)

	assert.Equal(t, 4, n)
	assert.Equal(t, ElementTypeCModReqd, got.CorType)
	assert.Equal(t, "System.Runtime.CompilerServices.IsConst", got.Name)
	stripped := got.StripModifiers()
	assert.Equal(t, ElementTypeByRef, stripped.CorType)
	assert.Equal(t, ElementTypeI4, stripped.TypeArgs[0].CorType)
}

func TestParseGenericParameters(t *testing.T) {
	got, n, err := ParseType([]byte{0x13, 0x01}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "!1", got.String())

	got, _, err = ParseType([]byte{0x1e, 0x00}, nil)
	require.NoError(t, err)
	assert.Equal(t, "!!0", got.String())
}

func TestParseFunctionPointer(t *testing.T) {
	// FNPTR stdcall paramCount=1 ret=I4 param=PTR VOID
	got, n, err := ParseType([]byte{0x1b, 0x02, 0x01, 0x08, 0x0f, 0x01}, nil)
	require.NoError(t, err)

	assert.Equal(t, 6, n)
	require.Len(t, got.TypeArgs, 2)
	assert.Equal(t, "fnptr int(void*)", got.String())
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name   string
		blob   []byte
		offset int
	}{
		{"empty", []byte{}, 0},
		{"unknown tag", []byte{0x17}, 0},
		{"nested unknown tag", []byte{0x0f, 0x0f, 0x42}, 2},
		{"truncated pointer", []byte{0x0f}, 1},
		{"truncated generic args", []byte{0x15, 0x12, 0x09, 0x02, 0x08}, 5},
		{"bad compressed prefix", []byte{0x11, 0xf0}, 1},
		{"reserved token tag", []byte{0x11, 0x07}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseType(tt.blob, nil)
			require.ErrorIs(t, err, ErrMalformed)

			var sigErr *Error
			require.ErrorAs(t, err, &sigErr)
			assert.Equal(t, tt.offset, sigErr.Offset)
		})
	}
}

func TestDecodeTypeAdvancesSharedCursor(t *testing.T) {
	r := NewReader([]byte{0x1d, 0x08, 0x0f, 0x11, hwndCoded, 0x0e})

	first, err := DecodeType(r, names)
	require.NoError(t, err)
	second, err := DecodeType(r, names)
	require.NoError(t, err)
	third, err := DecodeType(r, names)
	require.NoError(t, err)

	assert.Equal(t, "int[]", first.String())
	assert.Equal(t, "Windows.Win32.Foundation.HWND*", second.String())
	assert.Equal(t, "string", third.String())
	assert.Zero(t, r.Remaining())
}
