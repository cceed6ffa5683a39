// Package signature decodes ECMA-335 signature blobs (§II.23.2) into
// structural type descriptions.
package signature

import "fmt"

// ElementType is the leading byte of a type signature.
type ElementType uint8

const (
	ElementTypeEnd         ElementType = 0x00
	ElementTypeVoid        ElementType = 0x01
	ElementTypeBoolean     ElementType = 0x02
	ElementTypeChar        ElementType = 0x03
	ElementTypeI1          ElementType = 0x04
	ElementTypeU1          ElementType = 0x05
	ElementTypeI2          ElementType = 0x06
	ElementTypeU2          ElementType = 0x07
	ElementTypeI4          ElementType = 0x08
	ElementTypeU4          ElementType = 0x09
	ElementTypeI8          ElementType = 0x0a
	ElementTypeU8          ElementType = 0x0b
	ElementTypeR4          ElementType = 0x0c
	ElementTypeR8          ElementType = 0x0d
	ElementTypeString      ElementType = 0x0e
	ElementTypePtr         ElementType = 0x0f
	ElementTypeByRef       ElementType = 0x10
	ElementTypeValueType   ElementType = 0x11
	ElementTypeClass       ElementType = 0x12
	ElementTypeVar         ElementType = 0x13
	ElementTypeArray       ElementType = 0x14
	ElementTypeGenericInst ElementType = 0x15
	ElementTypeTypedByRef  ElementType = 0x16
	ElementTypeI           ElementType = 0x18
	ElementTypeU           ElementType = 0x19
	ElementTypeFnPtr       ElementType = 0x1b
	ElementTypeObject      ElementType = 0x1c
	ElementTypeSZArray     ElementType = 0x1d
	ElementTypeMVar        ElementType = 0x1e
	ElementTypeCModReqd    ElementType = 0x1f
	ElementTypeCModOpt     ElementType = 0x20
	ElementTypeInternal    ElementType = 0x21
	ElementTypeModifier    ElementType = 0x40
	ElementTypeSentinel    ElementType = 0x41
	ElementTypePinned      ElementType = 0x45

	// Custom attribute blobs only.
	ElementTypeSystemType ElementType = 0x50
	ElementTypeBoxed      ElementType = 0x51
	ElementTypeField      ElementType = 0x53
	ElementTypeProperty   ElementType = 0x54
	ElementTypeEnum       ElementType = 0x55
)

var elementTypeNames = map[ElementType]string{
	ElementTypeEnd:         "END",
	ElementTypeVoid:        "VOID",
	ElementTypeBoolean:     "BOOLEAN",
	ElementTypeChar:        "CHAR",
	ElementTypeI1:          "I1",
	ElementTypeU1:          "U1",
	ElementTypeI2:          "I2",
	ElementTypeU2:          "U2",
	ElementTypeI4:          "I4",
	ElementTypeU4:          "U4",
	ElementTypeI8:          "I8",
	ElementTypeU8:          "U8",
	ElementTypeR4:          "R4",
	ElementTypeR8:          "R8",
	ElementTypeString:      "STRING",
	ElementTypePtr:         "PTR",
	ElementTypeByRef:       "BYREF",
	ElementTypeValueType:   "VALUETYPE",
	ElementTypeClass:       "CLASS",
	ElementTypeVar:         "VAR",
	ElementTypeArray:       "ARRAY",
	ElementTypeGenericInst: "GENERICINST",
	ElementTypeTypedByRef:  "TYPEDBYREF",
	ElementTypeI:           "I",
	ElementTypeU:           "U",
	ElementTypeFnPtr:       "FNPTR",
	ElementTypeObject:      "OBJECT",
	ElementTypeSZArray:     "SZARRAY",
	ElementTypeMVar:        "MVAR",
	ElementTypeCModReqd:    "CMOD_REQD",
	ElementTypeCModOpt:     "CMOD_OPT",
	ElementTypeInternal:    "INTERNAL",
	ElementTypeModifier:    "MODIFIER",
	ElementTypeSentinel:    "SENTINEL",
	ElementTypePinned:      "PINNED",
	ElementTypeSystemType:  "TYPE",
	ElementTypeBoxed:       "BOXED",
	ElementTypeField:       "FIELD",
	ElementTypeProperty:    "PROPERTY",
	ElementTypeEnum:        "ENUM",
}

func (e ElementType) String() string {
	if name, ok := elementTypeNames[e]; ok {
		return name
	}
	return fmt.Sprintf("ElementType(0x%02x)", uint8(e))
}

// IsPrimitive reports whether the tag stands alone, with no further bytes.
func (e ElementType) IsPrimitive() bool {
	switch e {
	case ElementTypeVoid, ElementTypeBoolean, ElementTypeChar,
		ElementTypeI1, ElementTypeU1, ElementTypeI2, ElementTypeU2,
		ElementTypeI4, ElementTypeU4, ElementTypeI8, ElementTypeU8,
		ElementTypeR4, ElementTypeR8, ElementTypeString,
		ElementTypeTypedByRef, ElementTypeI, ElementTypeU, ElementTypeObject:
		return true
	}
	return false
}

// Size returns the fixed width in bytes of a numeric primitive, or 0.
func (e ElementType) Size() int {
	switch e {
	case ElementTypeBoolean, ElementTypeI1, ElementTypeU1:
		return 1
	case ElementTypeChar, ElementTypeI2, ElementTypeU2:
		return 2
	case ElementTypeI4, ElementTypeU4, ElementTypeR4:
		return 4
	case ElementTypeI8, ElementTypeU8, ElementTypeR8:
		return 8
	}
	return 0
}
