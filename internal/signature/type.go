package signature

import (
	"fmt"
	"strings"

	"gowinmd/internal/token"
)

// TypeIdentifier is a recursive structural description of a CLI type. Wrapper
// tags (PTR, BYREF, SZARRAY, ARRAY, PINNED, CMOD_*) hold the wrapped type in
// TypeArgs[0]; GENERICINST holds its arguments; FNPTR holds the return type
// followed by the parameter types.
type TypeIdentifier struct {
	CorType ElementType

	// Name is the display name of a VALUETYPE/CLASS, the generic type of a
	// GENERICINST, or the modifier type of a CMOD. It may be overridden for
	// display without changing CorType.
	Name string

	// Token is the type reference behind Name, when the signature carried one.
	Token token.Token

	TypeArgs []TypeIdentifier

	// GenericParamIndex is the position of a VAR/MVAR parameter.
	GenericParamIndex uint32

	ArrayShape *ArrayShape
}

// ArrayShape holds the ARRAY dimensions. Sizes and LowerBounds may be shorter
// than Rank; missing entries are unspecified.
type ArrayShape struct {
	Rank        uint32
	Sizes       []uint32
	LowerBounds []int32
}

// Primitive returns a TypeIdentifier for a stand-alone element type.
func Primitive(et ElementType) TypeIdentifier {
	return TypeIdentifier{CorType: et}
}

// PointerTo wraps t in a PTR.
func PointerTo(t TypeIdentifier) TypeIdentifier {
	return TypeIdentifier{CorType: ElementTypePtr, TypeArgs: []TypeIdentifier{t}}
}

// Elem returns the wrapped type of a wrapper tag.
func (t TypeIdentifier) Elem() (TypeIdentifier, bool) {
	if len(t.TypeArgs) == 0 {
		return TypeIdentifier{}, false
	}
	switch t.CorType {
	case ElementTypePtr, ElementTypeByRef, ElementTypeSZArray, ElementTypeArray,
		ElementTypePinned, ElementTypeCModOpt, ElementTypeCModReqd:
		return t.TypeArgs[0], true
	}
	return TypeIdentifier{}, false
}

// IsArray reports whether t is an SZARRAY or a general ARRAY.
func (t TypeIdentifier) IsArray() bool {
	return t.CorType == ElementTypeSZArray || t.CorType == ElementTypeArray
}

// StripModifiers returns t with any leading CMOD_OPT/CMOD_REQD wrappers removed.
func (t TypeIdentifier) StripModifiers() TypeIdentifier {
	for (t.CorType == ElementTypeCModOpt || t.CorType == ElementTypeCModReqd) && len(t.TypeArgs) > 0 {
		t = t.TypeArgs[0]
	}
	return t
}

var primitiveNames = map[ElementType]string{
	ElementTypeVoid:       "void",
	ElementTypeBoolean:    "bool",
	ElementTypeChar:       "char",
	ElementTypeI1:         "sbyte",
	ElementTypeU1:         "byte",
	ElementTypeI2:         "short",
	ElementTypeU2:         "ushort",
	ElementTypeI4:         "int",
	ElementTypeU4:         "uint",
	ElementTypeI8:         "long",
	ElementTypeU8:         "ulong",
	ElementTypeR4:         "float",
	ElementTypeR8:         "double",
	ElementTypeString:     "string",
	ElementTypeObject:     "object",
	ElementTypeI:          "nint",
	ElementTypeU:          "nuint",
	ElementTypeTypedByRef: "typedref",
}

func (t TypeIdentifier) String() string {
	switch t.CorType {
	case ElementTypeValueType, ElementTypeClass, ElementTypeCModOpt, ElementTypeCModReqd, ElementTypeGenericInst:
	default:
		// display override
		if t.Name != "" {
			return t.Name
		}
	}
	if name, ok := primitiveNames[t.CorType]; ok {
		return name
	}

	elem := func() string {
		if len(t.TypeArgs) == 0 {
			return "?"
		}
		return t.TypeArgs[0].String()
	}

	switch t.CorType {
	case ElementTypeValueType, ElementTypeClass:
		if t.Name != "" {
			return t.Name
		}
		return t.Token.String()
	case ElementTypePtr:
		return elem() + "*"
	case ElementTypeByRef:
		return elem() + "&"
	case ElementTypeSZArray:
		return elem() + "[]"
	case ElementTypeArray:
		rank := 1
		if t.ArrayShape != nil && t.ArrayShape.Rank > 0 {
			rank = int(t.ArrayShape.Rank)
		}
		return elem() + "[" + strings.Repeat(",", rank-1) + "]"
	case ElementTypePinned:
		return elem() + " pinned"
	case ElementTypeCModOpt:
		return fmt.Sprintf("%s modopt(%s)", elem(), t.Name)
	case ElementTypeCModReqd:
		return fmt.Sprintf("%s modreq(%s)", elem(), t.Name)
	case ElementTypeVar:
		return fmt.Sprintf("!%d", t.GenericParamIndex)
	case ElementTypeMVar:
		return fmt.Sprintf("!!%d", t.GenericParamIndex)
	case ElementTypeGenericInst:
		args := make([]string, len(t.TypeArgs))
		for i, arg := range t.TypeArgs {
			args[i] = arg.String()
		}
		return fmt.Sprintf("%s<%s>", t.Name, strings.Join(args, ", "))
	case ElementTypeFnPtr:
		if len(t.TypeArgs) == 0 {
			return "fnptr"
		}
		args := make([]string, len(t.TypeArgs)-1)
		for i, arg := range t.TypeArgs[1:] {
			args[i] = arg.String()
		}
		return fmt.Sprintf("fnptr %s(%s)", t.TypeArgs[0], strings.Join(args, ", "))
	}
	return t.CorType.String()
}
