package signature

import (
	"gowinmd/internal/token"
)

// Resolver supplies display names for type tokens met while decoding. It is the
// only non-pure dependency of the decoder; a nil Resolver leaves names empty.
type Resolver interface {
	TypeName(t token.Token) (string, bool)
}

func resolveName(res Resolver, t token.Token) string {
	if res == nil || t.IsNil() {
		return ""
	}
	name, _ := res.TypeName(t)
	return name
}

// ParseType decodes one type signature from the start of blob and reports how
// many bytes it occupied.
func ParseType(blob []byte, res Resolver) (TypeIdentifier, int, error) {
	r := NewReader(blob)
	t, err := DecodeType(r, res)
	if err != nil {
		return TypeIdentifier{}, 0, err
	}
	return t, r.Offset(), nil
}

// DecodeType consumes exactly one Type production from r, including every
// nested type, array bound and modifier it carries.
func DecodeType(r *Reader, res Resolver) (TypeIdentifier, error) {
	start := r.Offset()
	b, err := r.ReadU8()
	if err != nil {
		return TypeIdentifier{}, err
	}
	et := ElementType(b)

	if et.IsPrimitive() {
		return Primitive(et), nil
	}

	switch et {
	case ElementTypePtr, ElementTypeByRef, ElementTypeSZArray, ElementTypePinned:
		inner, err := DecodeType(r, res)
		if err != nil {
			return TypeIdentifier{}, err
		}
		return TypeIdentifier{CorType: et, TypeArgs: []TypeIdentifier{inner}}, nil

	case ElementTypeValueType, ElementTypeClass:
		tok, err := r.ReadCompressedToken()
		if err != nil {
			return TypeIdentifier{}, err
		}
		return TypeIdentifier{CorType: et, Name: resolveName(res, tok), Token: tok}, nil

	case ElementTypeCModOpt, ElementTypeCModReqd:
		modifier, err := r.ReadCompressedToken()
		if err != nil {
			return TypeIdentifier{}, err
		}
		modified, err := DecodeType(r, res)
		if err != nil {
			return TypeIdentifier{}, err
		}
		return TypeIdentifier{
			CorType:  et,
			Name:     resolveName(res, modifier),
			Token:    modifier,
			TypeArgs: []TypeIdentifier{modified},
		}, nil

	case ElementTypeVar, ElementTypeMVar:
		index, err := r.ReadCompressed()
		if err != nil {
			return TypeIdentifier{}, err
		}
		return TypeIdentifier{CorType: et, GenericParamIndex: index}, nil

	case ElementTypeArray:
		return decodeArray(r, res)

	case ElementTypeGenericInst:
		return decodeGenericInst(r, res)

	case ElementTypeFnPtr:
		sig, err := readMethodSignature(r, res)
		if err != nil {
			return TypeIdentifier{}, err
		}
		args := make([]TypeIdentifier, 0, len(sig.Params)+1)
		args = append(args, sig.ReturnType)
		args = append(args, sig.Params...)
		return TypeIdentifier{CorType: et, TypeArgs: args}, nil
	}

	return TypeIdentifier{}, errAt(start, b, "unrecognised element type %s", et)
}

// ARRAY Type ArrayShape: rank, then NumSizes sizes, then NumLoBounds signed
// lower bounds. All of it is consumed even though only the rank is rendered.
func decodeArray(r *Reader, res Resolver) (TypeIdentifier, error) {
	elem, err := DecodeType(r, res)
	if err != nil {
		return TypeIdentifier{}, err
	}

	shape := &ArrayShape{}
	if shape.Rank, err = r.ReadCompressed(); err != nil {
		return TypeIdentifier{}, err
	}

	numSizes, err := r.ReadCompressed()
	if err != nil {
		return TypeIdentifier{}, err
	}
	for i := uint32(0); i < numSizes; i++ {
		size, err := r.ReadCompressed()
		if err != nil {
			return TypeIdentifier{}, err
		}
		shape.Sizes = append(shape.Sizes, size)
	}

	numLoBounds, err := r.ReadCompressed()
	if err != nil {
		return TypeIdentifier{}, err
	}
	for i := uint32(0); i < numLoBounds; i++ {
		bound, err := r.ReadCompressedSigned()
		if err != nil {
			return TypeIdentifier{}, err
		}
		shape.LowerBounds = append(shape.LowerBounds, bound)
	}

	return TypeIdentifier{CorType: ElementTypeArray, TypeArgs: []TypeIdentifier{elem}, ArrayShape: shape}, nil
}

// GENERICINST (CLASS|VALUETYPE) TypeDefOrRefOrSpecEncoded GenArgCount Type*
func decodeGenericInst(r *Reader, res Resolver) (TypeIdentifier, error) {
	start := r.Offset()
	kind, err := r.ReadU8()
	if err != nil {
		return TypeIdentifier{}, err
	}
	if ElementType(kind) != ElementTypeClass && ElementType(kind) != ElementTypeValueType {
		return TypeIdentifier{}, errAt(start, kind, "generic instantiation of %s", ElementType(kind))
	}

	generic, err := r.ReadCompressedToken()
	if err != nil {
		return TypeIdentifier{}, err
	}
	count, err := r.ReadCompressed()
	if err != nil {
		return TypeIdentifier{}, err
	}

	args := make([]TypeIdentifier, 0, min(int(count), r.Remaining()))
	for i := uint32(0); i < count; i++ {
		arg, err := DecodeType(r, res)
		if err != nil {
			return TypeIdentifier{}, err
		}
		args = append(args, arg)
	}

	return TypeIdentifier{
		CorType:  ElementTypeGenericInst,
		Name:     resolveName(res, generic),
		Token:    generic,
		TypeArgs: args,
	}, nil
}
