package signature

import "fmt"

// systemType is the only CLASS a custom attribute constructor may take besides
// object and string.
const systemType = "System.Type"

// AttributeValue is one decoded custom attribute argument. Value holds bool,
// rune, int8-int64, uint8-uint64, float32, float64, string, []AttributeValue,
// or nil for a null string or array.
type AttributeValue struct {
	Type  TypeIdentifier
	Value any
}

// AsString returns the value when it is a non-null string.
func (v AttributeValue) AsString() (string, bool) {
	s, ok := v.Value.(string)
	return s, ok
}

// AsInt returns the value widened to int64 when it is an integer or enum.
func (v AttributeValue) AsInt() (int64, bool) {
	switch n := v.Value.(type) {
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	}
	return 0, false
}

// NamedArgument is a field or property assignment trailing the fixed arguments.
type NamedArgument struct {
	IsField bool
	Name    string
	AttributeValue
}

// DecodeAttributeValue decodes a custom attribute value blob against the
// constructor's parameter types. Enum arguments are read as 32-bit values,
// since the blob does not carry their underlying type.
func DecodeAttributeValue(params []TypeIdentifier, blob []byte) ([]AttributeValue, []NamedArgument, error) {
	r := NewReader(blob)

	prolog, err := r.ReadU16()
	if err != nil {
		return nil, nil, err
	}
	if prolog != 0x0001 {
		return nil, nil, &Error{Offset: 0, Message: fmt.Sprintf("bad custom attribute prolog 0x%04x", prolog)}
	}

	fixed := make([]AttributeValue, 0, len(params))
	for _, p := range params {
		v, err := readAttributeArg(r, p.StripModifiers())
		if err != nil {
			return nil, nil, err
		}
		fixed = append(fixed, v)
	}

	if r.Remaining() == 0 {
		return fixed, nil, nil
	}

	count, err := r.ReadU16()
	if err != nil {
		return nil, nil, err
	}
	named := make([]NamedArgument, 0, min(int(count), r.Remaining()))
	for i := uint16(0); i < count; i++ {
		start := r.Offset()
		kind, err := r.ReadU8()
		if err != nil {
			return nil, nil, err
		}
		if ElementType(kind) != ElementTypeField && ElementType(kind) != ElementTypeProperty {
			return nil, nil, errAt(start, kind, "named argument is neither field nor property")
		}

		typ, err := readFieldOrPropType(r)
		if err != nil {
			return nil, nil, err
		}
		name, _, err := r.ReadSerString()
		if err != nil {
			return nil, nil, err
		}
		v, err := readAttributeArg(r, typ)
		if err != nil {
			return nil, nil, err
		}
		named = append(named, NamedArgument{IsField: ElementType(kind) == ElementTypeField, Name: name, AttributeValue: v})
	}
	return fixed, named, nil
}

// FieldOrPropType: a primitive, STRING, TYPE, BOXED, SZARRAY of one of those,
// or ENUM followed by the enum's type name.
func readFieldOrPropType(r *Reader) (TypeIdentifier, error) {
	start := r.Offset()
	b, err := r.ReadU8()
	if err != nil {
		return TypeIdentifier{}, err
	}

	et := ElementType(b)
	switch {
	case et.Size() > 0 || et == ElementTypeString || et == ElementTypeSystemType || et == ElementTypeBoxed:
		return Primitive(et), nil
	case et == ElementTypeSZArray:
		elem, err := readFieldOrPropType(r)
		if err != nil {
			return TypeIdentifier{}, err
		}
		return TypeIdentifier{CorType: et, TypeArgs: []TypeIdentifier{elem}}, nil
	case et == ElementTypeEnum:
		name, _, err := r.ReadSerString()
		if err != nil {
			return TypeIdentifier{}, err
		}
		return TypeIdentifier{CorType: et, Name: name}, nil
	}
	return TypeIdentifier{}, errAt(start, b, "invalid custom attribute argument type %s", et)
}

func readAttributeArg(r *Reader, t TypeIdentifier) (AttributeValue, error) {
	v := AttributeValue{Type: t}
	var err error

	switch t.CorType {
	case ElementTypeBoolean:
		var b uint8
		b, err = r.ReadU8()
		v.Value = b != 0
	case ElementTypeChar:
		var c uint16
		c, err = r.ReadU16()
		v.Value = rune(c)
	case ElementTypeI1:
		var n uint8
		n, err = r.ReadU8()
		v.Value = int8(n)
	case ElementTypeU1:
		v.Value, err = r.ReadU8()
	case ElementTypeI2:
		var n uint16
		n, err = r.ReadU16()
		v.Value = int16(n)
	case ElementTypeU2:
		v.Value, err = r.ReadU16()
	case ElementTypeI4:
		var n uint32
		n, err = r.ReadU32()
		v.Value = int32(n)
	case ElementTypeU4:
		v.Value, err = r.ReadU32()
	case ElementTypeI8:
		var n uint64
		n, err = r.ReadU64()
		v.Value = int64(n)
	case ElementTypeU8:
		v.Value, err = r.ReadU64()
	case ElementTypeR4:
		v.Value, err = r.ReadF32()
	case ElementTypeR8:
		v.Value, err = r.ReadF64()

	case ElementTypeString, ElementTypeSystemType:
		err = readSerStringValue(r, &v)

	case ElementTypeClass:
		if t.Name != systemType {
			return v, errAt(r.Offset(), byte(t.CorType), "unsupported custom attribute class argument %q", t.Name)
		}
		err = readSerStringValue(r, &v)

	case ElementTypeValueType, ElementTypeEnum:
		var n uint32
		n, err = r.ReadU32()
		v.Value = int32(n)

	case ElementTypeObject, ElementTypeBoxed:
		boxed, err := readFieldOrPropType(r)
		if err != nil {
			return v, err
		}
		return readAttributeArg(r, boxed)

	case ElementTypeSZArray:
		return readAttributeArray(r, t)

	default:
		return v, errAt(r.Offset(), byte(t.CorType), "unsupported custom attribute argument type %s", t.CorType)
	}
	return v, err
}

func readSerStringValue(r *Reader, v *AttributeValue) error {
	s, ok, err := r.ReadSerString()
	if err != nil {
		return err
	}
	if ok {
		v.Value = s
	}
	return nil
}

func readAttributeArray(r *Reader, t TypeIdentifier) (AttributeValue, error) {
	v := AttributeValue{Type: t}

	count, err := r.ReadU32()
	if err != nil {
		return v, err
	}
	if count == 0xffffffff {
		return v, nil
	}

	elem, _ := t.Elem()
	items := make([]AttributeValue, 0, min(int(count), r.Remaining()))
	for i := uint32(0); i < count; i++ {
		item, err := readAttributeArg(r, elem)
		if err != nil {
			return v, err
		}
		items = append(items, item)
	}
	v.Value = items
	return v, nil
}
