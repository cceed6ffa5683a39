package signature

// CallingConvention is the first byte of a method, property or field signature.
type CallingConvention uint8

const (
	CallConvDefault      CallingConvention = 0x00
	CallConvC            CallingConvention = 0x01
	CallConvStdCall      CallingConvention = 0x02
	CallConvThisCall     CallingConvention = 0x03
	CallConvFastCall     CallingConvention = 0x04
	CallConvVarArg       CallingConvention = 0x05
	CallConvField        CallingConvention = 0x06
	CallConvLocalSig     CallingConvention = 0x07
	CallConvProperty     CallingConvention = 0x08
	CallConvUnmanaged    CallingConvention = 0x09
	CallConvGenericInst  CallingConvention = 0x0a
	CallConvNativeVarArg CallingConvention = 0x0b

	CallConvGeneric      CallingConvention = 0x10
	CallConvHasThis      CallingConvention = 0x20
	CallConvExplicitThis CallingConvention = 0x40
)

func (c CallingConvention) Kind() CallingConvention { return c & 0x0f }
func (c CallingConvention) HasThis() bool           { return c&CallConvHasThis != 0 }
func (c CallingConvention) ExplicitThis() bool      { return c&CallConvExplicitThis != 0 }
func (c CallingConvention) IsGeneric() bool         { return c&CallConvGeneric != 0 }
func (c CallingConvention) IsProperty() bool        { return c.Kind() == CallConvProperty }
func (c CallingConvention) IsField() bool           { return c.Kind() == CallConvField }

// MethodSignature is a decoded MethodDefSig/MethodRefSig.
type MethodSignature struct {
	CallingConvention CallingConvention
	GenericParamCount uint32
	ReturnType        TypeIdentifier
	Params            []TypeIdentifier

	// VarArgIndex is the index in Params of the first argument after a
	// SENTINEL, or -1.
	VarArgIndex int
}

// MethodHeader is the part of a method signature before the return type.
type MethodHeader struct {
	CallingConvention CallingConvention
	GenericParamCount uint32
	ParamCount        uint32
}

// ReadMethodHeader consumes the calling convention, the optional generic
// parameter count and the parameter count.
func ReadMethodHeader(r *Reader) (MethodHeader, error) {
	var h MethodHeader

	start := r.Offset()
	cc, err := r.ReadU8()
	if err != nil {
		return h, err
	}
	h.CallingConvention = CallingConvention(cc)
	if h.CallingConvention.IsField() || h.CallingConvention.Kind() == CallConvLocalSig {
		return h, errAt(start, cc, "not a method signature")
	}

	if h.CallingConvention.IsGeneric() {
		if h.GenericParamCount, err = r.ReadCompressed(); err != nil {
			return h, err
		}
	}
	if h.ParamCount, err = r.ReadCompressed(); err != nil {
		return h, err
	}
	return h, nil
}

// DecodeMethodSignature decodes a complete method signature blob.
func DecodeMethodSignature(blob []byte, res Resolver) (MethodSignature, error) {
	return readMethodSignature(NewReader(blob), res)
}

func readMethodSignature(r *Reader, res Resolver) (MethodSignature, error) {
	h, err := ReadMethodHeader(r)
	if err != nil {
		return MethodSignature{}, err
	}

	sig := MethodSignature{
		CallingConvention: h.CallingConvention,
		GenericParamCount: h.GenericParamCount,
		VarArgIndex:       -1,
	}
	if sig.ReturnType, err = DecodeType(r, res); err != nil {
		return MethodSignature{}, err
	}

	sig.Params = make([]TypeIdentifier, 0, min(int(h.ParamCount), r.Remaining()))
	for i := uint32(0); i < h.ParamCount; i++ {
		if b, err := r.PeekU8(); err == nil && ElementType(b) == ElementTypeSentinel {
			r.offset++
			sig.VarArgIndex = int(i)
		}
		param, err := DecodeType(r, res)
		if err != nil {
			return MethodSignature{}, err
		}
		sig.Params = append(sig.Params, param)
	}
	return sig, nil
}

// PropertySignature is a decoded PropertySig.
type PropertySignature struct {
	HasThis bool
	Type    TypeIdentifier
	Params  []TypeIdentifier
}

// DecodePropertySignature decodes PROPERTY [HASTHIS] ParamCount Type Param*.
func DecodePropertySignature(blob []byte, res Resolver) (PropertySignature, error) {
	r := NewReader(blob)

	cc, err := r.ReadU8()
	if err != nil {
		return PropertySignature{}, err
	}
	if !CallingConvention(cc).IsProperty() {
		return PropertySignature{}, errAt(0, cc, "not a property signature")
	}

	count, err := r.ReadCompressed()
	if err != nil {
		return PropertySignature{}, err
	}

	sig := PropertySignature{HasThis: CallingConvention(cc).HasThis()}
	if sig.Type, err = DecodeType(r, res); err != nil {
		return PropertySignature{}, err
	}
	for i := uint32(0); i < count; i++ {
		param, err := DecodeType(r, res)
		if err != nil {
			return PropertySignature{}, err
		}
		sig.Params = append(sig.Params, param)
	}
	return sig, nil
}

// DecodeFieldSignature decodes FIELD CustomMod* Type.
func DecodeFieldSignature(blob []byte, res Resolver) (TypeIdentifier, error) {
	r := NewReader(blob)

	cc, err := r.ReadU8()
	if err != nil {
		return TypeIdentifier{}, err
	}
	if !CallingConvention(cc).IsField() {
		return TypeIdentifier{}, errAt(0, cc, "not a field signature")
	}
	return DecodeType(r, res)
}
