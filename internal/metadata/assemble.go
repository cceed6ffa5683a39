package metadata

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"gowinmd/internal/backend"
	"gowinmd/internal/signature"
	"gowinmd/internal/token"
)

const (
	arraySizeParamName  = "__valueSize"
	arrayValueParamName = "value"

	ansiStringType = "Windows.Win32.Foundation.PSTR"
	wideStringType = "Windows.Win32.Foundation.PWSTR"

	// UnmanagedType values of NativeTypeInfoAttribute.
	unmanagedLPStr  = 0x14
	unmanagedLPWStr = 0x15
)

var nativeTypeInfoAttributes = []string{
	"Windows.Win32.Foundation.Metadata.NativeTypeInfoAttribute",
	"Windows.Win32.Interop.NativeTypeInfoAttribute",
}

// assemble merges the Param rows with the types decoded from the signature
// blob. Param rows supply names, sequence and flags; the blob supplies types.
func (m *Method) assemble() {
	params, err := m.paramRows()
	if err != nil {
		m.assembleErr = err
		return
	}

	// Windows Runtime metadata emits a sequence 0 row for the return value;
	// Win32 metadata does not.
	var ret *Parameter
	if len(params) > 0 && params[0].sequence == 0 {
		ret, params = params[0], params[1:]
	} else {
		ret = newSyntheticParameter(m.scope, m.token, "", 0)
	}

	retType, types, err := m.decodeSignature()
	if err != nil {
		m.assembleErr = err
		return
	}
	ret.typ = retType

	i := 0
	for n, t := range types {
		if i >= len(params) {
			params = append(params, newSyntheticParameter(m.scope, m.token, "", uint32(n+1)))
		}
		if base := t.StripModifiers(); base.IsArray() {
			elem, _ := base.Elem()
			size := newSyntheticParameter(m.scope, m.token, arraySizeParamName, params[i].sequence)
			size.typ = signature.PointerTo(signature.Primitive(signature.ElementTypeU4))
			params = slices.Insert(params, i, size)

			value := params[i+1]
			value.name = arrayValueParamName
			value.typ = signature.PointerTo(elem)
			i += 2
			continue
		}
		params[i].typ = t
		i++
	}
	if i < len(params) {
		m.scope.log.Debug("param rows without signature types",
			zap.Stringer("method", m.token), zap.Int("extra", len(params)-i))
		params = params[:i]
	}

	for _, p := range params {
		if err := p.applyNativeTypeInfo(); err != nil {
			m.assembleErr = fmt.Errorf("%s parameter %q: %w", m.name, p.name, err)
			return
		}
	}

	m.params, m.ret = params, ret
}

// paramRows reads the Param rows of the method ordered by sequence.
func (m *Method) paramRows() ([]*Parameter, error) {
	params, err := collect(
		func() (backend.Enumerator, error) { return m.scope.backend.EnumParams(m.token) },
		func(t token.Token) (*Parameter, error) { return newParameter(m.scope, t) },
	)
	if err != nil {
		return nil, fmt.Errorf("%s params: %w", m.name, err)
	}
	slices.SortStableFunc(params, func(a, b *Parameter) int {
		return int(a.sequence) - int(b.sequence)
	})
	return params, nil
}

// decodeSignature returns the return type and the logical parameter types.
// Property-shaped signatures carry a single type: the getter returns it and
// the setter takes it.
func (m *Method) decodeSignature() (signature.TypeIdentifier, []signature.TypeIdentifier, error) {
	cc, err := m.CallingConvention()
	if err != nil {
		return signature.TypeIdentifier{}, nil, err
	}

	if cc.IsProperty() {
		sig, err := signature.DecodePropertySignature(m.sig, m.scope)
		if err != nil {
			return signature.TypeIdentifier{}, nil, fmt.Errorf("%s: %w", m.name, err)
		}
		if m.IsSetProperty() {
			return signature.Primitive(signature.ElementTypeVoid), append(sig.Params, sig.Type), nil
		}
		return sig.Type, sig.Params, nil
	}

	sig, err := signature.DecodeMethodSignature(m.sig, m.scope)
	if err != nil {
		return signature.TypeIdentifier{}, nil, fmt.Errorf("%s: %w", m.name, err)
	}
	return sig.ReturnType, sig.Params, nil
}

// applyNativeTypeInfo renames string pointer parameters marked as ANSI or
// Unicode strings. Only the display name changes.
func (p *Parameter) applyNativeTypeInfo() error {
	ca, err := p.findAnyAttribute(nativeTypeInfoAttributes...)
	if err != nil || ca == nil {
		return err
	}
	args, err := ca.Parameters()
	if err != nil || len(args) == 0 {
		return err
	}
	v, ok := args[0].AsInt()
	if !ok {
		return nil
	}
	switch v {
	case unmanagedLPStr:
		p.typ.Name = ansiStringType
	case unmanagedLPWStr:
		p.typ.Name = wideStringType
	}
	return nil
}
