package metadata

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"gowinmd/internal/backend"
	"gowinmd/internal/signature"
	"gowinmd/internal/token"
)

// MethodAttributes bits, ECMA-335 §II.23.1.10.
const (
	methodMemberAccessMask = 0x0007
	methodStatic           = 0x0010
	methodFinal            = 0x0020
	methodVirtual          = 0x0040
	methodHideBySig        = 0x0080
	methodVtableLayoutMask = 0x0100
	methodAbstract         = 0x0400
	methodSpecialName      = 0x0800
	methodPInvokeImpl      = 0x2000
)

type MemberAccess uint32

const (
	CompilerControlled MemberAccess = iota
	Private
	FamANDAssem
	Assembly
	Family
	FamORAssem
	PublicAccess
)

var memberAccessNames = [...]string{
	"CompilerControlled", "Private", "FamANDAssem", "Assembly", "Family", "FamORAssem", "Public",
}

func (a MemberAccess) String() string {
	if int(a) < len(memberAccessNames) {
		return memberAccessNames[a]
	}
	return fmt.Sprintf("MemberAccess(%d)", uint32(a))
}

type VtableLayout uint32

const (
	ReuseSlot VtableLayout = 0x0000
	NewSlot   VtableLayout = 0x0100
)

func (l VtableLayout) String() string {
	switch l {
	case ReuseSlot:
		return "ReuseSlot"
	case NewSlot:
		return "NewSlot"
	}
	return fmt.Sprintf("VtableLayout(%#x)", uint32(l))
}

// Method is a MethodDef. Its parameters are assembled from the Param rows and
// the signature blob on first use.
type Method struct {
	TokenObject
	*attributes

	class     token.Token
	name      string
	flags     uint32
	implFlags uint32
	sig       []byte

	assembleOnce sync.Once
	params       []*Parameter
	ret          *Parameter
	assembleErr  error

	pinvokeOnce sync.Once
	pinvoke     backend.PInvokeProps
	hasPInvoke  bool
	dllImport   string
	pinvokeErr  error
}

func newMethod(s *Scope, t token.Token) (*Method, error) {
	props, err := s.backend.MethodProps(t)
	if err != nil {
		return nil, err
	}
	obj := TokenObject{scope: s, token: t}
	return &Method{
		TokenObject: obj,
		attributes:  newAttributes(obj),
		class:       props.Class,
		name:        props.Name,
		flags:       props.Flags,
		implFlags:   props.ImplFlags,
		sig:         props.Signature,
	}, nil
}

func (m *Method) Name() string { return m.name }

func (m *Method) Flags() uint32 { return m.flags }

func (m *Method) ImplFlags() uint32 { return m.implFlags }

// Signature returns the raw signature blob.
func (m *Method) Signature() []byte { return m.sig }

func (m *Method) CallingConvention() (signature.CallingConvention, error) {
	b, err := signature.NewReader(m.sig).PeekU8()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", m.name, err)
	}
	return signature.CallingConvention(b), nil
}

// Parent returns the declaring TypeDef.
func (m *Method) Parent() *TypeDef {
	return m.scope.FindTypeDefByToken(m.class)
}

func (m *Method) IsStatic() bool      { return m.flags&methodStatic != 0 }
func (m *Method) IsFinal() bool       { return m.flags&methodFinal != 0 }
func (m *Method) IsVirtual() bool     { return m.flags&methodVirtual != 0 }
func (m *Method) IsHideBySig() bool   { return m.flags&methodHideBySig != 0 }
func (m *Method) IsAbstract() bool    { return m.flags&methodAbstract != 0 }
func (m *Method) IsSpecialName() bool { return m.flags&methodSpecialName != 0 }
func (m *Method) IsPInvoke() bool     { return m.flags&methodPInvokeImpl != 0 }

func (m *Method) IsGetProperty() bool {
	return m.IsSpecialName() && strings.HasPrefix(m.name, "get_")
}

func (m *Method) IsSetProperty() bool {
	return m.IsSpecialName() && (strings.HasPrefix(m.name, "put_") || strings.HasPrefix(m.name, "set_"))
}

func (m *Method) MemberAccess() (MemberAccess, error) {
	a := MemberAccess(m.flags & methodMemberAccessMask)
	if int(a) >= len(memberAccessNames) {
		return 0, fmt.Errorf("%s member access %d: %w", m.name, uint32(a), ErrUnknownLayout)
	}
	return a, nil
}

func (m *Method) VtableLayout() (VtableLayout, error) {
	l := VtableLayout(m.flags & methodVtableLayoutMask)
	switch l {
	case ReuseSlot, NewSlot:
		return l, nil
	}
	return 0, fmt.Errorf("%s vtable layout %#x: %w", m.name, uint32(l), ErrUnknownLayout)
}

// Parameters returns the visible parameters in declaration order, excluding
// the return slot.
func (m *Method) Parameters() ([]*Parameter, error) {
	m.assembleOnce.Do(m.assemble)
	return m.params, m.assembleErr
}

// ReturnParameter returns the parameter carrying the return type. It is
// synthesized with a nil token when the method has no Param row for it.
func (m *Method) ReturnParameter() (*Parameter, error) {
	m.assembleOnce.Do(m.assemble)
	return m.ret, m.assembleErr
}

func (m *Method) ReturnType() (signature.TypeIdentifier, error) {
	ret, err := m.ReturnParameter()
	if err != nil {
		return signature.TypeIdentifier{}, err
	}
	return ret.typ, nil
}

func (m *Method) loadPInvoke() {
	m.pinvokeOnce.Do(func() {
		props, err := m.scope.backend.PInvokeMap(m.token)
		if errors.Is(err, backend.ErrNotFound) {
			return
		}
		if err != nil {
			m.pinvokeErr = err
			return
		}
		m.pinvoke, m.hasPInvoke = props, true
		m.dllImport, m.pinvokeErr = m.scope.backend.ModuleRefName(props.ModuleRef)
	})
}

// DllImport returns the module a platform-invoke method is imported from, or
// "" when the method has no import.
func (m *Method) DllImport() (string, error) {
	m.loadPInvoke()
	return m.dllImport, m.pinvokeErr
}

// ImportName returns the entry point name of a platform-invoke method.
func (m *Method) ImportName() (string, error) {
	m.loadPInvoke()
	if !m.hasPInvoke {
		return "", m.pinvokeErr
	}
	return m.pinvoke.ImportName, m.pinvokeErr
}

func (m *Method) String() string {
	if td := m.Parent(); td != nil {
		return joinName(td.FullName(), m.name)
	}
	return m.name
}
