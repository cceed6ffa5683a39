package metadata

import (
	"gowinmd/internal/signature"
	"gowinmd/internal/token"
)

// ParamAttributes bits, ECMA-335 §II.23.1.13.
const (
	paramIn              = 0x0001
	paramOut             = 0x0002
	paramOptional        = 0x0010
	paramHasDefault      = 0x1000
	paramHasFieldMarshal = 0x2000
)

// Parameter is one parameter of a Method, or its return slot. Its type is
// filled in from the method signature after the Param row is read.
type Parameter struct {
	TokenObject
	*attributes

	method   token.Token
	name     string
	sequence uint32
	flags    uint32
	typ      signature.TypeIdentifier
}

func newParameter(s *Scope, t token.Token) (*Parameter, error) {
	props, err := s.backend.ParamProps(t)
	if err != nil {
		return nil, err
	}
	obj := TokenObject{scope: s, token: t}
	return &Parameter{
		TokenObject: obj,
		attributes:  newAttributes(obj),
		method:      props.Method,
		name:        props.Name,
		sequence:    props.Sequence,
		flags:       props.Flags,
	}, nil
}

// newSyntheticParameter returns a parameter with no Param row behind it.
func newSyntheticParameter(s *Scope, method token.Token, name string, sequence uint32) *Parameter {
	obj := TokenObject{scope: s, token: token.Nil(token.Param)}
	return &Parameter{
		TokenObject: obj,
		attributes:  newAttributes(obj),
		method:      method,
		name:        name,
		sequence:    sequence,
	}
}

func (p *Parameter) Name() string { return p.name }

// Sequence is the 1-based position, or 0 for the return slot.
func (p *Parameter) Sequence() uint32 { return p.sequence }

func (p *Parameter) Flags() uint32 { return p.flags }

func (p *Parameter) IsIn() bool            { return p.flags&paramIn != 0 }
func (p *Parameter) IsOut() bool           { return p.flags&paramOut != 0 }
func (p *Parameter) IsOptional() bool      { return p.flags&paramOptional != 0 }
func (p *Parameter) HasDefault() bool      { return p.flags&paramHasDefault != 0 }
func (p *Parameter) HasFieldMarshal() bool { return p.flags&paramHasFieldMarshal != 0 }
func (p *Parameter) IsSynthesized() bool   { return p.token.IsNil() }

func (p *Parameter) MethodToken() token.Token { return p.method }

func (p *Parameter) TypeIdentifier() signature.TypeIdentifier { return p.typ }

// Parent returns the owning method, looked up again through the Scope.
func (p *Parameter) Parent() (*Method, error) {
	return p.scope.method(p.method)
}

func (p *Parameter) String() string {
	if p.name == "" {
		return p.typ.String()
	}
	return p.typ.String() + " " + p.name
}
