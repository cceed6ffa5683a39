package metadata

import (
	"fmt"
	"sync"

	"gowinmd/internal/signature"
	"gowinmd/internal/token"
)

// Property is a property of a TypeDef with its accessor methods.
type Property struct {
	TokenObject
	*attributes

	class  token.Token
	name   string
	flags  uint32
	sig    []byte
	getter token.Token
	setter token.Token

	typeOnce sync.Once
	typ      signature.TypeIdentifier
	typeErr  error
}

func newProperty(s *Scope, t token.Token) (*Property, error) {
	props, err := s.backend.PropertyProps(t)
	if err != nil {
		return nil, err
	}
	obj := TokenObject{scope: s, token: t}
	return &Property{
		TokenObject: obj,
		attributes:  newAttributes(obj),
		class:       props.Class,
		name:        props.Name,
		flags:       props.Flags,
		sig:         props.Signature,
		getter:      props.Getter,
		setter:      props.Setter,
	}, nil
}

func (p *Property) Name() string { return p.name }

func (p *Property) Flags() uint32 { return p.flags }

func (p *Property) TypeIdentifier() (signature.TypeIdentifier, error) {
	p.typeOnce.Do(func() {
		sig, err := signature.DecodePropertySignature(p.sig, p.scope)
		if err != nil {
			p.typeErr = fmt.Errorf("property %s: %w", p.name, err)
			return
		}
		p.typ = sig.Type
	})
	return p.typ, p.typeErr
}

// Getter returns the get accessor, or nil.
func (p *Property) Getter() (*Method, error) { return p.scope.method(p.getter) }

// Setter returns the set accessor, or nil.
func (p *Property) Setter() (*Method, error) { return p.scope.method(p.setter) }

func (p *Property) Parent() *TypeDef {
	return p.scope.FindTypeDefByToken(p.class)
}
