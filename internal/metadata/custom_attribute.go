package metadata

import (
	"fmt"
	"sync"

	"gowinmd/internal/signature"
	"gowinmd/internal/token"
)

// CustomAttribute is one attribute row. Its arguments are decoded on first use.
type CustomAttribute struct {
	TokenObject

	parent      token.Token
	constructor token.Token
	name        string
	ctorSig     []byte
	value       []byte

	decodeOnce sync.Once
	params     []signature.AttributeValue
	named      []signature.NamedArgument
	decodeErr  error
}

func newCustomAttribute(s *Scope, t token.Token) (*CustomAttribute, error) {
	props, err := s.backend.CustomAttributeProps(t)
	if err != nil {
		return nil, err
	}
	name, sig, err := s.constructor(props.Constructor)
	if err != nil {
		return nil, fmt.Errorf("attribute %s: %w", t, err)
	}
	return &CustomAttribute{
		TokenObject: TokenObject{scope: s, token: t},
		parent:      props.Parent,
		constructor: props.Constructor,
		name:        name,
		ctorSig:     sig,
		value:       props.Value,
	}, nil
}

// Name is the full name of the attribute type.
func (ca *CustomAttribute) Name() string { return ca.name }

func (ca *CustomAttribute) Constructor() token.Token { return ca.constructor }

// Parent is the token of the decorated object.
func (ca *CustomAttribute) Parent() token.Token { return ca.parent }

// Value is the raw argument blob.
func (ca *CustomAttribute) Value() []byte { return ca.value }

func (ca *CustomAttribute) decode() {
	ca.decodeOnce.Do(func() {
		ctor, err := signature.DecodeMethodSignature(ca.ctorSig, ca.scope)
		if err != nil {
			ca.decodeErr = fmt.Errorf("%s constructor: %w", ca.name, err)
			return
		}
		ca.params, ca.named, err = signature.DecodeAttributeValue(ctor.Params, ca.value)
		if err != nil {
			ca.decodeErr = fmt.Errorf("%s value: %w", ca.name, err)
		}
	})
}

// Parameters returns the decoded constructor arguments.
func (ca *CustomAttribute) Parameters() ([]signature.AttributeValue, error) {
	ca.decode()
	return ca.params, ca.decodeErr
}

func (ca *CustomAttribute) NamedArguments() ([]signature.NamedArgument, error) {
	ca.decode()
	return ca.named, ca.decodeErr
}
