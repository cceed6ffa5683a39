package metadata

import (
	"fmt"
	"sync"

	"gowinmd/internal/signature"
	"gowinmd/internal/token"
)

// FieldAttributes bits, ECMA-335 §II.23.1.5.
const (
	fieldStatic     = 0x0010
	fieldInitOnly   = 0x0020
	fieldLiteral    = 0x0040
	fieldHasDefault = 0x8000
)

// Field is a field of a TypeDef; its type is decoded on first use.
type Field struct {
	TokenObject
	*attributes

	class token.Token
	name  string
	flags uint32
	sig   []byte

	typeOnce sync.Once
	typ      signature.TypeIdentifier
	typeErr  error
}

func newField(s *Scope, t token.Token) (*Field, error) {
	props, err := s.backend.FieldProps(t)
	if err != nil {
		return nil, err
	}
	obj := TokenObject{scope: s, token: t}
	return &Field{
		TokenObject: obj,
		attributes:  newAttributes(obj),
		class:       props.Class,
		name:        props.Name,
		flags:       props.Flags,
		sig:         props.Signature,
	}, nil
}

func (f *Field) Name() string { return f.name }

func (f *Field) Flags() uint32 { return f.flags }

func (f *Field) IsStatic() bool   { return f.flags&fieldStatic != 0 }
func (f *Field) IsInitOnly() bool { return f.flags&fieldInitOnly != 0 }
func (f *Field) IsLiteral() bool  { return f.flags&fieldLiteral != 0 }
func (f *Field) HasDefault() bool { return f.flags&fieldHasDefault != 0 }

func (f *Field) TypeIdentifier() (signature.TypeIdentifier, error) {
	f.typeOnce.Do(func() {
		f.typ, f.typeErr = signature.DecodeFieldSignature(f.sig, f.scope)
		if f.typeErr != nil {
			f.typeErr = fmt.Errorf("field %s: %w", f.name, f.typeErr)
		}
	})
	return f.typ, f.typeErr
}

// Parent returns the declaring TypeDef.
func (f *Field) Parent() *TypeDef {
	return f.scope.FindTypeDefByToken(f.class)
}
