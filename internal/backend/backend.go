// Package backend defines the token-oriented metadata store the object graph is
// built on, together with an in-memory implementation and a file implementation
// over github.com/microsoft/go-winmd.
package backend

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"gowinmd/internal/token"
)

var (
	// ErrFailure matches every error reported by a backend.
	ErrFailure = errors.New("backend: failure")

	// ErrNotFound is the cause when a token does not name a row.
	ErrNotFound = errors.New("backend: token not found")

	// ErrClosed is the cause when a backend is used after Close.
	ErrClosed = errors.New("backend: closed")
)

// Error records the operation and token a backend call failed on.
type Error struct {
	Op    string
	Token token.Token
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend: %s %s: %v", e.Op, e.Token, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrFailure }

func fail(op string, t token.Token, err error) *Error {
	return &Error{Op: op, Token: t, Err: err}
}

type ScopeProps struct {
	Name    string
	GUID    uuid.UUID
	Version string
}

type TypeDefProps struct {
	Name      string
	Namespace string
	Flags     uint32
	Extends   token.Token
}

type TypeRefProps struct {
	ResolutionScope token.Token
	Name            string
	Namespace       string
}

type MethodProps struct {
	Class     token.Token
	Name      string
	Flags     uint32
	ImplFlags uint32
	Signature []byte
	RVA       uint32
}

type ParamProps struct {
	Method   token.Token
	Name     string
	Sequence uint32
	Flags    uint32
}

type FieldProps struct {
	Class     token.Token
	Name      string
	Flags     uint32
	Signature []byte
}

type MemberRefProps struct {
	Parent    token.Token
	Name      string
	Signature []byte
}

type CustomAttributeProps struct {
	Parent      token.Token
	Constructor token.Token // MethodDef or MemberRef
	Value       []byte
}

type PropertyProps struct {
	Class     token.Token
	Name      string
	Flags     uint32
	Signature []byte
	Getter    token.Token
	Setter    token.Token
}

type EventProps struct {
	Class     token.Token
	Name      string
	Flags     uint32
	EventType token.Token
	AddOn     token.Token
	RemoveOn  token.Token
}

type InterfaceImplProps struct {
	Class     token.Token
	Interface token.Token
}

type PInvokeProps struct {
	Flags      uint32
	ImportName string
	ModuleRef  token.Token
}

type AssemblyRefProps struct {
	Name    string
	Version string
}

// Backend resolves tokens to raw row properties and enumerates token
// collections. Implementations are not safe for concurrent use.
type Backend interface {
	io.Closer

	ScopeProps() (ScopeProps, error)

	// IsValidToken reports whether t names an existing row.
	IsValidToken(t token.Token) bool

	// IsGlobal reports whether a TypeDef is the module type, or a method or
	// field is declared on it.
	IsGlobal(t token.Token) (bool, error)

	EnumTypeDefs() (Enumerator, error)
	EnumMethods(typeDef token.Token) (Enumerator, error)
	EnumFields(typeDef token.Token) (Enumerator, error)
	EnumProperties(typeDef token.Token) (Enumerator, error)
	EnumEvents(typeDef token.Token) (Enumerator, error)
	EnumInterfaceImpls(typeDef token.Token) (Enumerator, error)
	EnumParams(method token.Token) (Enumerator, error)
	EnumCustomAttributes(parent token.Token) (Enumerator, error)
	EnumModuleRefs() (Enumerator, error)
	EnumAssemblyRefs() (Enumerator, error)
	EnumUserStrings() (Enumerator, error)

	TypeDefProps(t token.Token) (TypeDefProps, error)
	TypeRefProps(t token.Token) (TypeRefProps, error)
	MethodProps(t token.Token) (MethodProps, error)
	ParamProps(t token.Token) (ParamProps, error)
	FieldProps(t token.Token) (FieldProps, error)
	MemberRefProps(t token.Token) (MemberRefProps, error)
	CustomAttributeProps(t token.Token) (CustomAttributeProps, error)
	PropertyProps(t token.Token) (PropertyProps, error)
	EventProps(t token.Token) (EventProps, error)
	InterfaceImplProps(t token.Token) (InterfaceImplProps, error)
	ModuleRefName(t token.Token) (string, error)
	AssemblyRefProps(t token.Token) (AssemblyRefProps, error)
	UserString(t token.Token) (string, error)

	// PInvokeMap returns the import of a method; the cause is ErrNotFound when
	// the method has none.
	PInvokeMap(method token.Token) (PInvokeProps, error)

	// EnclosingClass returns the declaring type of a nested TypeDef, or a nil
	// token.
	EnclosingClass(typeDef token.Token) (token.Token, error)
}
