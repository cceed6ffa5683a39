package metadata

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"gowinmd/internal/backend"
	"gowinmd/internal/signature"
	"gowinmd/internal/token"
)

// Win32 metadata has shipped its attributes under both namespaces.
var (
	supportedArchitectureAttributes = []string{
		"Windows.Win32.Foundation.Metadata.SupportedArchitectureAttribute",
		"Windows.Win32.Interop.SupportedArchitectureAttribute",
	}
	guidAttributes = []string{
		"Windows.Win32.Foundation.Metadata.GuidAttribute",
		"Windows.Win32.Interop.GuidAttribute",
		"Windows.Foundation.Metadata.GuidAttribute",
	}
)

// TypeAttributes bits, ECMA-335 §II.23.1.15.
const (
	typeVisibilityMask   = 0x00000007
	typeLayoutMask       = 0x00000018
	typeInterface        = 0x00000020
	typeAbstract         = 0x00000080
	typeSealed           = 0x00000100
	typeSpecialName      = 0x00000400
	typeImport           = 0x00001000
	typeWindowsRuntime   = 0x00004000
	typeStringFormatMask = 0x00030000
)

type TypeVisibility uint32

const (
	NotPublic TypeVisibility = iota
	Public
	NestedPublic
	NestedPrivate
	NestedFamily
	NestedAssembly
	NestedFamANDAssem
	NestedFamORAssem
)

var typeVisibilityNames = [...]string{
	"NotPublic", "Public", "NestedPublic", "NestedPrivate",
	"NestedFamily", "NestedAssembly", "NestedFamANDAssem", "NestedFamORAssem",
}

func (v TypeVisibility) String() string {
	if int(v) < len(typeVisibilityNames) {
		return typeVisibilityNames[v]
	}
	return fmt.Sprintf("TypeVisibility(%d)", uint32(v))
}

type TypeLayout uint32

const (
	AutoLayout       TypeLayout = 0x00
	SequentialLayout TypeLayout = 0x08
	ExplicitLayout   TypeLayout = 0x10
)

func (l TypeLayout) String() string {
	switch l {
	case AutoLayout:
		return "Auto"
	case SequentialLayout:
		return "Sequential"
	case ExplicitLayout:
		return "Explicit"
	}
	return fmt.Sprintf("TypeLayout(%#x)", uint32(l))
}

type StringFormat uint32

const (
	AnsiStringFormat    StringFormat = 0x00000
	UnicodeStringFormat StringFormat = 0x10000
	AutoStringFormat    StringFormat = 0x20000
	CustomStringFormat  StringFormat = 0x30000
)

// TypeKind classifies a TypeDef by its flags and base type.
type TypeKind int

const (
	ClassKind TypeKind = iota
	InterfaceKind
	StructKind
	EnumKind
	DelegateKind
)

func (k TypeKind) String() string {
	switch k {
	case InterfaceKind:
		return "interface"
	case StructKind:
		return "struct"
	case EnumKind:
		return "enum"
	case DelegateKind:
		return "delegate"
	}
	return "class"
}

// TypeDef is a type declaration within a Scope.
type TypeDef struct {
	TokenObject
	*attributes

	name      string
	namespace string
	flags     uint32
	extends   token.Token

	methodsOnce sync.Once
	methods     []*Method
	methodsErr  error

	fieldsOnce sync.Once
	fields     []*Field
	fieldsErr  error

	propertiesOnce sync.Once
	properties     []*Property
	propertiesErr  error

	eventsOnce sync.Once
	events     []*Event
	eventsErr  error

	archOnce sync.Once
	arch     Architecture
	archErr  error
}

func newTypeDef(s *Scope, t token.Token) (*TypeDef, error) {
	props, err := s.backend.TypeDefProps(t)
	if err != nil {
		return nil, err
	}
	obj := TokenObject{scope: s, token: t}
	return &TypeDef{
		TokenObject: obj,
		attributes:  newAttributes(obj),
		name:        props.Name,
		namespace:   props.Namespace,
		flags:       props.Flags,
		extends:     props.Extends,
	}, nil
}

func (td *TypeDef) Name() string { return td.name }

func (td *TypeDef) Namespace() string { return td.namespace }

func (td *TypeDef) FullName() string { return joinName(td.namespace, td.name) }

func (td *TypeDef) Flags() uint32 { return td.flags }

func (td *TypeDef) String() string { return td.FullName() }

func (td *TypeDef) Visibility() TypeVisibility {
	return TypeVisibility(td.flags & typeVisibilityMask)
}

// Layout returns the field layout. The reserved pattern with both layout bits
// set yields ErrUnknownLayout.
func (td *TypeDef) Layout() (TypeLayout, error) {
	l := TypeLayout(td.flags & typeLayoutMask)
	switch l {
	case AutoLayout, SequentialLayout, ExplicitLayout:
		return l, nil
	}
	return 0, fmt.Errorf("%s layout %#x: %w", td.FullName(), uint32(l), ErrUnknownLayout)
}

func (td *TypeDef) StringFormat() StringFormat {
	return StringFormat(td.flags & typeStringFormatMask)
}

func (td *TypeDef) IsInterface() bool      { return td.flags&typeInterface != 0 }
func (td *TypeDef) IsAbstract() bool       { return td.flags&typeAbstract != 0 }
func (td *TypeDef) IsSealed() bool         { return td.flags&typeSealed != 0 }
func (td *TypeDef) IsSpecialName() bool    { return td.flags&typeSpecialName != 0 }
func (td *TypeDef) IsImported() bool       { return td.flags&typeImport != 0 }
func (td *TypeDef) IsWindowsRuntime() bool { return td.flags&typeWindowsRuntime != 0 }

// BaseTypeName returns the full name of the extended type, or "" for
// interfaces and System.Object.
func (td *TypeDef) BaseTypeName() string {
	if td.extends.IsNil() {
		return ""
	}
	name, _ := td.scope.TypeName(td.extends)
	return name
}

func (td *TypeDef) Kind() TypeKind {
	if td.IsInterface() {
		return InterfaceKind
	}
	switch td.BaseTypeName() {
	case "System.Enum":
		return EnumKind
	case "System.ValueType":
		return StructKind
	case "System.MulticastDelegate":
		return DelegateKind
	}
	return ClassKind
}

func (td *TypeDef) IsEnum() bool     { return td.Kind() == EnumKind }
func (td *TypeDef) IsStruct() bool   { return td.Kind() == StructKind }
func (td *TypeDef) IsDelegate() bool { return td.Kind() == DelegateKind }
func (td *TypeDef) IsClass() bool    { return td.Kind() == ClassKind }

// Parent returns the enclosing type of a nested type, or nil.
func (td *TypeDef) Parent() (*TypeDef, error) {
	outer, err := td.scope.backend.EnclosingClass(td.token)
	if err != nil {
		return nil, err
	}
	if outer.IsNil() {
		return nil, nil
	}
	return td.scope.FindTypeDefByToken(outer), nil
}

// collect enumerates child tokens and wraps each one with build.
func collect[T any](open func() (backend.Enumerator, error), build func(token.Token) (T, error)) ([]T, error) {
	tokens, err := backend.Collect(open)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(tokens))
	for _, t := range tokens {
		item, err := build(t)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (td *TypeDef) Methods() ([]*Method, error) {
	td.methodsOnce.Do(func() {
		td.methods, td.methodsErr = collect(
			func() (backend.Enumerator, error) { return td.scope.backend.EnumMethods(td.token) },
			func(t token.Token) (*Method, error) { return newMethod(td.scope, t) },
		)
	})
	return td.methods, td.methodsErr
}

// FindMethod returns the first method called name, or nil.
func (td *TypeDef) FindMethod(name string) (*Method, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	methods, err := td.Methods()
	if err != nil {
		return nil, err
	}
	for _, m := range methods {
		if m.name == name {
			return m, nil
		}
	}
	return nil, nil
}

func (td *TypeDef) Fields() ([]*Field, error) {
	td.fieldsOnce.Do(func() {
		td.fields, td.fieldsErr = collect(
			func() (backend.Enumerator, error) { return td.scope.backend.EnumFields(td.token) },
			func(t token.Token) (*Field, error) { return newField(td.scope, t) },
		)
	})
	return td.fields, td.fieldsErr
}

func (td *TypeDef) Properties() ([]*Property, error) {
	td.propertiesOnce.Do(func() {
		td.properties, td.propertiesErr = collect(
			func() (backend.Enumerator, error) { return td.scope.backend.EnumProperties(td.token) },
			func(t token.Token) (*Property, error) { return newProperty(td.scope, t) },
		)
	})
	return td.properties, td.propertiesErr
}

func (td *TypeDef) Events() ([]*Event, error) {
	td.eventsOnce.Do(func() {
		td.events, td.eventsErr = collect(
			func() (backend.Enumerator, error) { return td.scope.backend.EnumEvents(td.token) },
			func(t token.Token) (*Event, error) { return newEvent(td.scope, t) },
		)
	})
	return td.events, td.eventsErr
}

// Interfaces returns the implemented interfaces as type references.
func (td *TypeDef) Interfaces() ([]signature.TypeIdentifier, error) {
	return collect(
		func() (backend.Enumerator, error) { return td.scope.backend.EnumInterfaceImpls(td.token) },
		func(t token.Token) (signature.TypeIdentifier, error) {
			props, err := td.scope.backend.InterfaceImplProps(t)
			if err != nil {
				return signature.TypeIdentifier{}, err
			}
			name, _ := td.scope.TypeName(props.Interface)
			return signature.TypeIdentifier{CorType: signature.ElementTypeClass, Name: name, Token: props.Interface}, nil
		},
	)
}

// SupportedArchitectures returns the architectures the type is declared for.
// A type without an architecture attribute supports all of them.
func (td *TypeDef) SupportedArchitectures() (Architecture, error) {
	td.archOnce.Do(func() {
		td.arch = AllArchitectures
		ca, err := td.findAnyAttribute(supportedArchitectureAttributes...)
		if err != nil || ca == nil {
			td.archErr = err
			return
		}
		params, err := ca.Parameters()
		if err != nil {
			td.archErr = err
			return
		}
		if len(params) == 0 {
			return
		}
		if v, ok := params[0].AsInt(); ok {
			td.arch = Architecture(v)
		}
	})
	return td.arch, td.archErr
}

// GUID returns the interface identifier declared by a GuidAttribute.
func (td *TypeDef) GUID() (uuid.UUID, bool, error) {
	ca, err := td.findAnyAttribute(guidAttributes...)
	if err != nil || ca == nil {
		return uuid.Nil, false, err
	}
	params, err := ca.Parameters()
	if err != nil {
		return uuid.Nil, false, err
	}
	id, ok := guidFromArguments(params)
	return id, ok, nil
}

// guidFromArguments assembles (uint, ushort, ushort, byte×8) constructor
// arguments into a UUID.
func guidFromArguments(params []signature.AttributeValue) (uuid.UUID, bool) {
	if len(params) != 11 {
		return uuid.Nil, false
	}
	var raw [11]uint64
	for i, p := range params {
		v, ok := p.AsInt()
		if !ok {
			return uuid.Nil, false
		}
		raw[i] = uint64(v)
	}
	var id uuid.UUID
	id[0], id[1], id[2], id[3] = byte(raw[0]>>24), byte(raw[0]>>16), byte(raw[0]>>8), byte(raw[0])
	id[4], id[5] = byte(raw[1]>>8), byte(raw[1])
	id[6], id[7] = byte(raw[2]>>8), byte(raw[2])
	for i := 3; i < 11; i++ {
		id[i+5] = byte(raw[i])
	}
	return id, true
}
