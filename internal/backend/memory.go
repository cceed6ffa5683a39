package backend

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"gowinmd/internal/token"
)

// Memory is a Backend assembled row by row in process. Rows are numbered in
// insertion order and enumerations preserve that order.
type Memory struct {
	scope ScopeProps

	typeDefs       []TypeDefProps
	typeRefs       []TypeRefProps
	methods        []MethodProps
	params         []ParamProps
	fields         []FieldProps
	memberRefs     []MemberRefProps
	attributes     []CustomAttributeProps
	properties     []PropertyProps
	events         []EventProps
	interfaceImpls []InterfaceImplProps
	moduleRefs     []string
	assemblyRefs   []AssemblyRefProps
	userStrings    []string

	pinvoke   map[token.Token]PInvokeProps
	enclosing map[token.Token]token.Token
	ctors     map[string]token.Token

	failures  map[string]error
	openEnums int
	closed    bool
}

// NewMemory returns an empty backend whose scope is called name.
func NewMemory(name string) *Memory {
	return &Memory{
		scope: ScopeProps{
			Name:    name,
			GUID:    uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)),
			Version: "v4.0.30319",
		},
		pinvoke:   make(map[token.Token]PInvokeProps),
		enclosing: make(map[token.Token]token.Token),
		ctors:     make(map[string]token.Token),
		failures:  make(map[string]error),
	}
}

// Fail makes every later call of the named operation (e.g. "MethodProps",
// "EnumParams") fail with err.
func (m *Memory) Fail(op string, err error) {
	m.failures[op] = err
}

// OpenEnumerators returns the number of cursors opened and not yet closed.
func (m *Memory) OpenEnumerators() int { return m.openEnums }

func (m *Memory) AddTypeDef(namespace, name string, flags uint32, extends token.Token) token.Token {
	m.typeDefs = append(m.typeDefs, TypeDefProps{Name: name, Namespace: namespace, Flags: flags, Extends: extends})
	return token.New(token.TypeDef, uint32(len(m.typeDefs)))
}

func (m *Memory) AddTypeRef(namespace, name string) token.Token {
	m.typeRefs = append(m.typeRefs, TypeRefProps{Name: name, Namespace: namespace})
	return token.New(token.TypeRef, uint32(len(m.typeRefs)))
}

func (m *Memory) AddMethod(class token.Token, name string, flags uint32, sig []byte) token.Token {
	m.methods = append(m.methods, MethodProps{Class: class, Name: name, Flags: flags, Signature: sig})
	return token.New(token.MethodDef, uint32(len(m.methods)))
}

func (m *Memory) AddParam(method token.Token, sequence uint32, name string, flags uint32) token.Token {
	m.params = append(m.params, ParamProps{Method: method, Name: name, Sequence: sequence, Flags: flags})
	return token.New(token.Param, uint32(len(m.params)))
}

func (m *Memory) AddField(class token.Token, name string, flags uint32, sig []byte) token.Token {
	m.fields = append(m.fields, FieldProps{Class: class, Name: name, Flags: flags, Signature: sig})
	return token.New(token.Field, uint32(len(m.fields)))
}

func (m *Memory) AddMemberRef(parent token.Token, name string, sig []byte) token.Token {
	m.memberRefs = append(m.memberRefs, MemberRefProps{Parent: parent, Name: name, Signature: sig})
	return token.New(token.MemberRef, uint32(len(m.memberRefs)))
}

func (m *Memory) AddCustomAttribute(parent, ctor token.Token, value []byte) token.Token {
	m.attributes = append(m.attributes, CustomAttributeProps{Parent: parent, Constructor: ctor, Value: value})
	return token.New(token.CustomAttribute, uint32(len(m.attributes)))
}

// AddAttribute attaches an attribute of the named type to parent, creating the
// TypeRef and .ctor MemberRef the first time each type name is seen.
func (m *Memory) AddAttribute(parent token.Token, typeName string, ctorSig, value []byte) token.Token {
	key := typeName + "\x00" + string(ctorSig)
	ctor, ok := m.ctors[key]
	if !ok {
		namespace, name := typeName[:max(strings.LastIndexByte(typeName, '.'), 0)], typeName[strings.LastIndexByte(typeName, '.')+1:]
		ref := m.AddTypeRef(namespace, name)
		ctor = m.AddMemberRef(ref, ".ctor", ctorSig)
		m.ctors[key] = ctor
	}
	return m.AddCustomAttribute(parent, ctor, value)
}

func (m *Memory) AddProperty(class token.Token, name string, sig []byte, getter, setter token.Token) token.Token {
	m.properties = append(m.properties, PropertyProps{Class: class, Name: name, Signature: sig, Getter: getter, Setter: setter})
	return token.New(token.Property, uint32(len(m.properties)))
}

func (m *Memory) AddEvent(class token.Token, name string, eventType token.Token) token.Token {
	m.events = append(m.events, EventProps{Class: class, Name: name, EventType: eventType})
	return token.New(token.Event, uint32(len(m.events)))
}

func (m *Memory) AddInterfaceImpl(class, iface token.Token) token.Token {
	m.interfaceImpls = append(m.interfaceImpls, InterfaceImplProps{Class: class, Interface: iface})
	return token.New(token.InterfaceImpl, uint32(len(m.interfaceImpls)))
}

func (m *Memory) AddModuleRef(name string) token.Token {
	m.moduleRefs = append(m.moduleRefs, name)
	return token.New(token.ModuleRef, uint32(len(m.moduleRefs)))
}

func (m *Memory) AddAssemblyRef(name, version string) token.Token {
	m.assemblyRefs = append(m.assemblyRefs, AssemblyRefProps{Name: name, Version: version})
	return token.New(token.AssemblyRef, uint32(len(m.assemblyRefs)))
}

func (m *Memory) AddUserString(s string) token.Token {
	m.userStrings = append(m.userStrings, s)
	return token.New(token.UserString, uint32(len(m.userStrings)))
}

func (m *Memory) SetPInvoke(method token.Token, importName string, moduleRef token.Token) {
	m.pinvoke[method] = PInvokeProps{ImportName: importName, ModuleRef: moduleRef}
}

func (m *Memory) AddNestedClass(nested, enclosing token.Token) {
	m.enclosing[nested] = enclosing
}

func (m *Memory) Close() error {
	m.closed = true
	return nil
}

func (m *Memory) check(op string, t token.Token) error {
	if m.closed {
		return fail(op, t, ErrClosed)
	}
	if err, ok := m.failures[op]; ok {
		return fail(op, t, err)
	}
	return nil
}

func (m *Memory) tableLen(table token.Table) int {
	switch table {
	case token.TypeDef:
		return len(m.typeDefs)
	case token.TypeRef:
		return len(m.typeRefs)
	case token.MethodDef:
		return len(m.methods)
	case token.Param:
		return len(m.params)
	case token.Field:
		return len(m.fields)
	case token.MemberRef:
		return len(m.memberRefs)
	case token.CustomAttribute:
		return len(m.attributes)
	case token.Property:
		return len(m.properties)
	case token.Event:
		return len(m.events)
	case token.InterfaceImpl:
		return len(m.interfaceImpls)
	case token.ModuleRef:
		return len(m.moduleRefs)
	case token.AssemblyRef:
		return len(m.assemblyRefs)
	case token.UserString:
		return len(m.userStrings)
	}
	return 0
}

func (m *Memory) IsValidToken(t token.Token) bool {
	return !t.IsNil() && int(t.Row()) <= m.tableLen(t.Table())
}

// row validates t against table and returns its 0-based index.
func (m *Memory) row(op string, t token.Token, table token.Table) (int, error) {
	if err := m.check(op, t); err != nil {
		return 0, err
	}
	if t.Table() != table || !m.IsValidToken(t) {
		return 0, fail(op, t, ErrNotFound)
	}
	return int(t.Row()) - 1, nil
}

func (m *Memory) ScopeProps() (ScopeProps, error) {
	if err := m.check("ScopeProps", 0); err != nil {
		return ScopeProps{}, err
	}
	return m.scope, nil
}

func (m *Memory) IsGlobal(t token.Token) (bool, error) {
	if err := m.check("IsGlobal", t); err != nil {
		return false, err
	}
	switch t.Table() {
	case token.TypeDef:
		return t.Row() == 1, nil
	case token.MethodDef:
		p, err := m.MethodProps(t)
		return err == nil && p.Class.Row() == 1, err
	case token.Field:
		p, err := m.FieldProps(t)
		return err == nil && p.Class.Row() == 1, err
	}
	return false, nil
}

func (m *Memory) enumerate(op string, owner token.Token, table token.Table, n int, match func(i int) bool) (Enumerator, error) {
	if err := m.check(op, owner); err != nil {
		return nil, err
	}
	var tokens []token.Token
	for i := 0; i < n; i++ {
		if match == nil || match(i) {
			tokens = append(tokens, token.New(table, uint32(i+1)))
		}
	}
	m.openEnums++
	e := NewSliceEnumerator(tokens)
	e.onClose = func() { m.openEnums-- }
	return e, nil
}

func (m *Memory) EnumTypeDefs() (Enumerator, error) {
	return m.enumerate("EnumTypeDefs", 0, token.TypeDef, len(m.typeDefs), nil)
}

func (m *Memory) EnumMethods(typeDef token.Token) (Enumerator, error) {
	return m.enumerate("EnumMethods", typeDef, token.MethodDef, len(m.methods), func(i int) bool {
		return m.methods[i].Class == typeDef
	})
}

func (m *Memory) EnumFields(typeDef token.Token) (Enumerator, error) {
	return m.enumerate("EnumFields", typeDef, token.Field, len(m.fields), func(i int) bool {
		return m.fields[i].Class == typeDef
	})
}

func (m *Memory) EnumProperties(typeDef token.Token) (Enumerator, error) {
	return m.enumerate("EnumProperties", typeDef, token.Property, len(m.properties), func(i int) bool {
		return m.properties[i].Class == typeDef
	})
}

func (m *Memory) EnumEvents(typeDef token.Token) (Enumerator, error) {
	return m.enumerate("EnumEvents", typeDef, token.Event, len(m.events), func(i int) bool {
		return m.events[i].Class == typeDef
	})
}

func (m *Memory) EnumInterfaceImpls(typeDef token.Token) (Enumerator, error) {
	return m.enumerate("EnumInterfaceImpls", typeDef, token.InterfaceImpl, len(m.interfaceImpls), func(i int) bool {
		return m.interfaceImpls[i].Class == typeDef
	})
}

func (m *Memory) EnumParams(method token.Token) (Enumerator, error) {
	return m.enumerate("EnumParams", method, token.Param, len(m.params), func(i int) bool {
		return m.params[i].Method == method
	})
}

// EnumCustomAttributes with a nil parent lists every attribute in the scope.
func (m *Memory) EnumCustomAttributes(parent token.Token) (Enumerator, error) {
	return m.enumerate("EnumCustomAttributes", parent, token.CustomAttribute, len(m.attributes), func(i int) bool {
		return parent.IsNil() || m.attributes[i].Parent == parent
	})
}

func (m *Memory) EnumModuleRefs() (Enumerator, error) {
	return m.enumerate("EnumModuleRefs", 0, token.ModuleRef, len(m.moduleRefs), nil)
}

func (m *Memory) EnumAssemblyRefs() (Enumerator, error) {
	return m.enumerate("EnumAssemblyRefs", 0, token.AssemblyRef, len(m.assemblyRefs), nil)
}

func (m *Memory) EnumUserStrings() (Enumerator, error) {
	return m.enumerate("EnumUserStrings", 0, token.UserString, len(m.userStrings), nil)
}

func (m *Memory) TypeDefProps(t token.Token) (TypeDefProps, error) {
	i, err := m.row("TypeDefProps", t, token.TypeDef)
	if err != nil {
		return TypeDefProps{}, err
	}
	return m.typeDefs[i], nil
}

func (m *Memory) TypeRefProps(t token.Token) (TypeRefProps, error) {
	i, err := m.row("TypeRefProps", t, token.TypeRef)
	if err != nil {
		return TypeRefProps{}, err
	}
	return m.typeRefs[i], nil
}

func (m *Memory) MethodProps(t token.Token) (MethodProps, error) {
	i, err := m.row("MethodProps", t, token.MethodDef)
	if err != nil {
		return MethodProps{}, err
	}
	return m.methods[i], nil
}

func (m *Memory) ParamProps(t token.Token) (ParamProps, error) {
	i, err := m.row("ParamProps", t, token.Param)
	if err != nil {
		return ParamProps{}, err
	}
	return m.params[i], nil
}

func (m *Memory) FieldProps(t token.Token) (FieldProps, error) {
	i, err := m.row("FieldProps", t, token.Field)
	if err != nil {
		return FieldProps{}, err
	}
	return m.fields[i], nil
}

func (m *Memory) MemberRefProps(t token.Token) (MemberRefProps, error) {
	i, err := m.row("MemberRefProps", t, token.MemberRef)
	if err != nil {
		return MemberRefProps{}, err
	}
	return m.memberRefs[i], nil
}

func (m *Memory) CustomAttributeProps(t token.Token) (CustomAttributeProps, error) {
	i, err := m.row("CustomAttributeProps", t, token.CustomAttribute)
	if err != nil {
		return CustomAttributeProps{}, err
	}
	return m.attributes[i], nil
}

func (m *Memory) PropertyProps(t token.Token) (PropertyProps, error) {
	i, err := m.row("PropertyProps", t, token.Property)
	if err != nil {
		return PropertyProps{}, err
	}
	return m.properties[i], nil
}

func (m *Memory) EventProps(t token.Token) (EventProps, error) {
	i, err := m.row("EventProps", t, token.Event)
	if err != nil {
		return EventProps{}, err
	}
	return m.events[i], nil
}

func (m *Memory) InterfaceImplProps(t token.Token) (InterfaceImplProps, error) {
	i, err := m.row("InterfaceImplProps", t, token.InterfaceImpl)
	if err != nil {
		return InterfaceImplProps{}, err
	}
	return m.interfaceImpls[i], nil
}

func (m *Memory) ModuleRefName(t token.Token) (string, error) {
	i, err := m.row("ModuleRefName", t, token.ModuleRef)
	if err != nil {
		return "", err
	}
	return m.moduleRefs[i], nil
}

func (m *Memory) AssemblyRefProps(t token.Token) (AssemblyRefProps, error) {
	i, err := m.row("AssemblyRefProps", t, token.AssemblyRef)
	if err != nil {
		return AssemblyRefProps{}, err
	}
	return m.assemblyRefs[i], nil
}

func (m *Memory) UserString(t token.Token) (string, error) {
	i, err := m.row("UserString", t, token.UserString)
	if err != nil {
		return "", err
	}
	return m.userStrings[i], nil
}

func (m *Memory) PInvokeMap(method token.Token) (PInvokeProps, error) {
	if _, err := m.row("PInvokeMap", method, token.MethodDef); err != nil {
		return PInvokeProps{}, err
	}
	p, ok := m.pinvoke[method]
	if !ok {
		return PInvokeProps{}, fail("PInvokeMap", method, ErrNotFound)
	}
	return p, nil
}

func (m *Memory) EnclosingClass(typeDef token.Token) (token.Token, error) {
	if _, err := m.row("EnclosingClass", typeDef, token.TypeDef); err != nil {
		return 0, err
	}
	return m.enclosing[typeDef], nil
}

// IsNotFound reports whether err is a backend failure caused by a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
