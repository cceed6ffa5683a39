package backend

import (
	"debug/pe"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/microsoft/go-winmd"
	"golang.org/x/text/encoding/unicode"

	"gowinmd/internal/signature"
	"gowinmd/internal/token"
)

// Coded index tag orders, ECMA-335 §II.24.2.6.
var (
	typeDefOrRefTags     = []token.Table{token.TypeDef, token.TypeRef, token.TypeSpec}
	memberRefParentTags  = []token.Table{token.TypeDef, token.TypeRef, token.ModuleRef, token.MethodDef, token.TypeSpec}
	hasSemanticsTags     = []token.Table{token.Event, token.Property}
	memberForwardedTags  = []token.Table{token.Field, token.MethodDef}
	customAttributeTypes = []token.Table{0xff, 0xff, token.MethodDef, token.MemberRef, 0xff}
	hasCustomAttribute   = []token.Table{
		token.MethodDef, token.Field, token.TypeRef, token.TypeDef, token.Param,
		token.InterfaceImpl, token.MemberRef, token.Module, token.DeclSecurity,
		token.Property, token.Event, token.StandAloneSig, token.ModuleRef,
		token.TypeSpec, token.Assembly, token.AssemblyRef, token.File,
		token.ExportedType, token.ManifestResource, token.GenericParam,
		token.GenericParamConstraint, token.MethodSpec,
	}
)

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

const (
	semanticsSetter   = 0x0001
	semanticsGetter   = 0x0002
	semanticsAddOn    = 0x0008
	semanticsRemoveOn = 0x0010
)

// File is a read-only Backend over a .winmd file. Ownership lookups the
// physical tables only store in one direction are indexed on first use.
type File struct {
	md     *winmd.Metadata
	name   string
	closed bool

	once   sync.Once
	index  *fileIndex
	idxErr error
}

type fileIndex struct {
	methodOwner   []token.Token
	fieldOwner    []token.Token
	paramOwner    []token.Token
	propertyOwner []token.Token
	eventOwner    []token.Token

	// owned maps an owner token to its child rows, keyed by child table.
	owned map[token.Table]map[token.Token][]token.Token

	attributes map[token.Token][]token.Token
	interfaces map[token.Token][]token.Token
	enclosing  map[token.Token]token.Token
	implMap    map[token.Token]winmd.Index
	semantics  map[token.Token]map[uint32]token.Token

	userStrings []token.Token
}

// OpenFile reads the metadata tables of the .winmd file at path.
func OpenFile(path string) (*File, error) {
	peFile, err := pe.Open(path)
	if err != nil {
		return nil, fail("OpenFile", 0, err)
	}
	defer peFile.Close()

	md, err := winmd.New(peFile)
	if err != nil {
		return nil, fail("OpenFile", 0, err)
	}
	return &File{md: md, name: path}, nil
}

func (f *File) Close() error {
	f.closed = true
	return nil
}

func (f *File) check(op string, t token.Token) error {
	if f.closed {
		return fail(op, t, ErrClosed)
	}
	return nil
}

func (f *File) tableLen(table token.Table) uint32 {
	tables := f.md.Tables
	switch table {
	case token.Module:
		return tables.Module.Len
	case token.TypeRef:
		return tables.TypeRef.Len
	case token.TypeDef:
		return tables.TypeDef.Len
	case token.Field:
		return tables.Field.Len
	case token.MethodDef:
		return tables.MethodDef.Len
	case token.Param:
		return tables.Param.Len
	case token.InterfaceImpl:
		return tables.InterfaceImpl.Len
	case token.MemberRef:
		return tables.MemberRef.Len
	case token.CustomAttribute:
		return tables.CustomAttribute.Len
	case token.Event:
		return tables.Event.Len
	case token.Property:
		return tables.Property.Len
	case token.ModuleRef:
		return tables.ModuleRef.Len
	case token.TypeSpec:
		return tables.TypeSpec.Len
	case token.AssemblyRef:
		return tables.AssemblyRef.Len
	}
	return 0
}

func (f *File) IsValidToken(t token.Token) bool {
	if t.Table() == token.UserString {
		return !t.IsNil() && int(t.Row()) < len(f.md.US)
	}
	return !t.IsNil() && t.Row() <= f.tableLen(t.Table())
}

func (f *File) toToken(table token.Table, i winmd.Index) token.Token {
	if uint32(i) >= f.tableLen(table) {
		return token.Nil(table)
	}
	return token.New(table, uint32(i)+1)
}

func (f *File) coded(tags []token.Table, ci winmd.CodedIndex) token.Token {
	if ci.Tag < 0 || int(ci.Tag) >= len(tags) || tags[ci.Tag] == 0xff {
		return 0
	}
	return f.toToken(tags[ci.Tag], ci.Index)
}

// row validates t against table and returns its 0-based table index.
func (f *File) row(op string, t token.Token, table token.Table) (winmd.Index, error) {
	if err := f.check(op, t); err != nil {
		return 0, err
	}
	if t.Table() != table || !f.IsValidToken(t) {
		return 0, fail(op, t, ErrNotFound)
	}
	return winmd.Index(t.Row() - 1), nil
}

func listTokens(table token.Table, l winmd.Slice) []token.Token {
	var tokens []token.Token
	for i := l.Start; i < l.End; i++ {
		tokens = append(tokens, token.New(table, uint32(i)+1))
	}
	return tokens
}

func (f *File) buildIndex() (*fileIndex, error) {
	f.once.Do(func() {
		f.index, f.idxErr = f.scan()
	})
	return f.index, f.idxErr
}

func (f *File) scan() (*fileIndex, error) {
	tables := f.md.Tables
	idx := &fileIndex{
		methodOwner:   make([]token.Token, tables.MethodDef.Len),
		fieldOwner:    make([]token.Token, tables.Field.Len),
		paramOwner:    make([]token.Token, tables.Param.Len),
		propertyOwner: make([]token.Token, tables.Property.Len),
		eventOwner:    make([]token.Token, tables.Event.Len),
		owned:         make(map[token.Table]map[token.Token][]token.Token),
		attributes:    make(map[token.Token][]token.Token),
		interfaces:    make(map[token.Token][]token.Token),
		enclosing:     make(map[token.Token]token.Token),
		implMap:       make(map[token.Token]winmd.Index),
		semantics:     make(map[token.Token]map[uint32]token.Token),
	}

	own := func(table token.Table, owners []token.Token, owner token.Token, l winmd.Slice) {
		children := idx.owned[table]
		if children == nil {
			children = make(map[token.Token][]token.Token)
			idx.owned[table] = children
		}
		for i := l.Start; i < l.End && uint32(i) < uint32(len(owners)); i++ {
			owners[i] = owner
			children[owner] = append(children[owner], token.New(table, uint32(i)+1))
		}
	}

	for i := uint32(0); i < tables.TypeDef.Len; i++ {
		td, err := tables.TypeDef.Record(winmd.Index(i))
		if err != nil {
			return nil, fmt.Errorf("TypeDef %d: %w", i+1, err)
		}
		owner := token.New(token.TypeDef, i+1)
		own(token.MethodDef, idx.methodOwner, owner, td.MethodList)
		own(token.Field, idx.fieldOwner, owner, td.FieldList)
	}
	for i := uint32(0); i < tables.MethodDef.Len; i++ {
		md, err := tables.MethodDef.Record(winmd.Index(i))
		if err != nil {
			return nil, fmt.Errorf("MethodDef %d: %w", i+1, err)
		}
		own(token.Param, idx.paramOwner, token.New(token.MethodDef, i+1), md.ParamList)
	}
	for i := uint32(0); i < tables.PropertyMap.Len; i++ {
		pm, err := tables.PropertyMap.Record(winmd.Index(i))
		if err != nil {
			return nil, fmt.Errorf("PropertyMap %d: %w", i+1, err)
		}
		own(token.Property, idx.propertyOwner, f.toToken(token.TypeDef, pm.Parent), pm.PropertyList)
	}
	for i := uint32(0); i < tables.EventMap.Len; i++ {
		em, err := tables.EventMap.Record(winmd.Index(i))
		if err != nil {
			return nil, fmt.Errorf("EventMap %d: %w", i+1, err)
		}
		own(token.Event, idx.eventOwner, f.toToken(token.TypeDef, em.Parent), em.EventList)
	}
	for i := uint32(0); i < tables.CustomAttribute.Len; i++ {
		ca, err := tables.CustomAttribute.Record(winmd.Index(i))
		if err != nil {
			return nil, fmt.Errorf("CustomAttribute %d: %w", i+1, err)
		}
		parent := f.coded(hasCustomAttribute, ca.Parent)
		idx.attributes[parent] = append(idx.attributes[parent], token.New(token.CustomAttribute, i+1))
	}
	for i := uint32(0); i < tables.InterfaceImpl.Len; i++ {
		ii, err := tables.InterfaceImpl.Record(winmd.Index(i))
		if err != nil {
			return nil, fmt.Errorf("InterfaceImpl %d: %w", i+1, err)
		}
		class := f.toToken(token.TypeDef, ii.Class)
		idx.interfaces[class] = append(idx.interfaces[class], token.New(token.InterfaceImpl, i+1))
	}
	for i := uint32(0); i < tables.NestedClass.Len; i++ {
		nc, err := tables.NestedClass.Record(winmd.Index(i))
		if err != nil {
			return nil, fmt.Errorf("NestedClass %d: %w", i+1, err)
		}
		idx.enclosing[f.toToken(token.TypeDef, nc.NestedClass)] = f.toToken(token.TypeDef, nc.EnclosingClass)
	}
	for i := uint32(0); i < tables.ImplMap.Len; i++ {
		im, err := tables.ImplMap.Record(winmd.Index(i))
		if err != nil {
			return nil, fmt.Errorf("ImplMap %d: %w", i+1, err)
		}
		idx.implMap[f.coded(memberForwardedTags, im.MemberForwarded)] = winmd.Index(i)
	}
	for i := uint32(0); i < tables.MethodSemantics.Len; i++ {
		ms, err := tables.MethodSemantics.Record(winmd.Index(i))
		if err != nil {
			return nil, fmt.Errorf("MethodSemantics %d: %w", i+1, err)
		}
		assoc := f.coded(hasSemanticsTags, ms.Association)
		if idx.semantics[assoc] == nil {
			idx.semantics[assoc] = make(map[uint32]token.Token)
		}
		idx.semantics[assoc][uint32(ms.Semantics)] = f.toToken(token.MethodDef, ms.Method)
	}

	strs, err := scanUserStrings(f.md.US)
	if err != nil {
		return nil, err
	}
	idx.userStrings = strs
	return idx, nil
}

func (f *File) ScopeProps() (ScopeProps, error) {
	if err := f.check("ScopeProps", 0); err != nil {
		return ScopeProps{}, err
	}
	props := ScopeProps{Name: f.name, GUID: uuid.Nil, Version: f.md.Version}
	if f.md.Tables.Module.Len > 0 {
		mod, err := f.md.Tables.Module.Record(0)
		if err != nil {
			return ScopeProps{}, fail("ScopeProps", 0, err)
		}
		props.Name = mod.Name.String()
		props.GUID = guidFromDisk(mod.Mvid)
	}
	return props, nil
}

func (f *File) IsGlobal(t token.Token) (bool, error) {
	if err := f.check("IsGlobal", t); err != nil {
		return false, err
	}
	switch t.Table() {
	case token.TypeDef:
		return t.Row() == 1, nil
	case token.MethodDef, token.Field:
		idx, err := f.buildIndex()
		if err != nil {
			return false, fail("IsGlobal", t, err)
		}
		owners := idx.methodOwner
		if t.Table() == token.Field {
			owners = idx.fieldOwner
		}
		if !f.IsValidToken(t) {
			return false, fail("IsGlobal", t, ErrNotFound)
		}
		return owners[t.Row()-1].Row() == 1, nil
	}
	return false, nil
}

func (f *File) enumerate(op string, owner token.Token, tokens func(*fileIndex) []token.Token) (Enumerator, error) {
	if err := f.check(op, owner); err != nil {
		return nil, err
	}
	idx, err := f.buildIndex()
	if err != nil {
		return nil, fail(op, owner, err)
	}
	return NewSliceEnumerator(tokens(idx)), nil
}

func (idx *fileIndex) ownedBy(table token.Table, owner token.Token) []token.Token {
	return idx.owned[table][owner]
}

func (f *File) all(table token.Table) []token.Token {
	return listTokens(table, winmd.Slice{Start: 0, End: winmd.Index(f.tableLen(table))})
}

func (f *File) EnumTypeDefs() (Enumerator, error) {
	if err := f.check("EnumTypeDefs", 0); err != nil {
		return nil, err
	}
	return NewSliceEnumerator(f.all(token.TypeDef)), nil
}

func (f *File) EnumMethods(typeDef token.Token) (Enumerator, error) {
	return f.enumerate("EnumMethods", typeDef, func(idx *fileIndex) []token.Token {
		return idx.ownedBy(token.MethodDef, typeDef)
	})
}

func (f *File) EnumFields(typeDef token.Token) (Enumerator, error) {
	return f.enumerate("EnumFields", typeDef, func(idx *fileIndex) []token.Token {
		return idx.ownedBy(token.Field, typeDef)
	})
}

func (f *File) EnumProperties(typeDef token.Token) (Enumerator, error) {
	return f.enumerate("EnumProperties", typeDef, func(idx *fileIndex) []token.Token {
		return idx.ownedBy(token.Property, typeDef)
	})
}

func (f *File) EnumEvents(typeDef token.Token) (Enumerator, error) {
	return f.enumerate("EnumEvents", typeDef, func(idx *fileIndex) []token.Token {
		return idx.ownedBy(token.Event, typeDef)
	})
}

func (f *File) EnumInterfaceImpls(typeDef token.Token) (Enumerator, error) {
	return f.enumerate("EnumInterfaceImpls", typeDef, func(idx *fileIndex) []token.Token {
		return idx.interfaces[typeDef]
	})
}

func (f *File) EnumParams(method token.Token) (Enumerator, error) {
	return f.enumerate("EnumParams", method, func(idx *fileIndex) []token.Token {
		return idx.ownedBy(token.Param, method)
	})
}

func (f *File) EnumCustomAttributes(parent token.Token) (Enumerator, error) {
	if parent.IsNil() {
		if err := f.check("EnumCustomAttributes", parent); err != nil {
			return nil, err
		}
		return NewSliceEnumerator(f.all(token.CustomAttribute)), nil
	}
	return f.enumerate("EnumCustomAttributes", parent, func(idx *fileIndex) []token.Token {
		return idx.attributes[parent]
	})
}

func (f *File) EnumModuleRefs() (Enumerator, error) {
	if err := f.check("EnumModuleRefs", 0); err != nil {
		return nil, err
	}
	return NewSliceEnumerator(f.all(token.ModuleRef)), nil
}

func (f *File) EnumAssemblyRefs() (Enumerator, error) {
	if err := f.check("EnumAssemblyRefs", 0); err != nil {
		return nil, err
	}
	return NewSliceEnumerator(f.all(token.AssemblyRef)), nil
}

func (f *File) EnumUserStrings() (Enumerator, error) {
	return f.enumerate("EnumUserStrings", 0, func(idx *fileIndex) []token.Token {
		return idx.userStrings
	})
}

func (f *File) TypeDefProps(t token.Token) (TypeDefProps, error) {
	i, err := f.row("TypeDefProps", t, token.TypeDef)
	if err != nil {
		return TypeDefProps{}, err
	}
	td, err := f.md.Tables.TypeDef.Record(i)
	if err != nil {
		return TypeDefProps{}, fail("TypeDefProps", t, err)
	}
	return TypeDefProps{
		Name:      td.Name.String(),
		Namespace: td.Namespace.String(),
		Flags:     uint32(td.Flags),
		Extends:   f.coded(typeDefOrRefTags, td.Extends),
	}, nil
}

func (f *File) TypeRefProps(t token.Token) (TypeRefProps, error) {
	i, err := f.row("TypeRefProps", t, token.TypeRef)
	if err != nil {
		return TypeRefProps{}, err
	}
	tr, err := f.md.Tables.TypeRef.Record(i)
	if err != nil {
		return TypeRefProps{}, fail("TypeRefProps", t, err)
	}
	return TypeRefProps{Name: tr.Name.String(), Namespace: tr.Namespace.String()}, nil
}

func (f *File) MethodProps(t token.Token) (MethodProps, error) {
	i, err := f.row("MethodProps", t, token.MethodDef)
	if err != nil {
		return MethodProps{}, err
	}
	md, err := f.md.Tables.MethodDef.Record(i)
	if err != nil {
		return MethodProps{}, fail("MethodProps", t, err)
	}
	idx, err := f.buildIndex()
	if err != nil {
		return MethodProps{}, fail("MethodProps", t, err)
	}
	return MethodProps{
		Class:     idx.methodOwner[i],
		Name:      md.Name.String(),
		Flags:     uint32(md.Flags),
		ImplFlags: uint32(md.ImplFlags),
		Signature: []byte(md.Signature),
		RVA:       uint32(md.RVA),
	}, nil
}

func (f *File) ParamProps(t token.Token) (ParamProps, error) {
	i, err := f.row("ParamProps", t, token.Param)
	if err != nil {
		return ParamProps{}, err
	}
	p, err := f.md.Tables.Param.Record(i)
	if err != nil {
		return ParamProps{}, fail("ParamProps", t, err)
	}
	idx, err := f.buildIndex()
	if err != nil {
		return ParamProps{}, fail("ParamProps", t, err)
	}
	return ParamProps{
		Method:   idx.paramOwner[i],
		Name:     p.Name.String(),
		Sequence: uint32(p.Sequence),
		Flags:    uint32(p.Flags),
	}, nil
}

func (f *File) FieldProps(t token.Token) (FieldProps, error) {
	i, err := f.row("FieldProps", t, token.Field)
	if err != nil {
		return FieldProps{}, err
	}
	fd, err := f.md.Tables.Field.Record(i)
	if err != nil {
		return FieldProps{}, fail("FieldProps", t, err)
	}
	idx, err := f.buildIndex()
	if err != nil {
		return FieldProps{}, fail("FieldProps", t, err)
	}
	return FieldProps{
		Class:     idx.fieldOwner[i],
		Name:      fd.Name.String(),
		Flags:     uint32(fd.Flags),
		Signature: []byte(fd.Signature),
	}, nil
}

func (f *File) MemberRefProps(t token.Token) (MemberRefProps, error) {
	i, err := f.row("MemberRefProps", t, token.MemberRef)
	if err != nil {
		return MemberRefProps{}, err
	}
	mr, err := f.md.Tables.MemberRef.Record(i)
	if err != nil {
		return MemberRefProps{}, fail("MemberRefProps", t, err)
	}
	return MemberRefProps{
		Parent:    f.coded(memberRefParentTags, mr.Class),
		Name:      mr.Name.String(),
		Signature: []byte(mr.Signature),
	}, nil
}

func (f *File) CustomAttributeProps(t token.Token) (CustomAttributeProps, error) {
	i, err := f.row("CustomAttributeProps", t, token.CustomAttribute)
	if err != nil {
		return CustomAttributeProps{}, err
	}
	ca, err := f.md.Tables.CustomAttribute.Record(i)
	if err != nil {
		return CustomAttributeProps{}, fail("CustomAttributeProps", t, err)
	}
	return CustomAttributeProps{
		Parent:      f.coded(hasCustomAttribute, ca.Parent),
		Constructor: f.coded(customAttributeTypes, ca.Type),
		Value:       []byte(ca.Value),
	}, nil
}

func (f *File) PropertyProps(t token.Token) (PropertyProps, error) {
	i, err := f.row("PropertyProps", t, token.Property)
	if err != nil {
		return PropertyProps{}, err
	}
	p, err := f.md.Tables.Property.Record(i)
	if err != nil {
		return PropertyProps{}, fail("PropertyProps", t, err)
	}
	idx, err := f.buildIndex()
	if err != nil {
		return PropertyProps{}, fail("PropertyProps", t, err)
	}
	return PropertyProps{
		Class:     idx.propertyOwner[i],
		Name:      p.Name.String(),
		Flags:     uint32(p.Flags),
		Signature: []byte(p.Type),
		Getter:    idx.semantics[t][semanticsGetter],
		Setter:    idx.semantics[t][semanticsSetter],
	}, nil
}

func (f *File) EventProps(t token.Token) (EventProps, error) {
	i, err := f.row("EventProps", t, token.Event)
	if err != nil {
		return EventProps{}, err
	}
	e, err := f.md.Tables.Event.Record(i)
	if err != nil {
		return EventProps{}, fail("EventProps", t, err)
	}
	idx, err := f.buildIndex()
	if err != nil {
		return EventProps{}, fail("EventProps", t, err)
	}
	return EventProps{
		Class:     idx.eventOwner[i],
		Name:      e.Name.String(),
		Flags:     uint32(e.EventFlags),
		EventType: f.coded(typeDefOrRefTags, e.EventType),
		AddOn:     idx.semantics[t][semanticsAddOn],
		RemoveOn:  idx.semantics[t][semanticsRemoveOn],
	}, nil
}

func (f *File) InterfaceImplProps(t token.Token) (InterfaceImplProps, error) {
	i, err := f.row("InterfaceImplProps", t, token.InterfaceImpl)
	if err != nil {
		return InterfaceImplProps{}, err
	}
	ii, err := f.md.Tables.InterfaceImpl.Record(i)
	if err != nil {
		return InterfaceImplProps{}, fail("InterfaceImplProps", t, err)
	}
	return InterfaceImplProps{
		Class:     f.toToken(token.TypeDef, ii.Class),
		Interface: f.coded(typeDefOrRefTags, ii.Interface),
	}, nil
}

func (f *File) ModuleRefName(t token.Token) (string, error) {
	i, err := f.row("ModuleRefName", t, token.ModuleRef)
	if err != nil {
		return "", err
	}
	mr, err := f.md.Tables.ModuleRef.Record(i)
	if err != nil {
		return "", fail("ModuleRefName", t, err)
	}
	return mr.Name.String(), nil
}

func (f *File) AssemblyRefProps(t token.Token) (AssemblyRefProps, error) {
	i, err := f.row("AssemblyRefProps", t, token.AssemblyRef)
	if err != nil {
		return AssemblyRefProps{}, err
	}
	ar, err := f.md.Tables.AssemblyRef.Record(i)
	if err != nil {
		return AssemblyRefProps{}, fail("AssemblyRefProps", t, err)
	}
	return AssemblyRefProps{
		Name:    ar.Name.String(),
		Version: fmt.Sprintf("%d.%d.%d.%d", ar.MajorVersion, ar.MinorVersion, ar.BuildNumber, ar.RevisionNumber),
	}, nil
}

// UserString decodes the #US heap entry at the offset carried by t.
func (f *File) UserString(t token.Token) (string, error) {
	if err := f.check("UserString", t); err != nil {
		return "", err
	}
	if t.Table() != token.UserString || !f.IsValidToken(t) {
		return "", fail("UserString", t, ErrNotFound)
	}
	r := signature.NewReader(f.md.US[t.Row():])
	n, err := r.ReadCompressed()
	if err != nil {
		return "", fail("UserString", t, err)
	}
	data, err := r.ReadBytes(int(n))
	if err != nil {
		return "", fail("UserString", t, err)
	}
	// Odd lengths carry a trailing flag byte after the UTF-16 code units.
	data = data[:len(data)&^1]
	s, err := utf16LE.NewDecoder().Bytes(data)
	if err != nil {
		return "", fail("UserString", t, err)
	}
	return string(s), nil
}

// scanUserStrings lists the offsets of the non-empty #US heap entries.
// Offset 0 is the mandatory empty entry.
func scanUserStrings(heap []byte) ([]token.Token, error) {
	var tokens []token.Token
	for off := 1; off < len(heap); {
		r := signature.NewReader(heap[off:])
		n, err := r.ReadCompressed()
		if err != nil {
			return nil, fmt.Errorf("#US offset %d: %w", off, err)
		}
		if n > 0 {
			tokens = append(tokens, token.New(token.UserString, uint32(off)))
		}
		off += r.Offset() + int(n)
	}
	return tokens, nil
}

// guidFromDisk converts a GUID stored with little-endian Data1..Data3, as the
// #GUID heap holds it, to RFC 4122 byte order.
func guidFromDisk(raw [16]byte) uuid.UUID {
	var id uuid.UUID
	binary.BigEndian.PutUint32(id[0:4], binary.LittleEndian.Uint32(raw[0:4]))
	binary.BigEndian.PutUint16(id[4:6], binary.LittleEndian.Uint16(raw[4:6]))
	binary.BigEndian.PutUint16(id[6:8], binary.LittleEndian.Uint16(raw[6:8]))
	copy(id[8:], raw[8:])
	return id
}

func (f *File) PInvokeMap(method token.Token) (PInvokeProps, error) {
	if _, err := f.row("PInvokeMap", method, token.MethodDef); err != nil {
		return PInvokeProps{}, err
	}
	idx, err := f.buildIndex()
	if err != nil {
		return PInvokeProps{}, fail("PInvokeMap", method, err)
	}
	i, ok := idx.implMap[method]
	if !ok {
		return PInvokeProps{}, fail("PInvokeMap", method, ErrNotFound)
	}
	im, err := f.md.Tables.ImplMap.Record(i)
	if err != nil {
		return PInvokeProps{}, fail("PInvokeMap", method, err)
	}
	return PInvokeProps{
		Flags:      uint32(im.MappingFlags),
		ImportName: im.ImportName.String(),
		ModuleRef:  f.toToken(token.ModuleRef, im.ImportScope),
	}, nil
}

func (f *File) EnclosingClass(typeDef token.Token) (token.Token, error) {
	if _, err := f.row("EnclosingClass", typeDef, token.TypeDef); err != nil {
		return 0, err
	}
	idx, err := f.buildIndex()
	if err != nil {
		return 0, fail("EnclosingClass", typeDef, err)
	}
	return idx.enclosing[typeDef], nil
}
