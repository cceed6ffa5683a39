// Package token describes metadata tokens: 32-bit identities whose high byte
// names a metadata table and whose low 24 bits are a 1-based row within it.
package token

import (
	"errors"
	"fmt"
)

// Table identifies a logical metadata table (or heap) in the high byte of a token.
type Table uint8

const (
	Module                 Table = 0x00
	TypeRef                Table = 0x01
	TypeDef                Table = 0x02
	Field                  Table = 0x04
	MethodDef              Table = 0x06
	Param                  Table = 0x08
	InterfaceImpl          Table = 0x09
	MemberRef              Table = 0x0a
	Constant               Table = 0x0b
	CustomAttribute        Table = 0x0c
	FieldMarshal           Table = 0x0d
	DeclSecurity           Table = 0x0e
	ClassLayout            Table = 0x0f
	FieldLayout            Table = 0x10
	StandAloneSig          Table = 0x11
	EventMap               Table = 0x12
	Event                  Table = 0x14
	PropertyMap            Table = 0x15
	Property               Table = 0x17
	MethodSemantics        Table = 0x18
	MethodImpl             Table = 0x19
	ModuleRef              Table = 0x1a
	TypeSpec               Table = 0x1b
	ImplMap                Table = 0x1c
	FieldRVA               Table = 0x1d
	Assembly               Table = 0x20
	AssemblyRef            Table = 0x23
	File                   Table = 0x26
	ExportedType           Table = 0x27
	ManifestResource       Table = 0x28
	NestedClass            Table = 0x29
	GenericParam           Table = 0x2a
	MethodSpec             Table = 0x2b
	GenericParamConstraint Table = 0x2c
	UserString             Table = 0x70
)

var tableNames = map[Table]string{
	Module:                 "Module",
	TypeRef:                "TypeRef",
	TypeDef:                "TypeDef",
	Field:                  "Field",
	MethodDef:              "MethodDef",
	Param:                  "Param",
	InterfaceImpl:          "InterfaceImpl",
	MemberRef:              "MemberRef",
	Constant:               "Constant",
	CustomAttribute:        "CustomAttribute",
	FieldMarshal:           "FieldMarshal",
	DeclSecurity:           "DeclSecurity",
	ClassLayout:            "ClassLayout",
	FieldLayout:            "FieldLayout",
	StandAloneSig:          "StandAloneSig",
	EventMap:               "EventMap",
	Event:                  "Event",
	PropertyMap:            "PropertyMap",
	Property:               "Property",
	MethodSemantics:        "MethodSemantics",
	MethodImpl:             "MethodImpl",
	ModuleRef:              "ModuleRef",
	TypeSpec:               "TypeSpec",
	ImplMap:                "ImplMap",
	FieldRVA:               "FieldRVA",
	Assembly:               "Assembly",
	AssemblyRef:            "AssemblyRef",
	File:                   "File",
	ExportedType:           "ExportedType",
	ManifestResource:       "ManifestResource",
	NestedClass:            "NestedClass",
	GenericParam:           "GenericParam",
	MethodSpec:             "MethodSpec",
	GenericParamConstraint: "GenericParamConstraint",
	UserString:             "UserString",
}

func (t Table) String() string {
	if name, ok := tableNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Table(0x%02x)", uint8(t))
}

// MaxRow is the largest row number a token can carry.
const MaxRow = 0x00ffffff

// Token is a packed table/row pair. Equality is by raw value.
type Token uint32

// New packs a table and a row into a token. Rows wider than 24 bits are truncated.
func New(table Table, row uint32) Token {
	return Token(uint32(table)<<24 | row&MaxRow)
}

// Nil returns the row-0 token of the given table. It is syntactically valid but
// never names a real row.
func Nil(table Table) Token {
	return New(table, 0)
}

func (t Token) Table() Table { return Table(t >> 24) }
func (t Token) Row() uint32  { return uint32(t) & MaxRow }

// IsNil reports whether the token refers to no row.
func (t Token) IsNil() bool { return t.Row() == 0 }

func (t Token) String() string {
	return fmt.Sprintf("0x%08x", uint32(t))
}

// ErrInvalidCodedIndex is returned for coded index values whose tag selects no table.
var ErrInvalidCodedIndex = errors.New("token: invalid coded index")

var typeDefOrRefTables = [...]Table{TypeDef, TypeRef, TypeSpec}

// DecodeTypeDefOrRef expands a TypeDefOrRefOrSpecEncoded value, as found in
// signature blobs, into a token. The low two bits select the table.
func DecodeTypeDefOrRef(v uint32) (Token, error) {
	tag := v & 0x3
	if int(tag) >= len(typeDefOrRefTables) {
		return 0, fmt.Errorf("%w: TypeDefOrRef tag %d in 0x%x", ErrInvalidCodedIndex, tag, v)
	}
	return New(typeDefOrRefTables[tag], v>>2), nil
}

// EncodeTypeDefOrRef is the inverse of DecodeTypeDefOrRef.
func EncodeTypeDefOrRef(t Token) (uint32, error) {
	for tag, table := range typeDefOrRefTables {
		if t.Table() == table {
			return t.Row()<<2 | uint32(tag), nil
		}
	}
	return 0, fmt.Errorf("%w: %s cannot be encoded as TypeDefOrRef", ErrInvalidCodedIndex, t.Table())
}
