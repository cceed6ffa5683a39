package generation

import (
	"github.com/dave/jennifer/jen"

	"gowinmd/internal/metadata"
	"gowinmd/internal/signature"
)

const nativeTypedefAttribute = "Windows.Win32.Foundation.Metadata.NativeTypedefAttribute"

// argKind decides how a value crosses the syscall boundary.
type argKind int

const (
	voidArg argKind = iota
	intArg
	pointerArg
	boolArg
	floatArg
	aggregateArg
)

// The map of basic element types to Go equivalents.
var builtInElementTypes = map[signature.ElementType]struct {
	name string
	kind argKind
}{
	signature.ElementTypeBoolean: {"bool", boolArg},
	signature.ElementTypeChar:    {"uint16", intArg},
	signature.ElementTypeI1:      {"int8", intArg},
	signature.ElementTypeI2:      {"int16", intArg},
	signature.ElementTypeI4:      {"int32", intArg},
	signature.ElementTypeI8:      {"int64", intArg},
	signature.ElementTypeU1:      {"uint8", intArg},
	signature.ElementTypeU2:      {"uint16", intArg},
	signature.ElementTypeU4:      {"uint32", intArg},
	signature.ElementTypeU8:      {"uint64", intArg},
	signature.ElementTypeR4:      {"float32", floatArg},
	signature.ElementTypeR8:      {"float64", floatArg},
	signature.ElementTypeI:       {"uintptr", intArg},
	signature.ElementTypeU:       {"uintptr", intArg},
}

// Types created by typedef in C that have a direct Go equivalent.
var builtInTypeDefs = map[string]func() (*jen.Statement, argKind){
	"Windows.Win32.Foundation.BOOL":  func() (*jen.Statement, argKind) { return jen.Int32(), intArg },
	"Windows.Win32.Foundation.PSTR":  func() (*jen.Statement, argKind) { return jen.Op("*").Byte(), pointerArg },
	"Windows.Win32.Foundation.PWSTR": func() (*jen.Statement, argKind) { return jen.Op("*").Uint16(), pointerArg },
	"System.Guid":                    func() (*jen.Statement, argKind) { return jen.Index(jen.Lit(16)).Byte(), aggregateArg },
}

// goType maps a signature type to Go source, registering any type definition
// it refers to.
func (g *Generator) goType(t signature.TypeIdentifier) (*jen.Statement, argKind, error) {
	t = t.StripModifiers()
	if builtIn, ok := builtInTypeDefs[t.Name]; ok {
		code, kind := builtIn()
		return code, kind, nil
	}
	if builtIn, ok := builtInElementTypes[t.CorType]; ok {
		return jen.Id(builtIn.name), builtIn.kind, nil
	}

	switch t.CorType {
	case signature.ElementTypeVoid:
		return nil, voidArg, nil
	case signature.ElementTypeString:
		return jen.Op("*").Uint16(), pointerArg, nil
	case signature.ElementTypePtr, signature.ElementTypeByRef, signature.ElementTypeSZArray:
		elem, _ := t.Elem()
		if elem.StripModifiers().CorType == signature.ElementTypeVoid {
			return jen.Qual("unsafe", "Pointer"), pointerArg, nil
		}
		code, _, err := g.goType(elem)
		if err != nil {
			return nil, 0, err
		}
		return jen.Op("*").Add(code), pointerArg, nil
	case signature.ElementTypeArray:
		elem, _ := t.Elem()
		code, _, err := g.goType(elem)
		if err != nil {
			return nil, 0, err
		}
		if t.ArrayShape != nil && len(t.ArrayShape.Sizes) > 0 && t.ArrayShape.Sizes[0] > 0 {
			return jen.Index(jen.Lit(int(t.ArrayShape.Sizes[0]))).Add(code), aggregateArg, nil
		}
		return jen.Op("*").Add(code), pointerArg, nil
	case signature.ElementTypeValueType, signature.ElementTypeClass:
		return g.namedType(t.Name)
	}
	return jen.Uintptr(), intArg, nil
}

func (g *Generator) namedType(name string) (*jen.Statement, argKind, error) {
	td, err := g.scope.FindTypeDef(name, g.arch)
	if err != nil {
		return nil, 0, err
	}
	if td == nil {
		g.log.Debug("unresolved type mapped to uintptr")
		return jen.Uintptr(), intArg, nil
	}

	switch td.Kind() {
	case metadata.InterfaceKind, metadata.ClassKind:
		return jen.Uintptr(), intArg, nil
	case metadata.DelegateKind:
		if err := g.RegisterType(td); err != nil {
			return nil, 0, err
		}
		return jen.Id(td.Name()), intArg, nil
	}

	if err := g.RegisterType(td); err != nil {
		return nil, 0, err
	}
	kind := aggregateArg
	if underlying, ok, err := g.underlying(td); err != nil {
		return nil, 0, err
	} else if ok {
		_, kind, err = g.goType(underlying)
		if err != nil {
			return nil, 0, err
		}
	}
	return jen.Id(td.Name()), kind, nil
}

// underlying returns the single value type of an enum or native typedef.
func (g *Generator) underlying(td *metadata.TypeDef) (signature.TypeIdentifier, bool, error) {
	if !td.IsEnum() {
		native, err := td.ExistsAttribute(nativeTypedefAttribute)
		if err != nil || !native {
			return signature.TypeIdentifier{}, false, err
		}
	}
	fields, err := td.Fields()
	if err != nil {
		return signature.TypeIdentifier{}, false, err
	}
	for _, f := range fields {
		if f.IsStatic() {
			continue
		}
		t, err := f.TypeIdentifier()
		return t, err == nil, err
	}
	return signature.TypeIdentifier{}, false, nil
}
