// Package generation emits Go declarations and syscall stubs for metadata
// types and P/Invoke methods.
package generation

import (
	"errors"
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"
	"go.uber.org/zap"

	"gowinmd/internal/metadata"
)

// ErrNotPInvoke is returned for methods without an imported DLL.
var ErrNotPInvoke = errors.New("generation: method has no DLL import")

type Generator struct {
	scope       *metadata.Scope
	arch        metadata.Architecture
	packageName string
	log         *zap.Logger

	methods []*metadata.Method
	types   map[string]*metadata.TypeDef
	order   []string
}

type Option func(*Generator)

func WithLogger(log *zap.Logger) Option {
	return func(g *Generator) { g.log = log }
}

// WithArchitecture selects which variant of architecture-specific types is
// emitted. The default is X64.
func WithArchitecture(arch metadata.Architecture) Option {
	return func(g *Generator) { g.arch = arch }
}

func NewGenerator(scope *metadata.Scope, packageName string, opts ...Option) *Generator {
	g := &Generator{
		scope:       scope,
		arch:        metadata.X64,
		packageName: packageName,
		log:         zap.NewNop(),
		types:       make(map[string]*metadata.TypeDef),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Register looks name up as a method first and then as a type. It reports
// whether anything was registered.
func (g *Generator) Register(name string) (bool, error) {
	m, err := g.scope.FindMethod(name)
	if err != nil {
		return false, err
	}
	if m != nil {
		return true, g.RegisterMethod(m)
	}

	td, err := g.scope.FindTypeDef(name, g.arch)
	if err != nil || td == nil {
		return false, err
	}
	return true, g.RegisterType(td)
}

// RegisterMethod adds a P/Invoke method and every type its signature uses.
func (g *Generator) RegisterMethod(m *metadata.Method) error {
	dll, err := m.DllImport()
	if err != nil {
		return err
	}
	if dll == "" {
		return fmt.Errorf("%s: %w", m.Name(), ErrNotPInvoke)
	}
	if slices.Contains(g.methods, m) {
		return nil
	}

	ret, err := m.ReturnType()
	if err != nil {
		return err
	}
	if _, _, err := g.goType(ret); err != nil {
		return fmt.Errorf("%s: %w", m.Name(), err)
	}
	params, err := m.Parameters()
	if err != nil {
		return err
	}
	for _, p := range params {
		if _, _, err := g.goType(p.TypeIdentifier()); err != nil {
			return fmt.Errorf("%s: %w", m.Name(), err)
		}
	}

	g.methods = append(g.methods, m)
	g.log.Debug("method registered", zap.String("method", m.Name()), zap.String("dll", dll))
	return nil
}

// RegisterType adds a type definition and the types of its fields.
func (g *Generator) RegisterType(td *metadata.TypeDef) error {
	if existing, ok := g.types[td.Name()]; ok {
		if existing != td {
			g.log.Debug("type name already registered", zap.String("type", td.FullName()), zap.String("kept", existing.FullName()))
		}
		return nil
	}
	g.types[td.Name()] = td
	g.order = append(g.order, td.Name())

	if !td.IsStruct() {
		return nil
	}
	fields, err := td.Fields()
	if err != nil {
		return err
	}
	for _, f := range fields {
		if f.IsStatic() {
			continue
		}
		t, err := f.TypeIdentifier()
		if err != nil {
			return err
		}
		if _, _, err := g.goType(t); err != nil {
			return fmt.Errorf("%s.%s: %w", td.Name(), f.Name(), err)
		}
	}
	return nil
}

func (g *Generator) Methods() []*metadata.Method {
	return slices.Clone(g.methods)
}

// Types returns the registered types in registration order.
func (g *Generator) Types() []*metadata.TypeDef {
	types := make([]*metadata.TypeDef, 0, len(g.order))
	for _, name := range g.order {
		types = append(types, g.types[name])
	}
	return types
}

// Files renders one file per type and one file holding the method stubs,
// keyed by file name.
func (g *Generator) Files() (map[string]*jen.File, error) {
	files := make(map[string]*jen.File, len(g.order)+1)
	for _, td := range g.Types() {
		f := jen.NewFile(g.packageName)
		if err := g.generateType(td, f); err != nil {
			return nil, fmt.Errorf("%s: %w", td.FullName(), err)
		}
		files[td.Name()+".go"] = f
	}

	if len(g.methods) > 0 {
		f := jen.NewFile(g.packageName)
		if err := g.generateMethods(f); err != nil {
			return nil, err
		}
		files[g.packageName+".go"] = f
	}
	return files, nil
}

// Generate writes every file to outputPath, creating it when missing.
func (g *Generator) Generate(outputPath string) error {
	files, err := g.Files()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputPath, os.ModePerm); err != nil {
		return err
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		path := filepath.Join(outputPath, name)
		if err := files[name].Save(path); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		g.log.Debug("file written", zap.String("path", path))
	}
	g.log.Info("generation finished", zap.Int("files", len(files)), zap.String("output", outputPath))
	return nil
}

func (g *Generator) generateType(td *metadata.TypeDef, f *jen.File) error {
	switch {
	case td.IsDelegate():
		f.Type().Id(td.Name()).Uintptr()
		return nil
	case !td.IsStruct() && !td.IsEnum():
		return nil
	}

	if t, ok, err := g.underlying(td); err != nil {
		return err
	} else if ok {
		code, _, err := g.goType(t)
		if err != nil {
			return err
		}
		f.Type().Id(td.Name()).Add(code)
		return nil
	}

	layout, err := td.Layout()
	if err != nil {
		return err
	}
	fields, err := td.Fields()
	if err != nil {
		return err
	}

	var genErr error
	if layout == metadata.ExplicitLayout {
		f.Comment("Members overlap; only the first is declared.")
	}
	f.Type().Id(td.Name()).StructFunc(func(s *jen.Group) {
		for _, field := range fields {
			if field.IsStatic() {
				continue
			}
			t, err := field.TypeIdentifier()
			if err != nil {
				genErr = err
				return
			}
			code, _, err := g.goType(t)
			if err != nil {
				genErr = err
				return
			}
			s.Id(identifier(field.Name(), 0)).Add(code)
			if layout == metadata.ExplicitLayout {
				return
			}
		}
	})
	return genErr
}

func (g *Generator) generateMethods(f *jen.File) error {
	modules := make(map[string]string)
	var (
		decls    []jen.Code
		usesBool bool
		genErr   error
	)

	for _, m := range g.methods {
		dll, err := m.DllImport()
		if err != nil {
			return err
		}
		if _, ok := modules[dll]; !ok {
			modules[dll] = moduleVar(dll)
			decls = append(decls, jen.Id(modules[dll]).Op("=").Qual("syscall", "NewLazyDLL").Call(jen.Lit(dll)))
		}
		entry, err := m.ImportName()
		if err != nil {
			return err
		}
		if entry == "" {
			entry = m.Name()
		}
		decls = append(decls, jen.Id("proc"+m.Name()).Op("=").Id(modules[dll]).Dot("NewProc").Call(jen.Lit(entry)))
	}
	f.Var().Defs(decls...)

	for _, m := range g.methods {
		params, err := m.Parameters()
		if err != nil {
			return err
		}
		ret, err := m.ReturnType()
		if err != nil {
			return err
		}
		retCode, retKind, err := g.goType(ret)
		if err != nil {
			return err
		}

		names := make([]string, len(params))
		for i, p := range params {
			names[i] = identifier(p.Name(), p.Sequence())
		}

		fn := f.Func().Id(m.Name()).ParamsFunc(func(pg *jen.Group) {
			for i, p := range params {
				code, _, err := g.goType(p.TypeIdentifier())
				if err != nil {
					genErr = err
					return
				}
				pg.Id(names[i]).Add(code)
			}
		})
		if retKind != voidArg {
			fn.Add(retCode)
		}

		fn.BlockFunc(func(body *jen.Group) {
			args := make([]jen.Code, 0, len(params))
			for i, p := range params {
				_, kind, err := g.goType(p.TypeIdentifier())
				if err != nil {
					genErr = err
					return
				}
				if kind == boolArg {
					usesBool = true
				}
				args = append(args, callArg(names[i], kind))
			}

			call := jen.Id("proc" + m.Name()).Dot("Call").Call(args...)
			if retKind == voidArg {
				body.Add(call)
				return
			}
			body.List(jen.Id("r1"), jen.Id("_"), jen.Id("_")).Op(":=").Add(call)
			body.Return(returnValue(retCode, retKind))
		}).Line()
	}

	if usesBool {
		f.Func().Id("boolToUintptr").Params(jen.Id("b").Bool()).Uintptr().Block(
			jen.If(jen.Id("b")).Block(jen.Return(jen.Lit(1))),
			jen.Return(jen.Lit(0)),
		)
	}
	return genErr
}

func callArg(name string, kind argKind) jen.Code {
	switch kind {
	case pointerArg:
		return jen.Uintptr().Call(jen.Qual("unsafe", "Pointer").Call(jen.Id(name)))
	case boolArg:
		return jen.Id("boolToUintptr").Call(jen.Id(name))
	case floatArg:
		return jen.Uintptr().Call(jen.Qual("math", "Float64bits").Call(jen.Float64().Call(jen.Id(name))))
	case aggregateArg:
		return jen.Uintptr().Call(jen.Qual("unsafe", "Pointer").Call(jen.Op("&").Id(name)))
	}
	return jen.Uintptr().Call(jen.Id(name))
}

func returnValue(code *jen.Statement, kind argKind) jen.Code {
	switch kind {
	case pointerArg:
		return jen.Parens(code.Clone()).Call(jen.Qual("unsafe", "Pointer").Call(jen.Id("r1")))
	case boolArg:
		return jen.Id("r1").Op("!=").Lit(0)
	case floatArg:
		return code.Clone().Call(jen.Qual("math", "Float64frombits").Call(jen.Uint64().Call(jen.Id("r1"))))
	case aggregateArg:
		return jen.Op("*").Parens(jen.Op("*").Add(code.Clone())).Call(jen.Qual("unsafe", "Pointer").Call(jen.Op("&").Id("r1")))
	}
	return code.Clone().Call(jen.Id("r1"))
}

// moduleVar names the lazy DLL variable: USER32.dll becomes modUser32.
func moduleVar(dll string) string {
	base := strings.TrimSuffix(dll, filepath.Ext(dll))
	var b strings.Builder
	b.WriteString("mod")
	upper := true
	for _, r := range strings.ToLower(base) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// identifier makes a metadata name usable as a Go identifier.
func identifier(name string, sequence uint32) string {
	if name == "" {
		return fmt.Sprintf("p%d", sequence)
	}
	if token.IsKeyword(name) {
		return name + "_"
	}
	return name
}
