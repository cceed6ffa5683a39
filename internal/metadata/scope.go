// Package metadata exposes the contents of a metadata file as a navigable
// graph: Scope → TypeDef → Method → Parameter, with fields, properties, events
// and custom attributes hanging off the entities that own them.
//
// Everything below a Scope is created on first access and cached for the
// lifetime of the Scope. Back-references (a parameter's method, a method's
// type) are stored as tokens and looked up again through the Scope.
package metadata

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gowinmd/internal/backend"
	"gowinmd/internal/token"
)

// Scope is the metadata of one file. Its TypeDef index is built when the
// Scope is created.
type Scope struct {
	name    string
	guid    uuid.UUID
	version string
	backend backend.Backend
	log     *zap.Logger

	typeDefs []*TypeDef
	byToken  map[token.Token]*TypeDef
	byName   map[string][]*TypeDef

	moduleRefsOnce sync.Once
	moduleRefs     []string
	moduleRefsErr  error
}

// AssemblyRef names a referenced assembly.
type AssemblyRef struct {
	Name    string
	Version string
}

// NewScope indexes every TypeDef of b. The Scope takes ownership of b.
func NewScope(b backend.Backend, log *zap.Logger) (*Scope, error) {
	if log == nil {
		log = zap.NewNop()
	}
	props, err := b.ScopeProps()
	if err != nil {
		return nil, err
	}

	s := &Scope{
		name:    props.Name,
		guid:    props.GUID,
		version: props.Version,
		backend: b,
		log:     log,
		byToken: make(map[token.Token]*TypeDef),
		byName:  make(map[string][]*TypeDef),
	}

	err = backend.Each(b.EnumTypeDefs, func(t token.Token) (bool, error) {
		td, err := newTypeDef(s, t)
		if err != nil {
			return false, err
		}
		s.typeDefs = append(s.typeDefs, td)
		s.byToken[t] = td
		s.byName[td.FullName()] = append(s.byName[td.FullName()], td)
		if td.namespace != "" {
			s.byName[td.name] = append(s.byName[td.name], td)
		}
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("indexing %s: %w", props.Name, err)
	}

	log.Debug("scope loaded", zap.String("name", s.name), zap.Int("typedefs", len(s.typeDefs)))
	return s, nil
}

func (s *Scope) Name() string { return s.name }

func (s *Scope) GUID() uuid.UUID { return s.guid }

func (s *Scope) Version() string { return s.version }

// TypeDefs returns every TypeDef in enumeration order.
func (s *Scope) TypeDefs() []*TypeDef {
	return append([]*TypeDef(nil), s.typeDefs...)
}

// FindTypeDef returns the TypeDef with the given full or short name. When
// several architecture variants share the name, the first in enumeration order
// that supports arch is returned. A nil result with a nil error means no match.
func (s *Scope) FindTypeDef(name string, arch Architecture) (*TypeDef, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	matches := s.byName[name]
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	}
	for _, td := range matches {
		supported, err := td.SupportedArchitectures()
		if err != nil {
			return nil, err
		}
		if supported.Has(arch) {
			return td, nil
		}
	}
	return nil, nil
}

// FindTypeDefByToken looks up a TypeDef token. TypeRef and TypeSpec tokens are
// not resolved to their definitions.
func (s *Scope) FindTypeDefByToken(t token.Token) *TypeDef {
	return s.byToken[t]
}

// FindMethod returns the first method with the given name on any TypeDef.
func (s *Scope) FindMethod(name string) (*Method, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	for _, td := range s.typeDefs {
		m, err := td.FindMethod(name)
		if err != nil || m != nil {
			return m, err
		}
	}
	return nil, nil
}

// TypeName resolves TypeDef and TypeRef tokens to full type names for the
// signature decoder.
func (s *Scope) TypeName(t token.Token) (string, bool) {
	switch t.Table() {
	case token.TypeDef:
		if td := s.byToken[t]; td != nil {
			return td.FullName(), true
		}
		props, err := s.backend.TypeDefProps(t)
		if err != nil {
			return "", false
		}
		return joinName(props.Namespace, props.Name), true
	case token.TypeRef:
		props, err := s.backend.TypeRefProps(t)
		if err != nil {
			return "", false
		}
		return joinName(props.Namespace, props.Name), true
	}
	return "", false
}

// constructor returns the attribute type name and signature of an attribute
// constructor token.
func (s *Scope) constructor(ctor token.Token) (string, []byte, error) {
	switch ctor.Table() {
	case token.MemberRef:
		props, err := s.backend.MemberRefProps(ctor)
		if err != nil {
			return "", nil, err
		}
		name, _ := s.TypeName(props.Parent)
		return name, props.Signature, nil
	case token.MethodDef:
		props, err := s.backend.MethodProps(ctor)
		if err != nil {
			return "", nil, err
		}
		name, _ := s.TypeName(props.Class)
		return name, props.Signature, nil
	}
	return "", nil, fmt.Errorf("constructor %s: %w", ctor, backend.ErrNotFound)
}

// method looks a MethodDef token up again through its owning TypeDef.
func (s *Scope) method(t token.Token) (*Method, error) {
	if t.IsNil() {
		return nil, nil
	}
	props, err := s.backend.MethodProps(t)
	if err != nil {
		return nil, err
	}
	td := s.FindTypeDefByToken(props.Class)
	if td == nil {
		return nil, nil
	}
	methods, err := td.Methods()
	if err != nil {
		return nil, err
	}
	for _, m := range methods {
		if m.token == t {
			return m, nil
		}
	}
	return nil, nil
}

// ModuleRefs returns the names of the modules the scope imports from.
func (s *Scope) ModuleRefs() ([]string, error) {
	s.moduleRefsOnce.Do(func() {
		s.moduleRefsErr = backend.Each(s.backend.EnumModuleRefs, func(t token.Token) (bool, error) {
			name, err := s.backend.ModuleRefName(t)
			if err != nil {
				return false, err
			}
			s.moduleRefs = append(s.moduleRefs, name)
			return true, nil
		})
	})
	return s.moduleRefs, s.moduleRefsErr
}

func (s *Scope) AssemblyRefs() ([]AssemblyRef, error) {
	var refs []AssemblyRef
	err := backend.Each(s.backend.EnumAssemblyRefs, func(t token.Token) (bool, error) {
		props, err := s.backend.AssemblyRefProps(t)
		if err != nil {
			return false, err
		}
		refs = append(refs, AssemblyRef{Name: props.Name, Version: props.Version})
		return true, nil
	})
	return refs, err
}

func (s *Scope) UserStrings() ([]string, error) {
	var strs []string
	err := backend.Each(s.backend.EnumUserStrings, func(t token.Token) (bool, error) {
		str, err := s.backend.UserString(t)
		if err != nil {
			return false, err
		}
		strs = append(strs, str)
		return true, nil
	})
	return strs, err
}

// Close releases the backend. Objects obtained from the Scope must not be used
// afterwards.
func (s *Scope) Close() error {
	return s.backend.Close()
}

func joinName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}
