package metadata

import (
	"fmt"
	"sync"

	"gowinmd/internal/backend"
)

// HasCustomAttributes is implemented by every entity that can be decorated
// with custom attributes.
type HasCustomAttributes interface {
	CustomAttributes() ([]*CustomAttribute, error)
	FindAttribute(name string) (*CustomAttribute, error)
	ExistsAttribute(name string) (bool, error)
	AttributeAsString(name string) (string, error)
}

// attributes is the custom attribute capability shared by the graph entities.
type attributes struct {
	owner TokenObject

	listOnce sync.Once
	list     []*CustomAttribute
	listErr  error
}

func newAttributes(owner TokenObject) *attributes {
	return &attributes{owner: owner}
}

// CustomAttributes returns the attributes attached to the owner. Objects with
// an unresolved token have none; enumerating with such a token would list every
// attribute in the scope.
func (a *attributes) CustomAttributes() ([]*CustomAttribute, error) {
	a.listOnce.Do(func() {
		if !a.owner.IsResolvedToken() {
			return
		}
		s := a.owner.scope
		tokens, err := backend.Collect(func() (backend.Enumerator, error) {
			return s.backend.EnumCustomAttributes(a.owner.token)
		})
		if err != nil {
			a.listErr = fmt.Errorf("enumerating attributes of %s: %w", a.owner.token, err)
			return
		}
		for _, t := range tokens {
			ca, err := newCustomAttribute(s, t)
			if err != nil {
				a.listErr = err
				return
			}
			a.list = append(a.list, ca)
		}
	})
	return a.list, a.listErr
}

// FindAttribute returns the first attribute whose type has the given full
// name, or nil.
func (a *attributes) FindAttribute(name string) (*CustomAttribute, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	list, err := a.CustomAttributes()
	if err != nil {
		return nil, err
	}
	for _, ca := range list {
		if ca.Name() == name {
			return ca, nil
		}
	}
	return nil, nil
}

func (a *attributes) ExistsAttribute(name string) (bool, error) {
	ca, err := a.FindAttribute(name)
	return ca != nil, err
}

// AttributeAsString returns the first constructor argument of the named
// attribute when it is a string, and "" when the attribute is missing or its
// first argument is anything else.
func (a *attributes) AttributeAsString(name string) (string, error) {
	ca, err := a.FindAttribute(name)
	if err != nil || ca == nil {
		return "", err
	}
	params, err := ca.Parameters()
	if err != nil {
		return "", err
	}
	if len(params) == 0 {
		return "", nil
	}
	s, _ := params[0].AsString()
	return s, nil
}

// findAnyAttribute returns the first attribute matching one of names.
func (a *attributes) findAnyAttribute(names ...string) (*CustomAttribute, error) {
	for _, name := range names {
		ca, err := a.FindAttribute(name)
		if err != nil || ca != nil {
			return ca, err
		}
	}
	return nil, nil
}
