package metadata

import (
	"gowinmd/internal/signature"
	"gowinmd/internal/token"
)

// Event is an event of a TypeDef.
type Event struct {
	TokenObject
	*attributes

	class     token.Token
	name      string
	flags     uint32
	eventType token.Token
	addOn     token.Token
	removeOn  token.Token
}

func newEvent(s *Scope, t token.Token) (*Event, error) {
	props, err := s.backend.EventProps(t)
	if err != nil {
		return nil, err
	}
	obj := TokenObject{scope: s, token: t}
	return &Event{
		TokenObject: obj,
		attributes:  newAttributes(obj),
		class:       props.Class,
		name:        props.Name,
		flags:       props.Flags,
		eventType:   props.EventType,
		addOn:       props.AddOn,
		removeOn:    props.RemoveOn,
	}, nil
}

func (e *Event) Name() string { return e.name }

func (e *Event) Flags() uint32 { return e.flags }

// TypeIdentifier returns the delegate type of the event.
func (e *Event) TypeIdentifier() signature.TypeIdentifier {
	name, _ := e.scope.TypeName(e.eventType)
	return signature.TypeIdentifier{CorType: signature.ElementTypeClass, Name: name, Token: e.eventType}
}

func (e *Event) AddMethod() (*Method, error) { return e.scope.method(e.addOn) }

func (e *Event) RemoveMethod() (*Method, error) { return e.scope.method(e.removeOn) }

func (e *Event) Parent() *TypeDef {
	return e.scope.FindTypeDefByToken(e.class)
}
