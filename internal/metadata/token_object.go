package metadata

import (
	"gowinmd/internal/token"
)

// TokenObject binds a token to the Scope that can resolve it.
type TokenObject struct {
	scope *Scope
	token token.Token
}

func (o TokenObject) Token() token.Token { return o.token }

func (o TokenObject) Scope() *Scope { return o.scope }

// IsResolvedToken reports whether the backend knows the token as a real row.
// Synthesized objects, such as an implicit return parameter, carry a nil token
// and are never resolved.
func (o TokenObject) IsResolvedToken() bool {
	return o.scope != nil && !o.token.IsNil() && o.scope.backend.IsValidToken(o.token)
}

// Equal compares token and owning scope. Tokens are row numbers within one
// file, so equal tokens from different scopes name different entities.
func (o TokenObject) Equal(other TokenObject) bool {
	return o.token == other.token && o.scope == other.scope
}

// Key returns a comparable value suitable as a map key across scopes.
func (o TokenObject) Key() Key {
	return Key{scope: o.scope, token: o.token}
}

// Key identifies a TokenObject within the process.
type Key struct {
	scope *Scope
	token token.Token
}
