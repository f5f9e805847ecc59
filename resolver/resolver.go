// Package resolver maps a message type to the handler producing its response.
//
// Two kinds of resolvers share the Resolver interface: MethodResolver wraps an
// imperative handler, QueryResolver describes a read-only query over a
// Collection whose criteria may depend on the caller at call time.
package resolver

import (
	"chat-hub/domain"
	"context"
)

// Caller describes the connection on whose behalf a resolver runs.
type Caller interface {
	// Identity returns the authenticated identity, false while unauthenticated.
	Identity() (domain.Identity, bool)
}

// Resolver produces the response of one envelope type.
// A nil result means nothing has to be echoed back.
type Resolver interface {
	Resolve(ctx context.Context, caller Caller, payload Payload) (any, error)
}

// Table is the fixed mapping from envelope type to resolver.
// It is built once per connection and never mutated afterwards.
type Table map[string]Resolver

func (t Table) Lookup(kind string) (Resolver, bool) {
	r, ok := t[kind]
	return r, ok
}
