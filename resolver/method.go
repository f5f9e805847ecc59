package resolver

import "context"

// HandlerFunc is an imperative action such as authorization or message submission.
type HandlerFunc func(ctx context.Context, caller Caller, payload Payload) (any, error)

// MethodResolver wraps a HandlerFunc and hands it the dispatching caller.
type MethodResolver struct {
	handler HandlerFunc
}

func NewMethodResolver(handler HandlerFunc) MethodResolver {
	return MethodResolver{handler: handler}
}

func (m MethodResolver) Resolve(ctx context.Context, caller Caller, payload Payload) (any, error) {
	return m.handler(ctx, caller, payload)
}
