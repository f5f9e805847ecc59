package resolver

import "fmt"

// BoundFunc computes a criterion at call time from the caller and the payload.
type BoundFunc func(caller Caller, payload Payload) (any, error)

// Value is either a literal or a function bound to the call context.
type Value struct {
	literal any
	bound   BoundFunc
}

func Literal(v any) Value {
	return Value{literal: v}
}

func Bound(fn BoundFunc) Value {
	return Value{bound: fn}
}

func (v Value) IsBound() bool {
	return v.bound != nil
}

// Eval returns the literal, or calls the bound function.
func (v Value) Eval(caller Caller, payload Payload) (any, error) {
	if v.bound == nil {
		return v.literal, nil
	}
	return v.bound(caller, payload)
}

// Query is an unresolved set of criteria keyed by field name.
type Query map[string]Value

// Criteria is a Query resolved for one call.
type Criteria map[string]any

// Bind evaluates every value of the query. The query itself is left untouched
// so the same resolver can serve the next call with a different caller.
func (q Query) Bind(caller Caller, payload Payload) (Criteria, error) {
	if len(q) == 0 {
		return nil, nil
	}
	criteria := make(Criteria, len(q))
	for field, value := range q {
		resolved, err := value.Eval(caller, payload)
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", field, err)
		}
		criteria[field] = resolved
	}
	return criteria, nil
}
