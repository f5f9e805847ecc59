package resolver

import (
	"chat-hub/errors"
	"context"
	"fmt"

	"github.com/samber/lo"
)

// Collection is the queryable set of records behind a QueryResolver.
type Collection[T any] interface {
	// Select returns the records matching every criterion, all records for nil criteria.
	Select(ctx context.Context, criteria Criteria) ([]T, error)
	// Matches reports whether record satisfies every criterion.
	Matches(record T, criteria Criteria) bool
}

// Projection serializes one record into its wire shape.
// A malformed record is reported with an *errors.ValidationError.
type Projection[T any] interface {
	Project(ctx context.Context, caller Caller, record T) (map[string]any, error)
}

type queryOptions struct {
	filter  Query
	exclude Query
	get     Query
	many    bool
	listKey string
}

type QueryOption func(*queryOptions)

func WithFilter(q Query) QueryOption {
	return func(o *queryOptions) { o.filter = q }
}

func WithExclude(q Query) QueryOption {
	return func(o *queryOptions) { o.exclude = q }
}

// WithGet narrows the result to exactly one record.
func WithGet(q Query) QueryOption {
	return func(o *queryOptions) { o.get = q }
}

// AsList projects every selected record into a list held under key,
// the envelope data stays an object.
func AsList(key string) QueryOption {
	return func(o *queryOptions) {
		o.many = true
		o.listKey = key
	}
}

// QueryResolver applies filter, then exclude, then get against a Collection and
// projects the result. It never mutates the collection.
type QueryResolver[T any] struct {
	collection Collection[T]
	projection Projection[T]
	options    queryOptions
}

func NewQueryResolver[T any](collection Collection[T], projection Projection[T], opts ...QueryOption) QueryResolver[T] {
	var options queryOptions
	for _, opt := range opts {
		opt(&options)
	}
	return QueryResolver[T]{collection: collection, projection: projection, options: options}
}

func (r QueryResolver[T]) Resolve(ctx context.Context, caller Caller, payload Payload) (any, error) {
	fields, err := payload.Fields()
	if err != nil {
		return nil, err
	}
	records, err := r.apply(ctx, caller, payload)
	if err != nil {
		return nil, err
	}

	if r.options.many {
		out := make([]map[string]any, 0, len(records))
		for _, record := range records {
			projected, err := r.project(ctx, caller, record, fields)
			if err != nil {
				return nil, err
			}
			out = append(out, projected)
		}
		return map[string]any{r.options.listKey: out}, nil
	}

	if len(records) != 1 {
		return nil, fmt.Errorf("%w: %d records match", errors.ErrNotFound, len(records))
	}
	return r.project(ctx, caller, records[0], fields)
}

func (r QueryResolver[T]) apply(ctx context.Context, caller Caller, payload Payload) ([]T, error) {
	filter, err := r.options.filter.Bind(caller, payload)
	if err != nil {
		return nil, err
	}
	exclude, err := r.options.exclude.Bind(caller, payload)
	if err != nil {
		return nil, err
	}
	get, err := r.options.get.Bind(caller, payload)
	if err != nil {
		return nil, err
	}

	records, err := r.collection.Select(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(exclude) > 0 {
		records = lo.Reject(records, func(record T, _ int) bool {
			return r.collection.Matches(record, exclude)
		})
	}
	if len(get) > 0 {
		records = lo.Filter(records, func(record T, _ int) bool {
			return r.collection.Matches(record, get)
		})
		if len(records) != 1 {
			return nil, fmt.Errorf("%w: %d records match", errors.ErrNotFound, len(records))
		}
	}
	return records, nil
}

func (r QueryResolver[T]) project(ctx context.Context, caller Caller, record T, fields []string) (map[string]any, error) {
	projected, err := r.projection.Project(ctx, caller, record)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		return projected, nil
	}
	return lo.PickByKeys(projected, fields), nil
}
