package repositorycache

import (
	"context"

	"github.com/phucquyet1202/EtaxiBE/query"
)

// Queryable is the read side of a persistence model. FindFirst and FindUnique
// return the zero value of T, not an error, when nothing matches.
type Queryable[T any] interface {
	FindMany(ctx context.Context, args query.Args) ([]T, error)
	FindFirst(ctx context.Context, args query.Args) (T, error)
	FindUnique(ctx context.Context, args query.Args) (T, error)
	Count(ctx context.Context, args query.Args) (int, error)
	Aggregate(ctx context.Context, args query.AggregateArgs) (query.Row, error)
	GroupBy(ctx context.Context, args query.GroupByArgs) ([]query.Row, error)
}

// Writable is the write side of a persistence model. Implementations run
// inside the transaction carried by ctx, if any.
type Writable[T any] interface {
	Create(ctx context.Context, record T) (T, error)
	CreateMany(ctx context.Context, records []T) ([]T, error)
	Update(ctx context.Context, record T) (T, error)
	UpdateMany(ctx context.Context, records []T) ([]T, error)
	Upsert(ctx context.Context, record T) (T, error)
	Delete(ctx context.Context, record T) error
	DeleteMany(ctx context.Context, args query.Args) error
}

// Model is a persistence model with both capabilities.
type Model[T any] interface {
	Queryable[T]
	Writable[T]
}
