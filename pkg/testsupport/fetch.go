package testsupport

import (
	"context"
	"sync/atomic"
)

// CountingFetch wraps a fetch function and counts how often it runs.
type CountingFetch[T any] struct {
	fn    func(ctx context.Context) (T, error)
	calls atomic.Int64
}

// NewCountingFetch returns a CountingFetch around fn.
func NewCountingFetch[T any](fn func(ctx context.Context) (T, error)) *CountingFetch[T] {
	return &CountingFetch[T]{fn: fn}
}

// Returning is a CountingFetch that always yields v.
func Returning[T any](v T) *CountingFetch[T] {
	return NewCountingFetch(func(context.Context) (T, error) { return v, nil })
}

// Failing is a CountingFetch that always yields err.
func Failing[T any](err error) *CountingFetch[T] {
	return NewCountingFetch(func(context.Context) (T, error) {
		var zero T
		return zero, err
	})
}

// Fetch runs the wrapped function.
func (c *CountingFetch[T]) Fetch(ctx context.Context) (T, error) {
	c.calls.Add(1)
	return c.fn(ctx)
}

// Any adapts Fetch to the untyped fallback signature.
func (c *CountingFetch[T]) Any(ctx context.Context) (any, error) {
	return c.Fetch(ctx)
}

// Calls reports how many times Fetch ran.
func (c *CountingFetch[T]) Calls() int {
	return int(c.calls.Load())
}
