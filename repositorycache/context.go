package repositorycache

import (
	"context"
	"sync"

	"github.com/uptrace/bun"
)

type bypassContextKey struct{}

type txContextKey struct{}

// WithoutCache marks ctx so cached models read straight from the source.
func WithoutCache(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, bypassContextKey{}, true)
}

func cacheBypassed(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	bypass, _ := ctx.Value(bypassContextKey{}).(bool)
	return bypass
}

// pendingInvalidation is an invalidation held back until its transaction commits.
type pendingInvalidation struct {
	resource string
	pattern  string
}

// txScope carries an open transaction and the invalidations its writes produced.
type txScope struct {
	tx      bun.Tx
	mu      sync.Mutex
	pending []pendingInvalidation
}

func (s *txScope) hold(resource, pattern string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pending {
		if p.resource == resource && p.pattern == pattern {
			return
		}
	}
	s.pending = append(s.pending, pendingInvalidation{resource: resource, pattern: pattern})
}

func (s *txScope) drain() []pendingInvalidation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

func withTxScope(ctx context.Context, scope *txScope) context.Context {
	return context.WithValue(ctx, txContextKey{}, scope)
}

func txScopeFrom(ctx context.Context) *txScope {
	if ctx == nil {
		return nil
	}
	scope, _ := ctx.Value(txContextKey{}).(*txScope)
	return scope
}

// TxFromContext returns the transaction opened by Facade.RunInTx, if any.
func TxFromContext(ctx context.Context) (bun.IDB, bool) {
	scope := txScopeFrom(ctx)
	if scope == nil {
		return nil, false
	}
	return scope.tx, true
}
