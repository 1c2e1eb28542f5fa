// Package resolver provides the reference-price lookup capability: given a
// normalized listing address, find the comparable market price per square
// meter for its neighborhood.
//
// The one concrete implementation drives a headless browser through a
// market-data site's consent and autocomplete flow. It is expensive and
// flaky; callers cache its results and protect it with a timeout and a
// circuit breaker.
package resolver

import (
	"context"
	"time"

	apperrors "github.com/flat-hunter/internal/errors"
)

// Result is a successful resolution: the market price per square meter and
// the address the market-data site actually resolved to.
type Result struct {
	SqmPrice int
	Address  string
}

// Resolver resolves a free-text address to a comparable market price.
// Implementations must return a ResolutionError on any failure, never
// panic, and must release every session resource on every exit path.
type Resolver interface {
	Resolve(ctx context.Context, address string) (Result, error)
}

// Func adapts a function to the Resolver interface.
type Func func(ctx context.Context, address string) (Result, error)

// Resolve implements Resolver.
func (f Func) Resolve(ctx context.Context, address string) (Result, error) {
	return f(ctx, address)
}

// WithTimeout bounds every Resolve call, converting expiry into a
// ResolutionError that is fatal for the current listing only.
func WithTimeout(inner Resolver, timeout time.Duration) Resolver {
	return Func(func(ctx context.Context, address string) (Result, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		res, err := inner.Resolve(ctx, address)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, apperrors.NewResolutionError(address, ctx.Err())
			}
			return Result{}, err
		}
		return res, nil
	})
}
