package resolver

import (
	"context"

	"github.com/flat-hunter/internal/circuitbreaker"
	apperrors "github.com/flat-hunter/internal/errors"
)

// WithBreaker wraps a resolver with circuit-breaker protection. While the
// breaker is open, resolutions fail fast with a ResolutionError instead of
// paying the browser-session cost; the caller degrades to sentinel
// reference fields as with any other resolution failure.
func WithBreaker(inner Resolver, breaker *circuitbreaker.Breaker) Resolver {
	return Func(func(ctx context.Context, address string) (Result, error) {
		var res Result
		err := breaker.Execute(func() error {
			var innerErr error
			res, innerErr = inner.Resolve(ctx, address)
			return innerErr
		})
		if err != nil {
			if err == circuitbreaker.ErrOpen {
				return Result{}, apperrors.NewResolutionError(address, err)
			}
			return Result{}, err
		}
		return res, nil
	})
}
