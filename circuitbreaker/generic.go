package circuitbreaker

import "context"

// Do is a type-safe wrapper around Breaker.Call.
// It eliminates the need for type assertions on the return value.
//
// Usage:
//
//	val, err := circuitbreaker.Do(ctx, b, func() (int, error) {
//	    return 42, nil
//	})
func Do[T any](ctx context.Context, b *Breaker, fn func() (T, error)) (T, error) {
	var result T
	err := b.Call(ctx, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
