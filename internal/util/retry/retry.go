package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type policy struct {
	retries int
	first   time.Duration
	ceiling time.Duration
}

// Option adjusts the retry policy.
type Option func(*policy)

// WithMaxRetries sets how many times a failed call is repeated.
func WithMaxRetries(n int) Option {
	return func(p *policy) { p.retries = n }
}

// WithInitialDelay sets the wait before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(p *policy) { p.first = d }
}

// WithMaxDelay caps every wait, including server hints.
func WithMaxDelay(d time.Duration) Option {
	return func(p *policy) { p.ceiling = d }
}

// wait returns the pause before retry n (zero based). The delay doubles per
// retry up to the ceiling; a positive hint replaces it.
func (p policy) wait(n int, hint time.Duration) time.Duration {
	if hint > 0 {
		return min(hint, p.ceiling)
	}
	d := p.first
	for i := 0; i < n && d < p.ceiling; i++ {
		d *= 2
	}
	return min(d, p.ceiling)
}

// Do calls op until it succeeds, returns a Fatal error, runs out of retries or
// ctx is done. Errors that implement RetryAfter() time.Duration (rate-limit
// responses) set the next wait themselves.
func Do[T any](ctx context.Context, op func() (T, error), opts ...Option) (T, error) {
	p := policy{retries: 5, first: 500 * time.Millisecond, ceiling: 30 * time.Second}
	for _, o := range opts {
		o(&p)
	}

	var zero T
	for n := 0; ; n++ {
		v, err := op()
		switch {
		case err == nil:
			return v, nil
		case IsFatal(err):
			return zero, fmt.Errorf("fatal error (not retrying): %w", err)
		case n >= p.retries:
			return zero, fmt.Errorf("operation failed after %d attempts: %w", n+1, err)
		}

		var hint time.Duration
		var h interface{ RetryAfter() time.Duration }
		if errors.As(err, &h) {
			hint = h.RetryAfter()
		}
		t := time.NewTimer(p.wait(n, hint))
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, fmt.Errorf("context cancelled after %d attempts: %w", n+1, ctx.Err())
		case <-t.C:
		}
	}
}

type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks err so Do returns it without retrying. Fatal(nil) is nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err, or anything it wraps, was marked by Fatal.
func IsFatal(err error) bool {
	var f *fatalError
	return errors.As(err, &f)
}
