// Package retry retries startup connections with capped exponential backoff.
// Postgres and Redis often accept connections a few seconds after the
// service container starts.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

type permanent struct{ cause error }

func (p permanent) Error() string { return p.cause.Error() }
func (p permanent) Unwrap() error { return p.cause }

// Permanent wraps err so Do gives up at once and returns err unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{cause: err}
}

// IsPermanent reports whether err carries a Permanent mark.
func IsPermanent(err error) bool {
	return errors.As(err, new(permanent))
}

// Policy is the backoff schedule. Attempt n waits Base*Factor^(n-1), capped
// at Cap and spread by +/- Jitter of itself.
type Policy struct {
	Attempts int
	Base     time.Duration
	Cap      time.Duration
	Factor   float64
	Jitter   float64

	// Notify sees every failed attempt that will be retried.
	Notify func(attempt int, err error, wait time.Duration)
}

// DefaultPolicy gives a dependency roughly fifteen seconds to come up.
func DefaultPolicy() Policy {
	return Policy{Attempts: 5, Base: 500 * time.Millisecond, Cap: 10 * time.Second, Factor: 2, Jitter: 0.1}
}

// wait is the pause after the given failed attempt.
func (p Policy) wait(attempt int) time.Duration {
	w := math.Min(float64(p.Base)*math.Pow(p.Factor, float64(attempt-1)), float64(p.Cap))
	if p.Jitter > 0 {
		w *= 1 + p.Jitter*(2*rand.Float64()-1)
	}
	return time.Duration(math.Max(w, 0))
}

// Option adjusts a Policy. Out-of-range values are ignored.
type Option func(*Policy)

func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.Attempts = n
		}
	}
}

func WithInitialDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d >= 0 {
			p.Base = d
		}
	}
}

func WithMaxDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.Cap = d
		}
	}
}

func WithJitter(f float64) Option {
	return func(p *Policy) {
		if f >= 0 && f <= 1 {
			p.Jitter = f
		}
	}
}

func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(p *Policy) { p.Notify = fn }
}

// Do calls op until it returns nil or a Permanent error, the attempts run
// out, or ctx ends. Failures report op's most recent error; a context that
// ends before op ever ran reports the context error.
func Do(ctx context.Context, op func(ctx context.Context) error, opts ...Option) error {
	p := DefaultPolicy()
	for _, o := range opts {
		o(&p)
	}

	var last error
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return firstNonNil(last, ctx.Err())
		}
		last = op(ctx)
		switch {
		case last == nil:
			return nil
		case IsPermanent(last):
			return errors.Unwrap(last)
		case attempt >= p.Attempts:
			return last
		}

		w := p.wait(attempt)
		if p.Notify != nil {
			p.Notify(attempt, last, w)
		}
		t := time.NewTimer(w)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return last
		}
	}
}

// DoWithData is Do for an op that yields a value.
func DoWithData[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var v T
	err := Do(ctx, func(ctx context.Context) (err error) {
		v, err = op(ctx)
		return err
	}, opts...)
	return v, err
}

func firstNonNil(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
