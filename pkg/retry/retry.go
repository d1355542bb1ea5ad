package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type RetryableError interface {
	error
	IsRetryable() bool
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) IsRetryable() bool {
	return true
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func NewRetryableError(err error) RetryableError {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

type FatalError interface {
	error
	IsFatal() bool
}

type fatalError struct {
	err error
}

func (e *fatalError) Error() string {
	return e.err.Error()
}

func (e *fatalError) IsFatal() bool {
	return true
}

func (e *fatalError) Unwrap() error {
	return e.err
}

func NewFatalError(err error) FatalError {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err, or anything it wraps, asks not to be retried.
func IsFatal(err error) bool {
	var fatalErr FatalError
	return errors.As(err, &fatalErr) && fatalErr.IsFatal()
}

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxElapsedTime  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		MaxElapsedTime:  5 * time.Minute,
	}
}

// NextDelay is the delay before the attempt following the given one (1-based).
func (p Policy) NextDelay(attempt int) time.Duration {
	return CalculateBackoffDuration(attempt-1, p.InitialInterval, p.Multiplier, p.MaxInterval)
}

func (p Policy) backOff(ctx context.Context, bounded bool) backoff.BackOff {
	var maxElapsed time.Duration
	if bounded {
		maxElapsed = p.MaxElapsedTime
	}

	var b backoff.BackOff = backoff.WithContext(p.exponential(maxElapsed), ctx)
	if bounded {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	return b
}

func Retry(ctx context.Context, policy Policy, fn func() error) error {
	return RetryWithCallback(ctx, policy, fn, nil)
}

// RetryWithCallback runs fn until it succeeds, returns a fatal error, or the
// policy is exhausted. onRetry fires before each sleep.
func RetryWithCallback(ctx context.Context, policy Policy, fn func() error, onRetry func(attempt int, err error, nextDelay time.Duration)) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}

		if IsFatal(err) {
			return backoff.Permanent(err)
		}

		var retryableErr RetryableError
		if !errors.As(err, &retryableErr) {
			err = NewRetryableError(err)
		}

		if onRetry != nil && attempt < policy.MaxAttempts {
			onRetry(attempt, err, policy.NextDelay(attempt))
		}

		return err
	}

	return unwrapRetryable(backoff.Retry(operation, policy.backOff(ctx, true)))
}

// UntilDone keeps retrying fn with the policy's backoff, ignoring MaxAttempts,
// until it succeeds, returns a fatal error, or ctx is cancelled.
func UntilDone(ctx context.Context, policy Policy, fn func() error) error {
	operation := func() error {
		err := fn()
		if err != nil && IsFatal(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(operation, policy.backOff(ctx, false))
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func unwrapRetryable(err error) error {
	var r *retryableError
	if errors.As(err, &r) && err == error(r) {
		return r.err
	}
	return err
}
