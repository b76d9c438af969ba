package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNetwork marks failures reaching a remote backend.
	ErrNetwork = errors.New("network error")

	// ErrCacheMiss is for callers that want a miss as an error value.
	ErrCacheMiss = errors.New("cache miss")
)

// RetryableError marks an error as transient. Only these are retried.
type RetryableError struct{ Err error }

// Retryable marks err as transient. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err or anything it wraps is a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Backoff is an exponential retry policy for connecting to Redis or MongoDB.
type Backoff struct {
	// Attempts is the total number of calls, including the first.
	Attempts int
	// Delay is the wait before the second call; it doubles after each retry.
	Delay time.Duration
}

// DefaultBackoff is used when a config leaves its Backoff zero.
var DefaultBackoff = Backoff{Attempts: 3, Delay: time.Second}

func (b Backoff) orDefault() Backoff {
	if b.Attempts <= 0 {
		b.Attempts = DefaultBackoff.Attempts
	}
	if b.Delay <= 0 {
		b.Delay = DefaultBackoff.Delay
	}
	return b
}

// Do calls fn until it succeeds, returns a non-retryable error, the
// attempts run out, or ctx ends.
func (b Backoff) Do(ctx context.Context, fn func() error) error {
	b = b.orDefault()
	delay := b.Delay
	var err error
	for i := 0; i < b.Attempts; i++ {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if i == b.Attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return err
}
