package db

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryOutcome classifies how a retried operation ended.
type RetryOutcome int

const (
	// RetrySucceeded means some attempt returned nil.
	RetrySucceeded RetryOutcome = iota
	// RetryExhausted means every attempt failed with a retryable error.
	RetryExhausted
	// RetryNonRetryable means an attempt failed with an error the policy does
	// not retry, or the context ended while waiting.
	RetryNonRetryable
)

func (o RetryOutcome) String() string {
	switch o {
	case RetrySucceeded:
		return "succeeded"
	case RetryExhausted:
		return "exhausted"
	case RetryNonRetryable:
		return "non_retryable"
	default:
		return "unknown"
	}
}

// RetryResult is the result of RetryPolicy.Do.
type RetryResult struct {
	Outcome  RetryOutcome
	Attempts int
	// Waited is the sum of the backoff intervals slept between attempts.
	Waited time.Duration
	Err    error
}

// OK reports whether the operation eventually succeeded.
func (r RetryResult) OK() bool {
	return r.Outcome == RetrySucceeded
}

// RetryPolicy retries an operation on lock contention with exponential
// backoff. The zero value is not useful; start from DefaultRetryPolicy.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries      int
	InitialInterval time.Duration
	Multiplier      float64
	// Retryable decides which errors are retried. Nil means IsLocked.
	Retryable func(error) bool
	// Notify is called before each wait with the failing error.
	Notify func(err error, wait time.Duration)
	// Timer overrides the wait clock, used by tests.
	Timer backoff.Timer
}

// DefaultRetryPolicy retries three times, waiting 0.5s, 1s and 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		Multiplier:      2,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.Multiplier = p.Multiplier
	eb.RandomizationFactor = 0
	eb.MaxInterval = time.Hour
	eb.MaxElapsedTime = 0
	eb.Reset()

	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// retry budget is spent.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) RetryResult {
	if ctx == nil {
		ctx = context.Background()
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsLocked
	}

	var (
		res       RetryResult
		permanent bool
	)

	notify := func(err error, wait time.Duration) {
		res.Waited += wait
		if p.Notify != nil {
			p.Notify(err, wait)
		}
	}

	err := backoff.RetryNotifyWithTimer(func() error {
		res.Attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}, p.backOff(ctx), notify, p.Timer)

	res.Err = err
	switch {
	case err == nil:
		res.Outcome = RetrySucceeded
	case permanent, ctx.Err() != nil && errors.Is(err, ctx.Err()):
		res.Outcome = RetryNonRetryable
	default:
		res.Outcome = RetryExhausted
	}
	return res
}
