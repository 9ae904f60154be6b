package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTimer fires immediately and records every requested wait.
type fakeTimer struct {
	c     chan time.Time
	waits []time.Duration
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{c: make(chan time.Time, 1)}
}

func (f *fakeTimer) Start(d time.Duration) {
	f.waits = append(f.waits, d)
	f.c <- time.Now()
}

func (f *fakeTimer) Stop() {}

func (f *fakeTimer) C() <-chan time.Time { return f.c }

func lockedErr() error {
	return WrapError(errors.New("database is locked (5) (SQLITE_BUSY)"), "upsert video")
}

func TestRetryPolicy_Do(t *testing.T) {
	boom := errors.New("disk I/O error")

	tests := []struct {
		name         string
		failures     []error
		wantOutcome  RetryOutcome
		wantAttempts int
		wantWaits    []time.Duration
	}{
		{
			name:         "first attempt succeeds",
			wantOutcome:  RetrySucceeded,
			wantAttempts: 1,
		},
		{
			name:         "succeeds on third attempt after two contentions",
			failures:     []error{lockedErr(), lockedErr()},
			wantOutcome:  RetrySucceeded,
			wantAttempts: 3,
			wantWaits:    []time.Duration{500 * time.Millisecond, time.Second},
		},
		{
			name:         "exhausts after three retries",
			failures:     []error{lockedErr(), lockedErr(), lockedErr(), lockedErr(), lockedErr()},
			wantOutcome:  RetryExhausted,
			wantAttempts: 4,
			wantWaits:    []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second},
		},
		{
			name:         "non-contention error is not retried",
			failures:     []error{boom},
			wantOutcome:  RetryNonRetryable,
			wantAttempts: 1,
		},
		{
			name:         "non-contention error after a contention",
			failures:     []error{lockedErr(), boom},
			wantOutcome:  RetryNonRetryable,
			wantAttempts: 2,
			wantWaits:    []time.Duration{500 * time.Millisecond},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timer := newFakeTimer()
			policy := DefaultRetryPolicy()
			policy.Timer = timer

			calls := 0
			res := policy.Do(context.Background(), func(ctx context.Context) error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			})

			assert.Equal(t, tt.wantOutcome, res.Outcome, res.Outcome.String())
			assert.Equal(t, tt.wantAttempts, res.Attempts)
			assert.Equal(t, tt.wantAttempts, calls)
			assert.Equal(t, tt.wantWaits, timer.waits)

			var total time.Duration
			for _, w := range tt.wantWaits {
				total += w
			}
			assert.Equal(t, total, res.Waited)

			if tt.wantOutcome == RetrySucceeded {
				assert.True(t, res.OK())
				assert.NoError(t, res.Err)
			} else {
				assert.False(t, res.OK())
				assert.Error(t, res.Err)
			}
		})
	}
}

func TestRetryPolicy_Do_RealClockWaitsBeforeThirdAttempt(t *testing.T) {
	if testing.Short() {
		t.Skip("sleeps for the full backoff schedule")
	}

	calls := 0
	start := time.Now()
	var finalAttemptAt time.Duration

	res := DefaultRetryPolicy().Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return lockedErr()
		}
		finalAttemptAt = time.Since(start)
		return nil
	})

	require.True(t, res.OK())
	assert.Equal(t, 3, res.Attempts)
	assert.GreaterOrEqual(t, finalAttemptAt, 1500*time.Millisecond)
}

func TestRetryPolicy_Do_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := DefaultRetryPolicy()
	policy.Notify = func(err error, wait time.Duration) { cancel() }

	res := policy.Do(ctx, func(ctx context.Context) error {
		return lockedErr()
	})

	assert.Equal(t, RetryNonRetryable, res.Outcome)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 1, res.Attempts)
}

func TestRetryPolicy_CustomRetryable(t *testing.T) {
	flaky := errors.New("flaky")
	policy := RetryPolicy{MaxRetries: 1, InitialInterval: time.Millisecond, Multiplier: 2, Timer: newFakeTimer()}
	policy.Retryable = func(err error) bool { return errors.Is(err, flaky) }

	res := policy.Do(context.Background(), func(ctx context.Context) error { return flaky })

	assert.Equal(t, RetryExhausted, res.Outcome)
	assert.Equal(t, 2, res.Attempts)
	assert.ErrorIs(t, res.Err, flaky)
}
