package youtube

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysSince(t *testing.T) {
	now := time.Date(2026, 5, 22, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ts   string
		want int
	}{
		{name: "same instant", ts: "2026-05-22T12:00:00Z", want: 0},
		{name: "just under a day", ts: "2026-05-21T12:00:01Z", want: 0},
		{name: "exactly one day", ts: "2026-05-21T12:00:00Z", want: 1},
		{name: "three weeks", ts: "2026-05-01T12:00:00Z", want: 21},
		{name: "offset timestamp", ts: "2026-05-20T05:00:00-07:00", want: 2},
		{name: "future clamps to zero", ts: "2026-06-01T00:00:00Z", want: 0},
		{name: "malformed", ts: "yesterday", want: 0},
		{name: "empty", ts: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysSince(tt.ts, now))
		})
	}
}

func TestSleepWithContext(t *testing.T) {
	assert.NoError(t, SleepWithContext(context.Background(), 0))
	assert.NoError(t, SleepWithContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.ErrorIs(t, SleepWithContext(ctx, time.Minute), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
