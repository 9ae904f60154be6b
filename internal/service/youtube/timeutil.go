package youtube

import (
	"context"
	"strings"
	"time"
)

// DaysSince returns whole days between ts and now. Malformed timestamps and
// timestamps in the future both yield 0.
func DaysSince(ts string, now time.Time) int {
	uploaded, err := parseTimestamp(ts)
	if err != nil {
		return 0
	}
	d := now.UTC().Sub(uploaded)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

func parseTimestamp(ts string) (time.Time, error) {
	ts = strings.TrimSpace(ts)
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// SleepWithContext blocks for d, returning early if ctx is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
