package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ad-tracker/video-hunter-go/internal/config"
)

func TestNew_RejectsInconsistentPolicy(t *testing.T) {
	tests := []struct {
		name    string
		t       Thresholds
		wantErr bool
	}{
		{name: "defaults", t: DefaultThresholds()},
		{name: "min above max", t: Thresholds{MinViews: 10, MaxViews: 5}, wantErr: true},
		{name: "negative days", t: Thresholds{MaxViews: 5, MaxDaysAgo: -1}, wantErr: true},
		{name: "negative ratio", t: Thresholds{MaxViews: 5, MaxViewSubRatio: -2}, wantErr: true},
		{name: "single point band", t: Thresholds{MinViews: 7, MaxViews: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.t)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, f)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.t, f.Thresholds())
		})
	}
}

func TestFilter_Evaluate(t *testing.T) {
	f, err := New(DefaultThresholds())
	require.NoError(t, err)

	tests := []struct {
		name string
		in   Input
		want Result
	}{
		{
			name: "all pass",
			in:   Input{Views: 12000, DaysAgo: 5, Subscribers: 8000},
			want: Result{PassedViews: true, PassedUploadAge: true, PassedSubscribers: true, PassedViewSubRatio: true, Passed: true},
		},
		{
			name: "lower view bound inclusive",
			in:   Input{Views: 5000, DaysAgo: 0, Subscribers: 0},
			want: Result{PassedViews: true, PassedUploadAge: true, PassedSubscribers: true, PassedViewSubRatio: true, Passed: true},
		},
		{
			name: "upper view bound inclusive",
			in:   Input{Views: 50000, DaysAgo: 21, Subscribers: 30000},
			want: Result{PassedViews: true, PassedUploadAge: true, PassedSubscribers: true, PassedViewSubRatio: true, Passed: true},
		},
		{
			name: "just below view band",
			in:   Input{Views: 4999, DaysAgo: 1, Subscribers: 10},
			want: Result{PassedUploadAge: true, PassedSubscribers: true, PassedViewSubRatio: true},
		},
		{
			name: "just above view band",
			in:   Input{Views: 50001, DaysAgo: 1, Subscribers: 10},
			want: Result{PassedUploadAge: true, PassedSubscribers: true, PassedViewSubRatio: true},
		},
		{
			name: "too old",
			in:   Input{Views: 9000, DaysAgo: 22, Subscribers: 10},
			want: Result{PassedViews: true, PassedSubscribers: true, PassedViewSubRatio: true},
		},
		{
			name: "channel too large",
			in:   Input{Views: 9000, DaysAgo: 3, Subscribers: 30001},
			want: Result{PassedViews: true, PassedUploadAge: true, PassedViewSubRatio: true},
		},
		{
			name: "everything fails",
			in:   Input{Views: 1, DaysAgo: 400, Subscribers: 1_000_000},
			want: Result{PassedViewSubRatio: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Evaluate(tt.in))
		})
	}
}

func TestFilter_ViewSubRatio(t *testing.T) {
	th := DefaultThresholds()
	th.MaxViewSubRatio = 50
	f, err := New(th)
	require.NoError(t, err)

	tests := []struct {
		name      string
		in        Input
		wantRatio bool
	}{
		{name: "within ratio", in: Input{Views: 8000, DaysAgo: 1, Subscribers: 200}, wantRatio: true},
		{name: "at ratio", in: Input{Views: 10000, DaysAgo: 1, Subscribers: 200}, wantRatio: true},
		{name: "over ratio", in: Input{Views: 10001, DaysAgo: 1, Subscribers: 200}, wantRatio: false},
		{name: "zero subscribers", in: Input{Views: 10000, DaysAgo: 1, Subscribers: 0}, wantRatio: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := f.Evaluate(tt.in)
			assert.Equal(t, tt.wantRatio, r.PassedViewSubRatio)
			assert.True(t, r.PassedSubscribers, "ratio never folds into the subscriber dimension")
			assert.Equal(t, tt.wantRatio, r.Passed)
		})
	}
}

func TestFromConfig(t *testing.T) {
	got := FromConfig(config.FilterConfig{
		MinViews:        1,
		MaxViews:        2,
		MaxDaysAgo:      3,
		MaxSubscribers:  4,
		MaxViewSubRatio: 5,
	})
	assert.Equal(t, Thresholds{MinViews: 1, MaxViews: 2, MaxDaysAgo: 3, MaxSubscribers: 4, MaxViewSubRatio: 5}, got)
}
