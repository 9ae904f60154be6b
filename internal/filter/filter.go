// Package filter implements the hard qualification filter applied to every
// resolved candidate before scoring.
package filter

import (
	"fmt"

	"github.com/ad-tracker/video-hunter-go/internal/config"
)

// Thresholds is the qualification policy. MaxViewSubRatio of zero disables
// the ratio dimension.
type Thresholds struct {
	MinViews        int64
	MaxViews        int64
	MaxDaysAgo      int
	MaxSubscribers  int64
	MaxViewSubRatio float64
}

// DefaultThresholds returns the 5k-50k views, 21 days, 30k subscribers policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinViews:       5000,
		MaxViews:       50000,
		MaxDaysAgo:     21,
		MaxSubscribers: 30000,
	}
}

// FromConfig converts the filter section of the config.
func FromConfig(cfg config.FilterConfig) Thresholds {
	return Thresholds{
		MinViews:        cfg.MinViews,
		MaxViews:        cfg.MaxViews,
		MaxDaysAgo:      cfg.MaxDaysAgo,
		MaxSubscribers:  cfg.MaxSubscribers,
		MaxViewSubRatio: cfg.MaxViewSubRatio,
	}
}

// Validate rejects inconsistent policies.
func (t Thresholds) Validate() error {
	if t.MinViews < 0 || t.MaxViews < 0 || t.MaxDaysAgo < 0 || t.MaxSubscribers < 0 || t.MaxViewSubRatio < 0 {
		return fmt.Errorf("thresholds must not be negative: %+v", t)
	}
	if t.MinViews > t.MaxViews {
		return fmt.Errorf("min views %d exceeds max views %d", t.MinViews, t.MaxViews)
	}
	return nil
}

// Input is what the filter looks at for one candidate.
type Input struct {
	Views       int64
	DaysAgo     int
	Subscribers int64
}

// Result breaks the decision down per dimension. Every dimension is evaluated
// even when an earlier one fails.
type Result struct {
	PassedViews        bool
	PassedUploadAge    bool
	PassedSubscribers  bool
	PassedViewSubRatio bool
	Passed             bool
}

// Filter is a stateless evaluator for one Thresholds policy.
type Filter struct {
	t Thresholds
}

// New builds a Filter, failing on an inconsistent policy.
func New(t Thresholds) (*Filter, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Filter{t: t}, nil
}

// Thresholds returns the policy in effect.
func (f *Filter) Thresholds() Thresholds {
	return f.t
}

// Evaluate applies every dimension to in.
func (f *Filter) Evaluate(in Input) Result {
	r := Result{
		PassedViews:       in.Views >= f.t.MinViews && in.Views <= f.t.MaxViews,
		PassedUploadAge:   in.DaysAgo <= f.t.MaxDaysAgo,
		PassedSubscribers: in.Subscribers <= f.t.MaxSubscribers,
	}

	if f.t.MaxViewSubRatio > 0 {
		r.PassedViewSubRatio = in.Subscribers > 0 &&
			float64(in.Views) <= f.t.MaxViewSubRatio*float64(in.Subscribers)
	} else {
		r.PassedViewSubRatio = true
	}

	r.Passed = r.PassedViews && r.PassedUploadAge && r.PassedSubscribers && r.PassedViewSubRatio
	return r
}
