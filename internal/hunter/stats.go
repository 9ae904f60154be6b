package hunter

import (
	"fmt"
	"time"

	"github.com/ad-tracker/video-hunter-go/internal/filter"
	"github.com/ad-tracker/video-hunter-go/internal/scoring"
)

// Disposition is what happened to one candidate.
type Disposition int

const (
	// DispositionRejected means the filter or the scorer turned it down.
	DispositionRejected Disposition = iota
	// DispositionSaved means it passed both stages and was stored.
	DispositionSaved
	// DispositionFailed means processing or storing it failed.
	DispositionFailed
)

func (d Disposition) String() string {
	switch d {
	case DispositionSaved:
		return "saved"
	case DispositionFailed:
		return "failed"
	default:
		return "rejected"
	}
}

// ItemOutcome records the processing of one candidate. Filter is set once the
// candidate has been evaluated; Score only when it reached the scorer.
type ItemOutcome struct {
	VideoID     string
	Filter      *filter.Result
	Score       *scoring.Result
	Disposition Disposition
	Err         error
}

// Stats summarises a run. It is a value: Add returns an updated copy.
type Stats struct {
	RunID string

	// TotalScraped is the number of resolved candidates.
	TotalScraped int
	// Processed counts candidates that went through the per-item loop.
	Processed int

	PassedViews        int
	PassedUploadAge    int
	PassedSubscribers  int
	PassedViewSubRatio int
	PassedAll          int
	Tier1Passed        int

	Saved    int
	Rejected int
	Failed   int

	ClearedBefore int64
	Duration      time.Duration
}

// Add folds one outcome into the statistics.
func (s Stats) Add(o ItemOutcome) Stats {
	s.Processed++

	if f := o.Filter; f != nil {
		if f.PassedViews {
			s.PassedViews++
		}
		if f.PassedUploadAge {
			s.PassedUploadAge++
		}
		if f.PassedSubscribers {
			s.PassedSubscribers++
		}
		if f.PassedViewSubRatio {
			s.PassedViewSubRatio++
		}
		if f.Passed {
			s.PassedAll++
		}
	}

	if o.Score != nil && o.Score.Passed {
		s.Tier1Passed++
	}

	switch o.Disposition {
	case DispositionSaved:
		s.Saved++
	case DispositionFailed:
		s.Failed++
	default:
		s.Rejected++
	}

	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("scraped=%d processed=%d passed_all=%d tier1=%d saved=%d rejected=%d failed=%d",
		s.TotalScraped, s.Processed, s.PassedAll, s.Tier1Passed, s.Saved, s.Rejected, s.Failed)
}
