package hunter

import "context"

// Stage is a step of a run.
type Stage int

const (
	StageIdle Stage = iota
	StageSearching
	StageResolvingDetails
	StageResolvingChannels
	StageFilteringAndScoring
	StageDone
	StageAborted
)

var stageNames = map[Stage]string{
	StageIdle:                "idle",
	StageSearching:           "searching",
	StageResolvingDetails:    "resolving_details",
	StageResolvingChannels:   "resolving_channels",
	StageFilteringAndScoring: "filtering_and_scoring",
	StageDone:                "done",
	StageAborted:             "aborted",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Event is emitted by Start. It is one of StageEvent, ProgressEvent or
// ResultEvent.
type Event interface {
	event()
}

// StageEvent marks entry into a stage. Total is the number of items the stage
// works through, when known.
type StageEvent struct {
	RunID   string
	Stage   Stage
	Total   int
	Cleared int64
}

// ProgressEvent reports Current of Total candidates processed.
type ProgressEvent struct {
	RunID   string
	Current int
	Total   int
}

// ResultEvent is always the last event of a run.
type ResultEvent struct {
	Stats Stats
	Err   error
}

func (StageEvent) event()    {}
func (ProgressEvent) event() {}
func (ResultEvent) event()   {}

// Start runs req in a new goroutine and streams its events. The channel is
// closed after the ResultEvent. Once ctx is cancelled, events that do not fit
// the buffer are dropped, the ResultEvent included, so an abandoned channel
// never pins the run goroutine.
func (h *Hunter) Start(ctx context.Context, req Request) <-chan Event {
	events := make(chan Event, 16)

	send := func(ev Event) {
		select {
		case events <- ev:
			return
		default:
		}
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(events)

		var runID string
		emit := func(ev Event) {
			if se, ok := ev.(StageEvent); ok {
				runID = se.RunID
			}
			send(ev)
		}
		progress := func(current, total int) {
			send(ProgressEvent{RunID: runID, Current: current, Total: total})
		}

		stats, err := h.run(ctx, req, progress, emit)
		send(ResultEvent{Stats: stats, Err: err})
	}()

	return events
}
