// Package hunter runs keyword acquisition: it pages through search results,
// resolves video and channel details, and passes every candidate through the
// qualification filter and the audience scorer before storing it.
package hunter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ad-tracker/video-hunter-go/internal/db/models"
	"github.com/ad-tracker/video-hunter-go/internal/filter"
	"github.com/ad-tracker/video-hunter-go/internal/metrics"
	"github.com/ad-tracker/video-hunter-go/internal/model"
	"github.com/ad-tracker/video-hunter-go/internal/scoring"
	"github.com/ad-tracker/video-hunter-go/internal/service/youtube"
)

const (
	defaultBufferFactor = 3
	defaultMaxAgeDays   = 21
)

// APIClient is the subset of the YouTube client a run needs.
type APIClient interface {
	Search(ctx context.Context, req youtube.SearchRequest) (*youtube.SearchPage, error)
	FetchVideoDetails(ctx context.Context, ids []string) ([]*model.VideoMetadata, error)
	FetchChannelDetails(ctx context.Context, ids []string) (map[string]*model.ChannelDetails, error)
	DaysSinceUpload(ts string) int
	Pause(ctx context.Context, d time.Duration) error
}

// Qualifier is the hard filter.
type Qualifier interface {
	Evaluate(in filter.Input) filter.Result
}

// Scorer is the audience-region scorer.
type Scorer interface {
	Score(title, description, channelLocation string) scoring.Result
}

// Store persists qualified videos.
type Store interface {
	Upsert(ctx context.Context, video *models.Video) bool
	DeleteAll(ctx context.Context) (int64, error)
}

// Request describes one run.
type Request struct {
	Query          string
	TargetCount    int
	ClearBeforeRun bool
}

// ProgressFunc receives (processed, total) after every candidate. It is called
// from the run's goroutine.
type ProgressFunc func(current, total int)

// ItemProcessingError wraps a failure confined to a single candidate.
type ItemProcessingError struct {
	VideoID string
	Err     error
}

func (e *ItemProcessingError) Error() string {
	return fmt.Sprintf("process video %s: %v", e.VideoID, e.Err)
}

func (e *ItemProcessingError) Unwrap() error { return e.Err }

// ErrStoreWrite marks a candidate that qualified but could not be stored.
var ErrStoreWrite = errors.New("store write failed")

// Hunter orchestrates runs. A Hunter is not meant to run two requests
// against the same store concurrently.
type Hunter struct {
	client    APIClient
	qualifier Qualifier
	scorer    Scorer
	store     Store

	bufferFactor      int
	maxAgeDays        int
	itemDelay         time.Duration
	regionCode        string
	relevanceLanguage string

	now     func() time.Time
	newID   func() string
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option customises a Hunter.
type Option func(*Hunter)

// WithBufferFactor sets how many candidates to gather per wanted result.
func WithBufferFactor(n int) Option {
	return func(h *Hunter) {
		if n > 0 {
			h.bufferFactor = n
		}
	}
}

// WithMaxAgeDays bounds the search window to the last days days. A negative
// value searches without a date window.
func WithMaxAgeDays(days int) Option {
	return func(h *Hunter) { h.maxAgeDays = days }
}

// WithItemDelay sets the pause between candidates. Zero uses the client's
// default delay.
func WithItemDelay(d time.Duration) Option {
	return func(h *Hunter) { h.itemDelay = d }
}

// WithSearchLocale sets the regionCode and relevanceLanguage search hints.
func WithSearchLocale(regionCode, relevanceLanguage string) Option {
	return func(h *Hunter) {
		h.regionCode = regionCode
		h.relevanceLanguage = relevanceLanguage
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(h *Hunter) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hunter) { h.metrics = m }
}

// WithClock replaces time.Now for the search window and run duration.
func WithClock(now func() time.Time) Option {
	return func(h *Hunter) { h.now = now }
}

// WithRunIDs replaces the run id generator.
func WithRunIDs(newID func() string) Option {
	return func(h *Hunter) { h.newID = newID }
}

// New wires a Hunter from its collaborators.
func New(client APIClient, qualifier Qualifier, scorer Scorer, store Store, opts ...Option) *Hunter {
	h := &Hunter{
		client:       client,
		qualifier:    qualifier,
		scorer:       scorer,
		store:        store,
		bufferFactor: defaultBufferFactor,
		maxAgeDays:   defaultMaxAgeDays,
		now:          time.Now,
		newID:        uuid.NewString,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes req synchronously. On a fatal error the statistics gathered so
// far are returned together with the error.
func (h *Hunter) Run(ctx context.Context, req Request, progress ProgressFunc) (Stats, error) {
	return h.run(ctx, req, progress, nil)
}

func (h *Hunter) run(ctx context.Context, req Request, progress ProgressFunc, emit func(Event)) (stats Stats, err error) {
	if emit == nil {
		emit = func(Event) {}
	}
	if progress == nil {
		progress = func(int, int) {}
	}

	start := h.now()
	stats = Stats{RunID: h.newID()}
	log := h.logger.With(zap.String("run_id", stats.RunID), zap.String("query", req.Query))

	enter := func(stage Stage, total int) {
		emit(StageEvent{RunID: stats.RunID, Stage: stage, Total: total, Cleared: stats.ClearedBefore})
	}

	defer func() {
		stats.Duration = h.now().Sub(start)
		result := "ok"
		if err != nil {
			result = "aborted"
			enter(StageAborted, 0)
			log.Error("run aborted", zap.Error(err), zap.Stringer("stats", stats))
		} else {
			log.Info("run finished", zap.Stringer("stats", stats), zap.Duration("duration", stats.Duration))
		}
		h.metrics.ObserveRun(result, stats.Duration)
	}()

	if req.TargetCount <= 0 {
		return stats, fmt.Errorf("target count must be positive, got %d", req.TargetCount)
	}

	enter(StageIdle, 0)

	if req.ClearBeforeRun {
		cleared, err := h.store.DeleteAll(ctx)
		if err != nil {
			return stats, fmt.Errorf("clear store: %w", err)
		}
		stats.ClearedBefore = cleared
		log.Info("cleared previous results", zap.Int64("rows", cleared))
	}

	buffer := req.TargetCount * h.bufferFactor
	enter(StageSearching, buffer)
	ids, err := h.collectIDs(ctx, req.Query, buffer, log)
	if err != nil {
		return stats, err
	}

	enter(StageResolvingDetails, len(ids))
	videos, err := h.client.FetchVideoDetails(ctx, ids)
	if err != nil {
		return stats, fmt.Errorf("fetch video details: %w", err)
	}
	stats.TotalScraped = len(videos)

	channelIDs := uniqueChannelIDs(videos)
	enter(StageResolvingChannels, len(channelIDs))
	channels, err := h.client.FetchChannelDetails(ctx, channelIDs)
	if err != nil {
		return stats, fmt.Errorf("fetch channel details: %w", err)
	}

	total := len(videos)
	enter(StageFilteringAndScoring, total)
	if total == 0 {
		progress(0, 0)
	}

	for i, meta := range videos {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		outcome := h.processItem(ctx, meta, channels)
		stats = stats.Add(outcome)
		h.metrics.ObserveCandidate(outcome.Disposition.String())
		if outcome.Err != nil {
			log.Warn("candidate failed", zap.String("video_id", outcome.VideoID), zap.Error(outcome.Err))
		}

		progress(i+1, total)

		if i < total-1 {
			if err := h.client.Pause(ctx, h.itemDelay); err != nil {
				return stats, err
			}
		}
	}

	enter(StageDone, total)
	return stats, nil
}

// collectIDs pages through search results until buffer unique ids are held,
// the results run out, or a page adds nothing new.
func (h *Hunter) collectIDs(ctx context.Context, query string, buffer int, log *zap.Logger) ([]string, error) {
	search := youtube.SearchRequest{
		Query:             query,
		RegionCode:        h.regionCode,
		RelevanceLanguage: h.relevanceLanguage,
	}
	if h.maxAgeDays >= 0 {
		now := h.now().UTC()
		search.PublishedAfter = now.AddDate(0, 0, -h.maxAgeDays)
		search.PublishedBefore = now
	}

	seen := make(map[string]struct{}, buffer)
	ids := make([]string, 0, buffer)

	for pageNum := 1; len(ids) < buffer; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		search.MaxResults = min(youtube.MaxBatchSize, buffer-len(ids))
		page, err := h.client.Search(ctx, search)
		if err != nil {
			return nil, fmt.Errorf("search page %d: %w", pageNum, err)
		}

		added := 0
		for _, id := range page.VideoIDs {
			if _, ok := seen[id]; ok || id == "" {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
			added++
		}

		log.Debug("search page collected",
			zap.Int("page", pageNum),
			zap.Int("new_ids", added),
			zap.Int("total_ids", len(ids)),
		)

		if page.NextPageToken == "" || added == 0 {
			break
		}
		search.PageToken = page.NextPageToken
	}

	if len(ids) > buffer {
		ids = ids[:buffer]
	}
	return ids, nil
}

// processItem filters, scores and stores one candidate. Panics are contained
// and reported as a failed outcome.
func (h *Hunter) processItem(ctx context.Context, meta *model.VideoMetadata, channels map[string]*model.ChannelDetails) (outcome ItemOutcome) {
	if meta != nil {
		outcome.VideoID = meta.ID
	}

	defer func() {
		if r := recover(); r != nil {
			outcome = ItemOutcome{
				VideoID:     outcome.VideoID,
				Disposition: DispositionFailed,
				Err:         &ItemProcessingError{VideoID: outcome.VideoID, Err: fmt.Errorf("panic: %v", r)},
			}
		}
	}()

	if meta == nil || meta.ID == "" {
		outcome.Disposition = DispositionFailed
		outcome.Err = &ItemProcessingError{VideoID: outcome.VideoID, Err: errors.New("missing video id")}
		return outcome
	}

	var subscribers int64
	var location string
	if ch := channels[meta.ChannelID]; ch != nil {
		subscribers = ch.SubscriberCount
		location = ch.Location
	}
	daysAgo := h.client.DaysSinceUpload(meta.PublishedAt)

	fr := h.qualifier.Evaluate(filter.Input{Views: meta.ViewCount, DaysAgo: daysAgo, Subscribers: subscribers})
	outcome.Filter = &fr
	h.observeFilter(fr)
	if !fr.Passed {
		outcome.Disposition = DispositionRejected
		return outcome
	}

	sr := h.scorer.Score(meta.Title, meta.Description, location)
	outcome.Score = &sr
	h.metrics.ObserveTier1Score(sr.Total)
	if !sr.Passed {
		outcome.Disposition = DispositionRejected
		return outcome
	}

	video := newQualifiedVideo(meta, subscribers, location, daysAgo, fr, sr)
	if !h.store.Upsert(ctx, video) {
		outcome.Disposition = DispositionFailed
		outcome.Err = &ItemProcessingError{VideoID: meta.ID, Err: ErrStoreWrite}
		return outcome
	}

	outcome.Disposition = DispositionSaved
	return outcome
}

func (h *Hunter) observeFilter(r filter.Result) {
	if h.metrics == nil {
		return
	}
	for dim, ok := range map[string]bool{
		"views":          r.PassedViews,
		"upload_age":     r.PassedUploadAge,
		"subscribers":    r.PassedSubscribers,
		"view_sub_ratio": r.PassedViewSubRatio,
		"all":            r.Passed,
	} {
		if ok {
			h.metrics.ObserveFilterPass(dim)
		}
	}
}

func newQualifiedVideo(meta *model.VideoMetadata, subscribers int64, location string, daysAgo int, fr filter.Result, sr scoring.Result) *models.Video {
	v := models.NewVideo(meta.ID, meta.ChannelID, meta.Title, meta.UploadedAt)
	v.ChannelTitle = meta.ChannelTitle
	v.SubscriberCount = subscribers
	v.UploadDaysAgo = daysAgo
	v.Views = meta.ViewCount
	v.Likes = meta.LikeCount
	v.ThumbnailURL = meta.ThumbnailURL
	v.Description = meta.Description
	v.State = models.StateScraped

	v.PassedViews = fr.PassedViews
	v.PassedUploadAge = fr.PassedUploadAge
	v.PassedSubscribers = fr.PassedSubscribers
	v.PassedViewSubRatio = fr.PassedViewSubRatio

	v.Tier1Validated = sr.Passed
	v.Tier1Score = sr.Total
	v.Tier1LanguageScore = sr.SubScores.Language
	v.Tier1CurrencyScore = sr.SubScores.Currency
	v.Tier1CulturalScore = sr.SubScores.Cultural
	v.Tier1RegionScore = sr.SubScores.Region
	v.Tier1HasExclude = sr.HasExcludePattern
	v.ChannelLocation = location

	return v
}

func uniqueChannelIDs(videos []*model.VideoMetadata) []string {
	seen := make(map[string]struct{}, len(videos))
	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		if v == nil || v.ChannelID == "" {
			continue
		}
		if _, ok := seen[v.ChannelID]; ok {
			continue
		}
		seen[v.ChannelID] = struct{}{}
		ids = append(ids, v.ChannelID)
	}
	return ids
}
