// Package youtube is the hunter's client for the YouTube Data API v3: keyword
// search, batched video and channel lookups, rate-limit pauses and error
// classification.
package youtube

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/ad-tracker/video-hunter-go/internal/metrics"
	"github.com/ad-tracker/video-hunter-go/internal/model"
)

const (
	defaultRateLimitDelay = 2 * time.Second
	defaultRequestTimeout = 30 * time.Second
)

// QuotaGate is a local daily quota budget consulted around every request.
type QuotaGate interface {
	CheckQuotaAvailable(ctx context.Context, requiredQuota int) (bool, *model.QuotaInfo, error)
	RecordQuotaUsage(ctx context.Context, quotaCost int, operationType string) error
}

// SearchRequest parameterises one search.list page.
type SearchRequest struct {
	Query             string
	MaxResults        int
	RegionCode        string
	RelevanceLanguage string
	PageToken         string
	PublishedAfter    time.Time
	PublishedBefore   time.Time
}

// SearchPage is one page of search results.
type SearchPage struct {
	VideoIDs      []string
	NextPageToken string
}

// Client wraps the YouTube Data API v3 client
type Client struct {
	service *youtube.Service
	gate    QuotaGate
	delay   time.Duration
	timeout time.Duration
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
	logger  *zap.Logger
	metrics *metrics.Metrics

	clientOptions []option.ClientOption
}

// Option customises a Client.
type Option func(*Client)

// WithEndpoint points the client at another API base URL, e.g. a test server.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.clientOptions = append(c.clientOptions, option.WithEndpoint(endpoint))
		}
	}
}

// WithQuotaGate enables local quota budgeting.
func WithQuotaGate(gate QuotaGate) Option {
	return func(c *Client) { c.gate = gate }
}

// WithRateLimitDelay sets the default Pause duration.
func WithRateLimitDelay(d time.Duration) Option {
	return func(c *Client) { c.delay = d }
}

// WithRequestTimeout bounds each HTTP request.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithClock replaces time.Now for upload-age calculations.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithSleeper replaces the blocking sleep used by Pause.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// NewClient creates a new YouTube API client
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}

	c := &Client{
		delay:   defaultRateLimitDelay,
		timeout: defaultRequestTimeout,
		now:     time.Now,
		sleep:   SleepWithContext,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	clientOptions := append([]option.ClientOption{option.WithAPIKey(apiKey)}, c.clientOptions...)
	service, err := youtube.NewService(ctx, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	c.service = service

	return c, nil
}

// Search fetches one page of video ids for a keyword, most viewed first.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchPage, error) {
	maxResults := req.MaxResults
	if maxResults <= 0 || maxResults > MaxBatchSize {
		maxResults = MaxBatchSize
	}

	call := c.service.Search.List([]string{"snippet"}).
		Q(req.Query).
		Type("video").
		Order("viewCount").
		VideoEmbeddable("true").
		MaxResults(int64(maxResults))
	if req.RegionCode != "" {
		call = call.RegionCode(req.RegionCode)
	}
	if req.RelevanceLanguage != "" {
		call = call.RelevanceLanguage(req.RelevanceLanguage)
	}
	if req.PageToken != "" {
		call = call.PageToken(req.PageToken)
	}
	if !req.PublishedAfter.IsZero() {
		call = call.PublishedAfter(req.PublishedAfter.UTC().Format(time.RFC3339))
	}
	if !req.PublishedBefore.IsZero() {
		call = call.PublishedBefore(req.PublishedBefore.UTC().Format(time.RFC3339))
	}

	var resp *youtube.SearchListResponse
	err := c.call(ctx, model.OpSearchList, model.CostSearchList, func(ctx context.Context) error {
		var err error
		resp, err = call.Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	page := &SearchPage{
		VideoIDs:      make([]string, 0, len(resp.Items)),
		NextPageToken: resp.NextPageToken,
	}
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		page.VideoIDs = append(page.VideoIDs, item.Id.VideoId)
	}

	c.logger.Debug("search page fetched",
		zap.String("query", req.Query),
		zap.Int("results", len(page.VideoIDs)),
		zap.Bool("has_next", page.NextPageToken != ""),
	)

	return page, nil
}

// FetchVideoDetails resolves ids in chunks of MaxBatchSize, one request per
// chunk, pausing between chunks. Results keep chunk order.
func (c *Client) FetchVideoDetails(ctx context.Context, ids []string) ([]*model.VideoMetadata, error) {
	batches := BatchIDs(dedupe(ids), MaxBatchSize)
	videos := make([]*model.VideoMetadata, 0, len(ids))

	for i, batch := range batches {
		var resp *youtube.VideoListResponse
		err := c.call(ctx, model.OpVideosList, model.CostVideosList, func(ctx context.Context) error {
			var err error
			resp, err = c.service.Videos.List([]string{"snippet", "statistics"}).
				Id(batch...).
				Context(ctx).
				Do()
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, item := range resp.Items {
			videos = append(videos, mapVideo(item))
		}

		if i < len(batches)-1 {
			if err := c.Pause(ctx, 0); err != nil {
				return nil, err
			}
		}
	}

	return videos, nil
}

// FetchChannelDetails resolves channel ids the same way FetchVideoDetails
// resolves videos.
func (c *Client) FetchChannelDetails(ctx context.Context, ids []string) (map[string]*model.ChannelDetails, error) {
	batches := BatchIDs(dedupe(ids), MaxBatchSize)
	channels := make(map[string]*model.ChannelDetails, len(ids))

	for i, batch := range batches {
		var resp *youtube.ChannelListResponse
		err := c.call(ctx, model.OpChannelsList, model.CostChannelsList, func(ctx context.Context) error {
			var err error
			resp, err = c.service.Channels.List([]string{"snippet", "statistics", "brandingSettings"}).
				Id(batch...).
				Context(ctx).
				Do()
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, item := range resp.Items {
			channels[item.Id] = mapChannel(item)
		}

		if i < len(batches)-1 {
			if err := c.Pause(ctx, 0); err != nil {
				return nil, err
			}
		}
	}

	return channels, nil
}

// DaysSinceUpload is DaysSince against the client's clock.
func (c *Client) DaysSinceUpload(ts string) int {
	return DaysSince(ts, c.now())
}

// Pause sleeps for d, or the configured rate-limit delay when d is not
// positive. It returns early with ctx.Err() on cancellation.
func (c *Client) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		d = c.delay
	}
	return c.sleep(ctx, d)
}

func (c *Client) call(ctx context.Context, operation string, cost int, fn func(ctx context.Context) error) error {
	if c.gate != nil {
		ok, info, err := c.gate.CheckQuotaAvailable(ctx, cost)
		if err != nil {
			return fmt.Errorf("check local quota for %s: %w", operation, err)
		}
		if !ok {
			remaining := 0
			if info != nil {
				remaining = info.QuotaRemaining
			}
			c.metrics.ObserveAPIRequest(operation, "quota_exceeded", cost)
			return &QuotaExceededError{
				Operation: operation,
				Reason:    ReasonLocalBudget,
				Message:   fmt.Sprintf("need %d units, %d remaining before threshold", cost, remaining),
			}
		}
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := classifyError(operation, fn(callCtx)); err != nil {
		c.metrics.ObserveAPIRequest(operation, outcomeLabel(err), cost)
		c.logger.Warn("youtube request failed", zap.String("operation", operation), zap.Error(err))
		return err
	}
	c.metrics.ObserveAPIRequest(operation, "ok", cost)

	if c.gate != nil {
		if err := c.gate.RecordQuotaUsage(ctx, cost, operation); err != nil {
			c.logger.Warn("failed to record quota usage",
				zap.String("operation", operation),
				zap.Int("cost", cost),
				zap.Error(err),
			)
		}
	}

	return nil
}

func outcomeLabel(err error) string {
	switch {
	case IsQuotaExceeded(err):
		return "quota_exceeded"
	case IsAPIError(err):
		return "api_error"
	default:
		return "transport_error"
	}
}

func mapVideo(item *youtube.Video) *model.VideoMetadata {
	v := &model.VideoMetadata{ID: item.Id}

	if s := item.Snippet; s != nil {
		v.Title = s.Title
		v.ChannelID = s.ChannelId
		v.ChannelTitle = s.ChannelTitle
		v.Description = s.Description
		v.PublishedAt = s.PublishedAt
		if t, err := parseTimestamp(s.PublishedAt); err == nil {
			v.UploadedAt = t
		}
		v.ThumbnailURL = bestThumbnail(s.Thumbnails)
	}

	if st := item.Statistics; st != nil {
		v.ViewCount = int64(st.ViewCount)
		v.LikeCount = int64(st.LikeCount)
	}

	return v
}

// bestThumbnail picks maxres > standard > high > medium > default.
func bestThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, thumb := range []*youtube.Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if thumb != nil && thumb.Url != "" {
			return thumb.Url
		}
	}
	return ""
}

func mapChannel(item *youtube.Channel) *model.ChannelDetails {
	ch := &model.ChannelDetails{ID: item.Id}

	if s := item.Snippet; s != nil {
		ch.Title = s.Title
		ch.Location = strings.ToUpper(strings.TrimSpace(s.Country))
	}
	if ch.Location == "" && item.BrandingSettings != nil && item.BrandingSettings.Channel != nil {
		ch.Location = strings.ToUpper(strings.TrimSpace(item.BrandingSettings.Channel.Country))
	}

	if st := item.Statistics; st != nil {
		ch.HiddenSubscriberCount = st.HiddenSubscriberCount
		if !st.HiddenSubscriberCount {
			ch.SubscriberCount = int64(st.SubscriberCount)
		}
	}

	return ch
}
