package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ad-tracker/video-hunter-go/internal/db"
	"github.com/ad-tracker/video-hunter-go/internal/db/models"
	"github.com/ad-tracker/video-hunter-go/internal/metrics"
)

// VideoRepository defines operations for managing hunted videos.
type VideoRepository interface {
	// Upsert inserts a new video (ignoring a duplicate video_id) when ID is
	// zero, or overwrites the row addressed by ID otherwise. Lock contention
	// is retried; any failure is logged and reported as false.
	Upsert(ctx context.Context, video *models.Video) bool

	// FindByVideoID returns the video with the given platform ID, or nil.
	FindByVideoID(ctx context.Context, videoID string) (*models.Video, error)

	// List returns videos ordered by views descending. A non-positive limit
	// returns every row.
	List(ctx context.Context, limit int) ([]*models.Video, error)

	// Count returns the number of stored videos.
	Count(ctx context.Context) (int, error)

	// DeleteAll removes every video and returns how many rows were removed.
	DeleteAll(ctx context.Context) (int64, error)

	// Ping checks store connectivity.
	Ping(ctx context.Context) error
}

// VideoRepositoryOption customises a VideoRepository.
type VideoRepositoryOption func(*videoRepository)

// WithLogger sets the repository logger.
func WithLogger(logger *zap.Logger) VideoRepositoryOption {
	return func(r *videoRepository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRetryPolicy replaces the default lock-contention retry policy.
func WithRetryPolicy(policy db.RetryPolicy) VideoRepositoryOption {
	return func(r *videoRepository) {
		r.retry = policy
	}
}

// WithMetrics records write outcomes.
func WithMetrics(m *metrics.Metrics) VideoRepositoryOption {
	return func(r *videoRepository) {
		r.metrics = m
	}
}

type videoRepository struct {
	db      *sql.DB
	logger  *zap.Logger
	retry   db.RetryPolicy
	metrics *metrics.Metrics
}

// NewVideoRepository creates a new VideoRepository.
func NewVideoRepository(conn *sql.DB, opts ...VideoRepositoryOption) VideoRepository {
	r := &videoRepository{
		db:     conn,
		logger: zap.NewNop(),
		retry:  db.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const videoColumns = `
	id, video_id, title, channel_id, channel_title, subscriber_count,
	uploaded_at, upload_days_ago, views, likes, thumbnail_url, description,
	state, error_message,
	passed_views, passed_upload_age, passed_subscribers, passed_view_sub_ratio,
	tier1_validated, tier1_score, tier1_language_score, tier1_currency_score,
	tier1_cultural_score, tier1_region_score, tier1_has_exclude, channel_location,
	created_at, updated_at`

func (r *videoRepository) Upsert(ctx context.Context, video *models.Video) bool {
	if video == nil || strings.TrimSpace(video.VideoID) == "" {
		r.logger.Error("refusing to store video without video_id")
		return false
	}
	if video.State == "" {
		video.State = models.StateRaw
	}
	if !video.State.Valid() {
		r.logger.Error("refusing to store video with unknown state",
			zap.String("video_id", video.VideoID),
			zap.String("state", string(video.State)),
		)
		return false
	}

	op, write := r.insert, "insert"
	if video.ID != 0 {
		op, write = r.update, "update"
	}

	policy := r.retry
	notify := policy.Notify
	policy.Notify = func(err error, wait time.Duration) {
		r.logger.Warn("store locked, retrying write",
			zap.String("video_id", video.VideoID),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		if notify != nil {
			notify(err, wait)
		}
	}

	res := policy.Do(ctx, func(ctx context.Context) error {
		return op(ctx, video)
	})
	r.metrics.ObserveStoreWrite(res.Outcome.String(), res.Attempts-1)

	switch res.Outcome {
	case db.RetrySucceeded:
		return true
	case db.RetryExhausted:
		r.logger.Error("video write failed after lock retries",
			zap.String("video_id", video.VideoID),
			zap.String("write", write),
			zap.Int("attempts", res.Attempts),
			zap.Duration("waited", res.Waited),
			zap.Error(res.Err),
		)
	default:
		r.logger.Error("video write failed",
			zap.String("video_id", video.VideoID),
			zap.String("write", write),
			zap.Error(res.Err),
		)
	}
	return false
}

func (r *videoRepository) insert(ctx context.Context, v *models.Video) error {
	query := `
		INSERT INTO videos (
			video_id, title, channel_id, channel_title, subscriber_count,
			uploaded_at, upload_days_ago, views, likes, thumbnail_url, description,
			state, error_message,
			passed_views, passed_upload_age, passed_subscribers, passed_view_sub_ratio,
			tier1_validated, tier1_score, tier1_language_score, tier1_currency_score,
			tier1_cultural_score, tier1_region_score, tier1_has_exclude, channel_location
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (video_id) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	args := append([]any{v.VideoID}, mutableArgs(v)...)

	var created, updated string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&v.ID, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		// Duplicate video_id: the first ingestion wins.
		r.logger.Debug("video already stored, insert ignored", zap.String("video_id", v.VideoID))
		return nil
	}
	if err != nil {
		return db.WrapError(err, "insert video")
	}

	v.CreatedAt = parseTime(created)
	v.UpdatedAt = parseTime(updated)
	return nil
}

func (r *videoRepository) update(ctx context.Context, v *models.Video) error {
	query := `
		UPDATE videos SET
			title = ?, channel_id = ?, channel_title = ?, subscriber_count = ?,
			uploaded_at = ?, upload_days_ago = ?, views = ?, likes = ?,
			thumbnail_url = ?, description = ?, state = ?, error_message = ?,
			passed_views = ?, passed_upload_age = ?, passed_subscribers = ?, passed_view_sub_ratio = ?,
			tier1_validated = ?, tier1_score = ?, tier1_language_score = ?, tier1_currency_score = ?,
			tier1_cultural_score = ?, tier1_region_score = ?, tier1_has_exclude = ?, channel_location = ?
		WHERE id = ?
	`

	args := append(mutableArgs(v), v.ID)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return db.WrapError(err, "update video")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update video %d: %w", v.ID, db.ErrNotFound)
	}

	var updated string
	if err := r.db.QueryRowContext(ctx, `SELECT updated_at FROM videos WHERE id = ?`, v.ID).Scan(&updated); err != nil {
		return db.WrapError(err, "read updated_at")
	}
	v.UpdatedAt = parseTime(updated)
	return nil
}

// mutableArgs lists every column an update may overwrite, in the order the
// insert and update statements expect after video_id.
func mutableArgs(v *models.Video) []any {
	return []any{
		v.Title,
		v.ChannelID,
		v.ChannelTitle,
		v.SubscriberCount,
		formatTime(v.UploadedAt),
		v.UploadDaysAgo,
		v.Views,
		v.Likes,
		v.ThumbnailURL,
		v.Description,
		string(v.State),
		nullableString(v.ErrorMessage),
		boolToInt(v.PassedViews),
		boolToInt(v.PassedUploadAge),
		boolToInt(v.PassedSubscribers),
		boolToInt(v.PassedViewSubRatio),
		boolToInt(v.Tier1Validated),
		v.Tier1Score,
		v.Tier1LanguageScore,
		v.Tier1CurrencyScore,
		v.Tier1CulturalScore,
		v.Tier1RegionScore,
		boolToInt(v.Tier1HasExclude),
		v.ChannelLocation,
	}
}

func (r *videoRepository) FindByVideoID(ctx context.Context, videoID string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE video_id = ?`

	video, err := scanVideo(r.db.QueryRowContext(ctx, query, videoID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, db.WrapError(err, "find video")
	}
	return video, nil
}

func (r *videoRepository) List(ctx context.Context, limit int) ([]*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos ORDER BY views DESC, id ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, db.WrapError(err, "list videos")
	}
	defer rows.Close()

	videos := make([]*models.Video, 0)
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, db.WrapError(err, "scan video")
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, db.WrapError(err, "iterate videos")
	}

	return videos, nil
}

func (r *videoRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`).Scan(&count); err != nil {
		return 0, db.WrapError(err, "count videos")
	}
	return count, nil
}

func (r *videoRepository) DeleteAll(ctx context.Context) (int64, error) {
	var removed int64
	res := r.retry.Do(ctx, func(ctx context.Context) error {
		result, err := r.db.ExecContext(ctx, `DELETE FROM videos`)
		if err != nil {
			return db.WrapError(err, "delete videos")
		}
		removed, err = result.RowsAffected()
		return err
	})
	if !res.OK() {
		return 0, res.Err
	}

	r.logger.Info("cleared video store", zap.Int64("removed", removed))
	return removed, nil
}

func (r *videoRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (*models.Video, error) {
	var (
		v            models.Video
		uploadedAt   sql.NullString
		state        string
		errorMessage sql.NullString
		passedViews  int
		passedAge    int
		passedSubs   int
		passedRatio  int
		validated    int
		hasExclude   int
		createdAt    string
		updatedAt    string
	)

	err := row.Scan(
		&v.ID,
		&v.VideoID,
		&v.Title,
		&v.ChannelID,
		&v.ChannelTitle,
		&v.SubscriberCount,
		&uploadedAt,
		&v.UploadDaysAgo,
		&v.Views,
		&v.Likes,
		&v.ThumbnailURL,
		&v.Description,
		&state,
		&errorMessage,
		&passedViews,
		&passedAge,
		&passedSubs,
		&passedRatio,
		&validated,
		&v.Tier1Score,
		&v.Tier1LanguageScore,
		&v.Tier1CurrencyScore,
		&v.Tier1CulturalScore,
		&v.Tier1RegionScore,
		&hasExclude,
		&v.ChannelLocation,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if uploadedAt.Valid {
		v.UploadedAt = parseTime(uploadedAt.String)
	}
	v.State = models.State(state)
	if errorMessage.Valid {
		msg := errorMessage.String
		v.ErrorMessage = &msg
	}
	v.PassedViews = passedViews != 0
	v.PassedUploadAge = passedAge != 0
	v.PassedSubscribers = passedSubs != 0
	v.PassedViewSubRatio = passedRatio != 0
	v.Tier1Validated = validated != 0
	v.Tier1HasExclude = hasExclude != 0
	v.CreatedAt = parseTime(createdAt)
	v.UpdatedAt = parseTime(updatedAt)

	return &v, nil
}
