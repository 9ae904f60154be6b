package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
	_ "time/tzdata"

	"github.com/ad-tracker/video-hunter-go/internal/db"
	"github.com/ad-tracker/video-hunter-go/internal/model"
)

// QuotaRepository defines operations for managing API quota usage
type QuotaRepository interface {
	// GetTodaysQuota retrieves today's quota usage
	GetTodaysQuota(ctx context.Context) (*model.QuotaInfo, error)

	// IncrementQuota increments today's quota usage
	IncrementQuota(ctx context.Context, quotaCost int, operationType string) error

	// GetQuotaForDate retrieves quota usage for a specific date
	GetQuotaForDate(ctx context.Context, date time.Time) (*model.APIQuotaUsage, error)

	// GetQuotaHistory retrieves quota usage history, newest first
	GetQuotaHistory(ctx context.Context, days int) ([]*model.APIQuotaUsage, error)
}

// quotaLocation is where the YouTube quota day rolls over.
var quotaLocation = mustLoadLocation("America/Los_Angeles")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// QuotaDate is the quota-day key for t.
func QuotaDate(t time.Time) string {
	return t.In(quotaLocation).Format("2006-01-02")
}

type quotaRepository struct {
	db         *sql.DB
	dailyLimit int
	now        func() time.Time
	retry      db.RetryPolicy
}

// NewQuotaRepository creates a new QuotaRepository
func NewQuotaRepository(conn *sql.DB, dailyLimit int) QuotaRepository {
	return newQuotaRepository(conn, dailyLimit, time.Now)
}

func newQuotaRepository(conn *sql.DB, dailyLimit int, now func() time.Time) *quotaRepository {
	if dailyLimit <= 0 {
		dailyLimit = 10000
	}
	return &quotaRepository{
		db:         conn,
		dailyLimit: dailyLimit,
		now:        now,
		retry:      db.DefaultRetryPolicy(),
	}
}

func (r *quotaRepository) GetTodaysQuota(ctx context.Context) (*model.QuotaInfo, error) {
	date := QuotaDate(r.now())
	info := &model.QuotaInfo{Date: date, QuotaLimit: r.dailyLimit}

	err := r.db.QueryRowContext(ctx,
		`SELECT quota_used, operations_count FROM api_quota_usage WHERE date = ?`, date,
	).Scan(&info.QuotaUsed, &info.OperationsCount)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, db.WrapError(err, "get todays quota")
	}

	info.QuotaRemaining = info.QuotaLimit - info.QuotaUsed
	if info.QuotaRemaining < 0 {
		info.QuotaRemaining = 0
	}
	return info, nil
}

func (r *quotaRepository) IncrementQuota(ctx context.Context, quotaCost int, operationType string) error {
	var search, videos, channels, other int
	switch operationType {
	case model.OpSearchList:
		search = 1
	case model.OpVideosList:
		videos = 1
	case model.OpChannelsList:
		channels = 1
	default:
		other = 1
	}

	query := `
		INSERT INTO api_quota_usage (
			date, quota_used, quota_limit, operations_count,
			search_calls, videos_list_calls, channels_list_calls, other_calls
		) VALUES (?, ?, ?, 1, ?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			quota_used = quota_used + excluded.quota_used,
			quota_limit = excluded.quota_limit,
			operations_count = operations_count + 1,
			search_calls = search_calls + excluded.search_calls,
			videos_list_calls = videos_list_calls + excluded.videos_list_calls,
			channels_list_calls = channels_list_calls + excluded.channels_list_calls,
			other_calls = other_calls + excluded.other_calls,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`

	res := r.retry.Do(ctx, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, query,
			QuotaDate(r.now()), quotaCost, r.dailyLimit, search, videos, channels, other)
		return db.WrapError(err, "increment quota")
	})
	return res.Err
}

const quotaColumns = `
	id, date, quota_used, quota_limit, operations_count,
	search_calls, videos_list_calls, channels_list_calls, other_calls,
	created_at, updated_at`

func (r *quotaRepository) GetQuotaForDate(ctx context.Context, date time.Time) (*model.APIQuotaUsage, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+quotaColumns+` FROM api_quota_usage WHERE date = ?`, QuotaDate(date))

	usage, err := scanQuotaUsage(row)
	if err != nil {
		return nil, db.WrapError(err, "get quota for date")
	}
	return usage, nil
}

func (r *quotaRepository) GetQuotaHistory(ctx context.Context, days int) ([]*model.APIQuotaUsage, error) {
	if days <= 0 {
		days = 7
	}
	since := QuotaDate(r.now().AddDate(0, 0, -days))

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+quotaColumns+` FROM api_quota_usage WHERE date > ? ORDER BY date DESC`, since)
	if err != nil {
		return nil, db.WrapError(err, "get quota history")
	}
	defer rows.Close()

	var history []*model.APIQuotaUsage
	for rows.Next() {
		usage, err := scanQuotaUsage(rows)
		if err != nil {
			return nil, db.WrapError(err, "scan quota history")
		}
		history = append(history, usage)
	}
	if err := rows.Err(); err != nil {
		return nil, db.WrapError(err, "iterate quota history")
	}

	return history, nil
}

func scanQuotaUsage(row rowScanner) (*model.APIQuotaUsage, error) {
	var (
		usage     model.APIQuotaUsage
		createdAt string
		updatedAt string
	)
	err := row.Scan(
		&usage.ID,
		&usage.Date,
		&usage.QuotaUsed,
		&usage.QuotaLimit,
		&usage.OperationsCount,
		&usage.SearchCalls,
		&usage.VideosListCalls,
		&usage.ChannelsListCalls,
		&usage.OtherCalls,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	usage.CreatedAt = parseTime(createdAt)
	usage.UpdatedAt = parseTime(updatedAt)
	return &usage, nil
}
