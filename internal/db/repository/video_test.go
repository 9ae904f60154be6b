package repository

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ad-tracker/video-hunter-go/internal/db"
	"github.com/ad-tracker/video-hunter-go/internal/db/models"
	"github.com/ad-tracker/video-hunter-go/internal/db/testutil"
	"github.com/ad-tracker/video-hunter-go/internal/metrics"
)

func newScrapedVideo(videoID string, views int64) *models.Video {
	v := models.NewVideo(videoID, "UCabcdefghijklmnopqrstuv", "Title "+videoID, time.Now().Add(-48*time.Hour))
	v.ChannelTitle = "Channel"
	v.SubscriberCount = 12000
	v.UploadDaysAgo = 2
	v.Views = views
	v.Likes = views / 20
	v.ThumbnailURL = "https://i.ytimg.com/vi/" + videoID + "/maxresdefault.jpg"
	v.Description = "description"
	v.State = models.StateScraped
	v.PassedViews = true
	v.PassedUploadAge = true
	v.PassedSubscribers = true
	v.PassedViewSubRatio = true
	v.Tier1Validated = true
	v.Tier1LanguageScore = 0.40
	v.Tier1CurrencyScore = 0.20
	v.Tier1CulturalScore = 0.10
	v.Tier1RegionScore = 0.10
	v.Tier1Score = 0.80
	v.ChannelLocation = "US"
	return v
}

func TestVideoRepository_Upsert(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	repo := NewVideoRepository(td.DB)
	ctx := context.Background()

	t.Run("creates new video", func(t *testing.T) {
		td.TruncateTables(t)

		video := newScrapedVideo("video000001", 10000)
		require.True(t, repo.Upsert(ctx, video))
		assert.NotZero(t, video.ID)
		assert.False(t, video.CreatedAt.IsZero())
		assert.False(t, video.UpdatedAt.IsZero())

		stored, err := repo.FindByVideoID(ctx, "video000001")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, video.ID, stored.ID)
		assert.Equal(t, models.StateScraped, stored.State)
		assert.Equal(t, int64(10000), stored.Views)
		assert.Equal(t, int64(500), stored.Likes)
		assert.Equal(t, "US", stored.ChannelLocation)
		assert.True(t, stored.PassedHardFilter())
		assert.True(t, stored.Tier1Validated)
		assert.InDelta(t, 0.80, stored.Tier1Score, 1e-9)
		assert.InDelta(t, stored.Tier1Score,
			stored.Tier1LanguageScore+stored.Tier1CurrencyScore+stored.Tier1CulturalScore+stored.Tier1RegionScore, 1e-9)
		assert.WithinDuration(t, video.UploadedAt, stored.UploadedAt, time.Millisecond)
		assert.Nil(t, stored.ErrorMessage)
	})

	t.Run("duplicate insert is absorbed and keeps first created_at", func(t *testing.T) {
		td.TruncateTables(t)

		first := newScrapedVideo("video000002", 10000)
		require.True(t, repo.Upsert(ctx, first))
		original, err := repo.FindByVideoID(ctx, "video000002")
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)

		second := newScrapedVideo("video000002", 99999)
		second.Title = "changed"
		require.True(t, repo.Upsert(ctx, second))
		assert.Zero(t, second.ID)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		stored, err := repo.FindByVideoID(ctx, "video000002")
		require.NoError(t, err)
		assert.Equal(t, original.CreatedAt, stored.CreatedAt)
		assert.Equal(t, "Title video000002", stored.Title)
		assert.Equal(t, int64(10000), stored.Views)
	})

	t.Run("update path overwrites and bumps updated_at", func(t *testing.T) {
		td.TruncateTables(t)

		video := newScrapedVideo("video000003", 10000)
		require.True(t, repo.Upsert(ctx, video))
		before, err := repo.FindByVideoID(ctx, "video000003")
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)

		video.Title = "updated title"
		video.Views = 20000
		video.State = models.StateProcessed
		require.True(t, repo.Upsert(ctx, video))

		after, err := repo.FindByVideoID(ctx, "video000003")
		require.NoError(t, err)
		assert.Equal(t, "updated title", after.Title)
		assert.Equal(t, int64(20000), after.Views)
		assert.Equal(t, models.StateProcessed, after.State)
		assert.Equal(t, before.CreatedAt, after.CreatedAt)
		assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
		assert.Equal(t, after.UpdatedAt, video.UpdatedAt)
	})

	t.Run("update of unknown id fails without retrying", func(t *testing.T) {
		td.TruncateTables(t)

		video := newScrapedVideo("video000004", 10000)
		video.ID = 4242
		assert.False(t, repo.Upsert(ctx, video))
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		assert.False(t, repo.Upsert(ctx, nil))
		assert.False(t, repo.Upsert(ctx, &models.Video{}))

		bad := newScrapedVideo("video000005", 1)
		bad.State = "DONE"
		assert.False(t, repo.Upsert(ctx, bad))
	})

	t.Run("failed state keeps error message", func(t *testing.T) {
		td.TruncateTables(t)

		video := newScrapedVideo("video000006", 10)
		video.MarkFailed("thumbnail missing")
		require.True(t, repo.Upsert(ctx, video))

		stored, err := repo.FindByVideoID(ctx, "video000006")
		require.NoError(t, err)
		assert.Equal(t, models.StateFailed, stored.State)
		require.NotNil(t, stored.ErrorMessage)
		assert.Equal(t, "thumbnail missing", *stored.ErrorMessage)
	})
}

func TestVideoRepository_FindByVideoID_Missing(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	repo := NewVideoRepository(td.DB)

	video, err := repo.FindByVideoID(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, video)
}

func TestVideoRepository_ListCountDeleteAll(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	repo := NewVideoRepository(td.DB)
	ctx := context.Background()

	empty, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for i, views := range []int64{7000, 42000, 15000, 5000} {
		require.True(t, repo.Upsert(ctx, newScrapedVideo(fmt.Sprintf("video%06d", i), views)))
	}

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Views, all[i].Views)
	}
	assert.Equal(t, int64(42000), all[0].Views)

	top, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(15000), top[1].Views)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	removed, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), removed)

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	removed, err = repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	assert.NoError(t, repo.Ping(ctx))
}

func TestVideoRepository_Upsert_RetriesLockContention(t *testing.T) {
	if testing.Short() {
		t.Skip("waits through the real backoff schedule")
	}

	td := testutil.SetupTestDatabaseWithBusyTimeout(t, time.Millisecond)
	other := td.OpenSecondConnection(t)
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	repo := NewVideoRepository(td.DB, WithMetrics(m))

	tx := holdWriteLock(t, other)
	released := make(chan struct{})
	go func() {
		time.Sleep(700 * time.Millisecond)
		_ = tx.Rollback()
		close(released)
	}()

	start := time.Now()
	ok := repo.Upsert(ctx, newScrapedVideo("video000007", 9000))
	elapsed := time.Since(start)
	<-released

	require.True(t, ok)
	assert.GreaterOrEqual(t, elapsed, 1500*time.Millisecond)
	assert.GreaterOrEqual(t, promtestutil.ToFloat64(m.StoreRetries), 2.0)
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.StoreWrites.WithLabelValues(db.RetrySucceeded.String())))
}

func TestVideoRepository_Upsert_ExhaustsRetries(t *testing.T) {
	td := testutil.SetupTestDatabaseWithBusyTimeout(t, time.Millisecond)
	other := td.OpenSecondConnection(t)
	ctx := context.Background()

	policy := db.RetryPolicy{MaxRetries: 2, InitialInterval: 5 * time.Millisecond, Multiplier: 2}
	var waits []time.Duration
	policy.Notify = func(err error, wait time.Duration) { waits = append(waits, wait) }
	repo := NewVideoRepository(td.DB, WithRetryPolicy(policy))

	tx := holdWriteLock(t, other)
	defer tx.Rollback() //nolint:errcheck

	assert.False(t, repo.Upsert(ctx, newScrapedVideo("video000008", 9000)))
	assert.Equal(t, []time.Duration{5 * time.Millisecond, 10 * time.Millisecond}, waits)
}

// holdWriteLock takes the SQLite write lock on conn and keeps it until the
// returned transaction ends.
func holdWriteLock(t *testing.T, conn *sql.DB) *sql.Tx {
	t.Helper()

	tx, err := conn.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	_, err = tx.Exec(`INSERT INTO videos (video_id, title) VALUES ('lockholder1', 'lock')`)
	require.NoError(t, err)
	return tx
}
