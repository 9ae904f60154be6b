package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ad-tracker/video-hunter-go/internal/config"
	"github.com/ad-tracker/video-hunter-go/internal/db"
	"github.com/ad-tracker/video-hunter-go/internal/db/repository"
	"github.com/ad-tracker/video-hunter-go/internal/metrics"
	"github.com/ad-tracker/video-hunter-go/internal/service/quota"
	"github.com/ad-tracker/video-hunter-go/internal/service/youtube"
	"github.com/ad-tracker/video-hunter-go/pkg/logger"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		registry:     reg,
		metrics:      metrics.New(reg),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.LoadFrom(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) initLogging() error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	level := cfg.Logging.Level
	if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
		level = *c.logLevelFlag
	}
	if err := logger.Init(level, cfg.Logging.File); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	return nil
}

// withStore opens the local store for the duration of fn.
func (c *commandContext) withStore(ctx context.Context, fn func(*sql.DB) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	conn, err := db.Open(ctx, &db.Config{
		Path:        cfg.Database.Path,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return err
	}
	defer db.Close(conn)
	return fn(conn)
}

func (c *commandContext) videoRepository(conn *sql.DB) repository.VideoRepository {
	cfg := c.config
	policy := db.DefaultRetryPolicy()
	if cfg.Database.MaxRetries >= 0 {
		policy.MaxRetries = cfg.Database.MaxRetries
	}
	if cfg.Database.RetryInitialInterval > 0 {
		policy.InitialInterval = cfg.Database.RetryInitialInterval
	}
	return repository.NewVideoRepository(conn,
		repository.WithLogger(logger.Named("store")),
		repository.WithRetryPolicy(policy),
		repository.WithMetrics(c.metrics),
	)
}

func (c *commandContext) quotaManager(conn *sql.DB) *quota.Manager {
	cfg := c.config
	repo := repository.NewQuotaRepository(conn, cfg.Quota.DailyLimit)
	return quota.NewManager(repo, cfg.Quota.DailyLimit, cfg.Quota.ThresholdPercent, logger.Named("quota"))
}

func (c *commandContext) youtubeClient(ctx context.Context, gate youtube.QuotaGate) (*youtube.Client, error) {
	cfg := c.config
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	opts := []youtube.Option{
		youtube.WithEndpoint(cfg.YouTube.Endpoint),
		youtube.WithRateLimitDelay(cfg.YouTube.RateLimitDelay),
		youtube.WithRequestTimeout(cfg.YouTube.RequestTimeout),
		youtube.WithLogger(logger.Named("youtube")),
		youtube.WithMetrics(c.metrics),
	}
	if gate != nil {
		opts = append(opts, youtube.WithQuotaGate(gate))
	}
	return youtube.NewClient(ctx, cfg.YouTube.APIKey, opts...)
}

func (c *commandContext) writeMetrics(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	logger.Log.Debug("metrics written", zap.String("path", path))
	return nil
}
