// Package quota keeps the hunter inside a local share of the daily YouTube
// API budget.
package quota

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ad-tracker/video-hunter-go/internal/db/repository"
	"github.com/ad-tracker/video-hunter-go/internal/model"
)

const (
	defaultDailyLimit       = 10000
	defaultThresholdPercent = 90
)

// Manager gates API calls against a percentage of the daily quota.
type Manager struct {
	repo             repository.QuotaRepository
	dailyLimit       int
	thresholdPercent int
	logger           *zap.Logger
}

// NewManager creates a new quota manager. Out-of-range limits fall back to
// 10000 units and a 90% threshold.
func NewManager(repo repository.QuotaRepository, dailyLimit, thresholdPercent int, logger *zap.Logger) *Manager {
	if dailyLimit <= 0 {
		dailyLimit = defaultDailyLimit
	}
	if thresholdPercent <= 0 || thresholdPercent > 100 {
		thresholdPercent = defaultThresholdPercent
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		repo:             repo,
		dailyLimit:       dailyLimit,
		thresholdPercent: thresholdPercent,
		logger:           logger,
	}
}

// Threshold is the number of units the hunter may spend per day.
func (m *Manager) Threshold() int {
	return m.dailyLimit * m.thresholdPercent / 100
}

// CheckQuotaAvailable reports whether requiredQuota more units fit under the
// threshold. The returned info is today's usage.
func (m *Manager) CheckQuotaAvailable(ctx context.Context, requiredQuota int) (bool, *model.QuotaInfo, error) {
	info, err := m.repo.GetTodaysQuota(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("failed to get quota info: %w", err)
	}

	threshold := m.Threshold()
	// Report headroom against the threshold, not the hard limit.
	gated := *info
	gated.QuotaRemaining = max(threshold-info.QuotaUsed, 0)

	if info.QuotaUsed >= threshold {
		m.logger.Warn("quota threshold reached",
			zap.Int("used", info.QuotaUsed),
			zap.Int("limit", m.dailyLimit),
			zap.Float64("percent", m.percent(info.QuotaUsed)),
		)
		return false, &gated, nil
	}

	if info.QuotaUsed+requiredQuota > threshold {
		m.logger.Warn("not enough quota for operation",
			zap.Int("required", requiredQuota),
			zap.Int("remaining", gated.QuotaRemaining),
			zap.Int("threshold", threshold),
		)
		return false, &gated, nil
	}

	return true, &gated, nil
}

// RecordQuotaUsage records API quota usage
func (m *Manager) RecordQuotaUsage(ctx context.Context, quotaCost int, operationType string) error {
	if err := m.repo.IncrementQuota(ctx, quotaCost, operationType); err != nil {
		return fmt.Errorf("failed to record quota usage: %w", err)
	}

	if info, err := m.repo.GetTodaysQuota(ctx); err == nil && info != nil {
		m.logger.Debug("quota used",
			zap.Int("used", info.QuotaUsed),
			zap.Int("limit", m.dailyLimit),
			zap.Float64("percent", m.percent(info.QuotaUsed)),
			zap.Int("cost", quotaCost),
			zap.String("operation", operationType),
		)
	}

	return nil
}

// GetQuotaInfo returns current quota information
func (m *Manager) GetQuotaInfo(ctx context.Context) (*model.QuotaInfo, error) {
	return m.repo.GetTodaysQuota(ctx)
}

// GetQuotaUsagePercentage returns the percentage of daily quota used
func (m *Manager) GetQuotaUsagePercentage(ctx context.Context) (float64, error) {
	info, err := m.repo.GetTodaysQuota(ctx)
	if err != nil {
		return 0, err
	}
	return m.percent(info.QuotaUsed), nil
}

// IsQuotaExhausted checks if quota threshold has been reached
func (m *Manager) IsQuotaExhausted(ctx context.Context) (bool, error) {
	info, err := m.repo.GetTodaysQuota(ctx)
	if err != nil {
		return false, err
	}
	return info.QuotaUsed >= m.Threshold(), nil
}

// GetRemainingQuota returns how much quota is remaining before threshold
func (m *Manager) GetRemainingQuota(ctx context.Context) (int, error) {
	info, err := m.repo.GetTodaysQuota(ctx)
	if err != nil {
		return 0, err
	}
	return max(m.Threshold()-info.QuotaUsed, 0), nil
}

// History returns up to days of per-day usage, newest first.
func (m *Manager) History(ctx context.Context, days int) ([]*model.APIQuotaUsage, error) {
	return m.repo.GetQuotaHistory(ctx, days)
}

func (m *Manager) percent(used int) float64 {
	return float64(used) / float64(m.dailyLimit) * 100
}
