package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ad-tracker/video-hunter-go/internal/model"
	"github.com/ad-tracker/video-hunter-go/pkg/logger"
)

const defaultHistoryDays = 7

// QuotaReader reports API quota usage.
type QuotaReader interface {
	GetQuotaInfo(ctx context.Context) (*model.QuotaInfo, error)
	History(ctx context.Context, days int) ([]*model.APIQuotaUsage, error)
}

// QuotaHandler serves quota usage.
type QuotaHandler struct {
	quota QuotaReader
}

func NewQuotaHandler(quota QuotaReader) *QuotaHandler {
	return &QuotaHandler{quota: quota}
}

// Get handles GET /api/v1/quota?days=N.
func (h *QuotaHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	days := defaultHistoryDays
	if v, err := strconv.Atoi(c.Query("days")); err == nil && v > 0 && v <= 90 {
		days = v
	}

	today, err := h.quota.GetQuotaInfo(ctx)
	if err != nil {
		logger.Log.Error("failed to read quota", zap.Error(err))
		sendError(c, http.StatusInternalServerError, "failed to read quota")
		return
	}

	history, err := h.quota.History(ctx, days)
	if err != nil {
		logger.Log.Error("failed to read quota history", zap.Error(err))
		sendError(c, http.StatusInternalServerError, "failed to read quota history")
		return
	}
	if history == nil {
		history = []*model.APIQuotaUsage{}
	}

	c.JSON(http.StatusOK, gin.H{
		"today":   today,
		"history": history,
	})
}
