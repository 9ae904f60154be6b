package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ad-tracker/video-hunter-go/internal/db/models"
	"github.com/ad-tracker/video-hunter-go/internal/validation"
	"github.com/ad-tracker/video-hunter-go/pkg/logger"
)

// VideoReader is the read side of the video store.
type VideoReader interface {
	FindByVideoID(ctx context.Context, videoID string) (*models.Video, error)
	List(ctx context.Context, limit int) ([]*models.Video, error)
	Count(ctx context.Context) (int, error)
}

// VideoResponse is a stored video plus the derived figures shown in listings.
type VideoResponse struct {
	*models.Video
	URL            string  `json:"url"`
	ChannelURL     string  `json:"channel_url"`
	VPH            float64 `json:"vph"`
	EngagementRate float64 `json:"engagement_rate"`
	Country        string  `json:"country"`
}

// VideoListResponse is the body of GET /api/v1/videos.
type VideoListResponse struct {
	Videos []VideoResponse `json:"videos"`
	PaginatedResponse
}

func newVideoResponse(v *models.Video) VideoResponse {
	return VideoResponse{
		Video:          v,
		URL:            v.URL(),
		ChannelURL:     v.ChannelURL(),
		VPH:            v.VPH(),
		EngagementRate: v.EngagementRate(),
		Country:        v.CountryName(),
	}
}

// VideoHandler serves stored videos, most viewed first.
type VideoHandler struct {
	repo      VideoReader
	validator *validation.Validator
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(repo VideoReader) *VideoHandler {
	return &VideoHandler{
		repo:      repo,
		validator: validation.New(0, true),
	}
}

// List handles GET /api/v1/videos?limit=N.
func (h *VideoHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	limit := parseLimit(c)

	videos, err := h.repo.List(ctx, limit)
	if err != nil {
		logger.Log.Error("failed to list videos", zap.Error(err))
		sendError(c, http.StatusInternalServerError, "failed to list videos")
		return
	}

	total, err := h.repo.Count(ctx)
	if err != nil {
		logger.Log.Error("failed to count videos", zap.Error(err))
		sendError(c, http.StatusInternalServerError, "failed to count videos")
		return
	}

	resp := VideoListResponse{
		Videos: make([]VideoResponse, 0, len(videos)),
		PaginatedResponse: PaginatedResponse{
			Count: len(videos),
			Total: total,
			Limit: limit,
		},
	}
	for _, v := range videos {
		resp.Videos = append(resp.Videos, newVideoResponse(v))
	}

	c.JSON(http.StatusOK, resp)
}

// Get handles GET /api/v1/videos/:id.
func (h *VideoHandler) Get(c *gin.Context) {
	videoID := c.Param("id")
	if !h.validator.IsValidVideoID(videoID) {
		sendError(c, http.StatusBadRequest, "invalid video id: "+videoID)
		return
	}

	video, err := h.repo.FindByVideoID(c.Request.Context(), videoID)
	if err != nil {
		logger.Log.Error("failed to get video", zap.String("video_id", videoID), zap.Error(err))
		sendError(c, http.StatusInternalServerError, "failed to get video")
		return
	}
	if video == nil {
		sendError(c, http.StatusNotFound, "video not found")
		return
	}

	c.JSON(http.StatusOK, newVideoResponse(video))
}

// Summary handles GET /api/v1/summary.
func (h *VideoHandler) Summary(c *gin.Context) {
	total, err := h.repo.Count(c.Request.Context())
	if err != nil {
		logger.Log.Error("failed to count videos", zap.Error(err))
		sendError(c, http.StatusInternalServerError, "failed to count videos")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"videos": total,
		"time":   time.Now().UTC(),
	})
}
