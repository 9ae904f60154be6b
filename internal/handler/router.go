package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ad-tracker/video-hunter-go/internal/middleware"
)

// RouterConfig lists what the read-only API serves. Quota and Gatherer are
// optional.
type RouterConfig struct {
	Videos   VideoReader
	Store    Pinger
	Quota    QuotaReader
	Gatherer prometheus.Gatherer
	APIKeys  []string
	Logger   *zap.Logger
}

// NewRouter builds the gin engine. Health and metrics are always open; the
// /api/v1 group requires a key when APIKeys is non-empty.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(cfg.Logger))

	health := NewHealthHandler(cfg.Store)
	r.GET("/health/live", health.LivenessProbe)
	r.GET("/health/ready", health.ReadinessProbe)

	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api/v1")
	if len(cfg.APIKeys) > 0 {
		api.Use(middleware.NewAPIKeyAuth(cfg.APIKeys, cfg.Logger).Handler())
	}

	videos := NewVideoHandler(cfg.Videos)
	api.GET("/videos", videos.List)
	api.GET("/videos/:id", videos.Get)
	api.GET("/summary", videos.Summary)

	if cfg.Quota != nil {
		api.GET("/quota", NewQuotaHandler(cfg.Quota).Get)
	}

	return r
}
