// Package handler serves the hunter's stored results over a read-only HTTP API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	store   Pinger
	started time.Time
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store, started: time.Now()}
}

// LivenessProbe answers as long as the process can serve requests.
func (h *HealthHandler) LivenessProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// ReadinessProbe pings the local store.
func (h *HealthHandler) ReadinessProbe(c *gin.Context) {
	begin := time.Now()
	err := h.store.Ping(c.Request.Context())
	body := gin.H{
		"status":     "UP",
		"store":      "healthy",
		"latency_ms": time.Since(begin).Milliseconds(),
	}
	if err != nil {
		body["status"] = "DOWN"
		body["store"] = "unhealthy"
		body["error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
