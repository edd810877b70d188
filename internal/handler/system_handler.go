package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/raito-kakutani/timable/internal/service"
)

// SystemHandler exposes health, readiness and metrics endpoints.
type SystemHandler struct {
	db      *sqlx.DB
	cache   *redis.Client
	metrics *service.MetricsService
}

// NewSystemHandler constructs a system handler.
func NewSystemHandler(db *sqlx.DB, cache *redis.Client, metrics *service.MetricsService) *SystemHandler {
	return &SystemHandler{db: db, cache: cache, metrics: metrics}
}

// Health responds with a generic OK payload for liveness probes.
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready verifies the database and cache connections.
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok", "cache": "ok"}
	healthy := true

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			checks["database"] = err.Error()
			healthy = false
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx).Err(); err != nil {
			checks["cache"] = err.Error()
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": readyStatus(healthy), "checks": checks})
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *SystemHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

func readyStatus(healthy bool) string {
	if healthy {
		return "ready"
	}
	return "degraded"
}
