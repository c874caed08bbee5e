package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/sobrhq/sobr-server/pkg/response"
)

type HealthHandler struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
}

func NewHealthHandler(pool *pgxpool.Pool, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{Pool: pool, Redis: rdb}
}

func (h *HealthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// Health pings the backing stores and reports per-dependency status.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	checks := gin.H{}
	healthy := true

	if h.Pool != nil {
		if err := h.Pool.Ping(ctx); err != nil {
			checks["postgres"] = "down"
			healthy = false
		} else {
			checks["postgres"] = "ok"
		}
	}
	if h.Redis != nil {
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "down"
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	msg := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		msg = "degraded"
	}
	response.Success[any](c, status, gin.H{
		"checks": checks,
		"time":   time.Now().UTC(),
	}, msg, nil)
}
