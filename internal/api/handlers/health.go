package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/squad-optimizer/internal/optimizer"
	"github.com/stitts-dev/squad-optimizer/internal/pool"
	"github.com/stitts-dev/squad-optimizer/pkg/config"
	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

// DatabaseChecker is the health probe of the candidate database.
type DatabaseChecker interface {
	HealthCheck() error
}

// PoolStatusReporter exposes the pool snapshot state.
type PoolStatusReporter interface {
	Status() pool.Status
}

// CacheStatusReporter exposes cache statistics.
type CacheStatusReporter interface {
	GetStatus(ctx context.Context) map[string]interface{}
}

// ConnectionCounter reports open WebSocket connections.
type ConnectionCounter interface {
	GetConnectionCount() int
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db        DatabaseChecker
	redis     *redis.Client
	engine    *optimizer.Engine
	pool      PoolStatusReporter
	cache     CacheStatusReporter
	wsHub     ConnectionCounter
	logger    *logrus.Logger
	startedAt time.Time
}

// NewHealthHandler creates a new health handler. Every dependency except the engine
// may be nil when it is not configured.
func NewHealthHandler(
	db DatabaseChecker,
	redis *redis.Client,
	engine *optimizer.Engine,
	pool PoolStatusReporter,
	cache CacheStatusReporter,
	wsHub ConnectionCounter,
	logger *logrus.Logger,
) *HealthHandler {
	return &HealthHandler{
		db:        db,
		redis:     redis,
		engine:    engine,
		pool:      pool,
		cache:     cache,
		wsHub:     wsHub,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// GetHealth returns the basic health status. The solver needs neither store, so a
// failing store degrades the service rather than taking it down.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	response := h.checks(c.Request.Context(), "ok", "degraded")

	statusCode := http.StatusOK
	if response.Status == "degraded" {
		statusCode = http.StatusPartialContent
	}
	c.JSON(statusCode, response)
}

// GetReady reports ready once a candidate pool can be served
func (h *HealthHandler) GetReady(c *gin.Context) {
	response := h.checks(c.Request.Context(), "ready", "ready")

	if h.pool != nil {
		status := h.pool.Status()
		if status.Candidates == 0 && status.BreakerState == "open" {
			response.Status = "not_ready"
			response.Checks["pool"] = "unavailable"
		} else {
			response.Checks["pool"] = "ok"
		}
	}

	statusCode := http.StatusOK
	if response.Status != "ready" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}

// GetMetrics returns engine counters, pool state and cache statistics
func (h *HealthHandler) GetMetrics(c *gin.Context) {
	metrics := map[string]interface{}{
		"service":   config.ServiceName,
		"timestamp": time.Now(),
		"uptime":    time.Since(h.startedAt).Seconds(),
		"engine":    h.engine.Stats(),
	}

	if h.pool != nil {
		metrics["pool"] = h.pool.Status()
	}
	if h.cache != nil {
		metrics["cache"] = h.cache.GetStatus(c.Request.Context())
	}
	if h.wsHub != nil {
		metrics["websocket_connections"] = h.wsHub.GetConnectionCount()
	}

	c.JSON(http.StatusOK, metrics)
}

func (h *HealthHandler) checks(ctx context.Context, okStatus, failedStatus string) types.HealthStatus {
	response := types.HealthStatus{
		Status:    okStatus,
		Service:   config.ServiceName,
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	if h.db != nil {
		if err := h.db.HealthCheck(); err != nil {
			response.Status = failedStatus
			response.Checks["database"] = "failed: " + err.Error()
		} else {
			response.Checks["database"] = "ok"
		}
	} else {
		response.Checks["database"] = "not_configured"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			response.Status = failedStatus
			response.Checks["redis"] = "failed: " + err.Error()
		} else {
			response.Checks["redis"] = "ok"
		}
	} else {
		response.Checks["redis"] = "not_configured"
	}

	return response
}
