package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/squad-optimizer/internal/optimizer"
	"github.com/stitts-dev/squad-optimizer/pkg/cache"
	"github.com/stitts-dev/squad-optimizer/pkg/config"
	"github.com/stitts-dev/squad-optimizer/pkg/ilp"
	"github.com/stitts-dev/squad-optimizer/pkg/logger"
	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

// PoolSource supplies the shared candidate pool.
type PoolSource interface {
	Candidates(ctx context.Context) ([]types.Candidate, error)
}

// SquadStore holds the last optimized squad of each session.
type SquadStore interface {
	SetLastSquad(ctx context.Context, sessionID string, report *types.SquadReport, expiration time.Duration) error
	GetLastSquad(ctx context.Context, sessionID string) (*types.SquadReport, error)
	ClearLastSquad(ctx context.Context, sessionID string) error
}

// ProgressBroadcaster pushes progress updates to a session's listeners.
type ProgressBroadcaster interface {
	BroadcastToSession(sessionID string, message interface{})
}

// OptimizationHandler handles optimization-related endpoints
type OptimizationHandler struct {
	engine   *optimizer.Engine
	pool     PoolSource
	squads   SquadStore
	progress ProgressBroadcaster
	config   *config.Config
	logger   *logrus.Logger
}

// NewOptimizationHandler creates a new optimization handler. squads and progress may be nil.
func NewOptimizationHandler(
	engine *optimizer.Engine,
	pool PoolSource,
	squads SquadStore,
	progress ProgressBroadcaster,
	config *config.Config,
	logger *logrus.Logger,
) *OptimizationHandler {
	return &OptimizationHandler{
		engine:   engine,
		pool:     pool,
		squads:   squads,
		progress: progress,
		config:   config,
		logger:   logger,
	}
}

// OptimizeSquad handles POST /api/v1/optimize
func (h *OptimizationHandler) OptimizeSquad(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	input, err := h.buildInput(c.Request.Context(), req)
	if err != nil {
		h.writePoolError(c, err)
		return
	}
	input.ID = uuid.New()

	if req.SessionID != "" && h.progress != nil {
		h.sendProgress(req.SessionID, input.ID, 0, "initialization", "Starting optimization...", nil, 0)
		input.Progress = func(p ilp.Progress) {
			var best *float64
			if p.HasIncumbent {
				score := p.Incumbent
				best = &score
			}
			h.sendProgress(req.SessionID, input.ID, 0.5, "solving", fmt.Sprintf("Explored %d nodes", p.Nodes), best, p.Nodes)
		}
	}

	report, err := h.engine.Optimize(c.Request.Context(), input)
	if err != nil {
		if req.SessionID != "" && h.progress != nil {
			h.sendProgress(req.SessionID, input.ID, 1, "failed", err.Error(), nil, 0)
		}
		h.writeEngineError(c, err)
		return
	}

	if req.SessionID != "" {
		if h.progress != nil {
			score := report.TotalScore
			h.sendProgress(req.SessionID, input.ID, 1, "completed",
				fmt.Sprintf("Optimization completed in %dms", report.SolveTimeMs), &score, report.Nodes)
		}
		if h.squads != nil {
			if err := h.squads.SetLastSquad(c.Request.Context(), req.SessionID, report, h.config.SquadCacheTTL); err != nil {
				logger.WithSessionContext(h.logger, req.SessionID).WithError(err).Warn("Failed to store last squad")
			}
		}
	}

	c.JSON(http.StatusOK, report)
}

// ValidateRequest handles POST /api/v1/optimize/validate: it checks the request and
// resolves the formation without solving.
func (h *OptimizationHandler) ValidateRequest(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	input, err := h.buildInput(c.Request.Context(), req)
	if err != nil {
		h.writePoolError(c, err)
		return
	}

	formation, err := h.engine.Prepare(input)
	if err != nil {
		h.writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":        true,
		"formation":    formation.ID,
		"requirements": formation.Requirements,
		"budget":       input.Budget,
		"weights":      input.Weights,
		"candidates":   len(input.Pool),
	})
}

// GetFormations handles GET /api/v1/formations
func (h *OptimizationHandler) GetFormations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formations": optimizer.Formations(),
		"default":    h.config.DefaultFormation,
		"squad_size": optimizer.SquadSize,
	})
}

// GetWeights handles GET /api/v1/weights?attack=&defense=
func (h *OptimizationHandler) GetWeights(c *gin.Context) {
	weights := types.DefaultScoringWeights()
	for _, param := range []struct {
		name   string
		target *float64
	}{{"attack", &weights.Attack}, {"defense", &weights.Defense}} {
		raw := c.Query(param.name)
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{
				Error:   "Invalid weight",
				Code:    "INVALID_REQUEST",
				Details: map[string]string{param.name: raw},
			})
			return
		}
		*param.target = value
	}

	if err := optimizer.ValidateWeights(weights); err != nil {
		h.writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"weights":   weights,
		"breakdown": optimizer.MetricWeights(weights),
	})
}

// GetLastSquad handles GET /api/v1/squads/:session_id
func (h *OptimizationHandler) GetLastSquad(c *gin.Context) {
	if h.squads == nil {
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{Error: "Squad storage not configured", Code: "CACHE_UNAVAILABLE"})
		return
	}

	sessionID := c.Param("session_id")
	report, err := h.squads.GetLastSquad(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			c.JSON(http.StatusNotFound, types.ErrorResponse{
				Error: "No squad stored for session",
				Code:  "NOT_FOUND",
				Details: map[string]string{
					"session_id": sessionID,
				},
			})
			return
		}
		logger.WithSessionContext(h.logger, sessionID).WithError(err).Error("Failed to read last squad")
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to read squad", Code: "CACHE_ERROR"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// ClearLastSquad handles DELETE /api/v1/squads/:session_id
func (h *OptimizationHandler) ClearLastSquad(c *gin.Context) {
	if h.squads == nil {
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{Error: "Squad storage not configured", Code: "CACHE_UNAVAILABLE"})
		return
	}

	sessionID := c.Param("session_id")
	if err := h.squads.ClearLastSquad(c.Request.Context(), sessionID); err != nil {
		logger.WithSessionContext(h.logger, sessionID).WithError(err).Error("Failed to clear last squad")
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to clear squad", Code: "CACHE_ERROR"})
		return
	}

	c.JSON(http.StatusOK, types.SuccessResponse{Message: "Squad cleared"})
}

func (h *OptimizationHandler) bindRequest(c *gin.Context) (types.OptimizationRequest, bool) {
	var req types.OptimizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error: "Invalid request format",
			Code:  "INVALID_REQUEST",
			Details: map[string]string{
				"validation_error": err.Error(),
			},
		})
		return req, false
	}
	return req, true
}

// buildInput applies the control-surface defaults and resolves the pool. Inline
// candidates take precedence over the shared pool.
func (h *OptimizationHandler) buildInput(ctx context.Context, req types.OptimizationRequest) (optimizer.OptimizeInput, error) {
	input := optimizer.OptimizeInput{
		Budget:    h.config.DefaultBudget,
		Formation: h.config.DefaultFormation,
		Weights:   types.DefaultScoringWeights(),
	}
	if req.Budget != nil {
		input.Budget = *req.Budget
	}
	if req.Formation != "" {
		input.Formation = req.Formation
	}
	if req.AttackWeight != nil {
		input.Weights.Attack = *req.AttackWeight
	}
	if req.DefenseWeight != nil {
		input.Weights.Defense = *req.DefenseWeight
	}

	if len(req.Candidates) > 0 {
		input.Pool = req.Candidates
		return input, nil
	}
	if h.pool == nil {
		return input, errors.New("no candidate pool configured")
	}
	pool, err := h.pool.Candidates(ctx)
	if err != nil {
		return input, err
	}
	input.Pool = pool
	return input, nil
}

func (h *OptimizationHandler) sendProgress(sessionID string, id uuid.UUID, progress float64, step, message string, best *float64, nodes int64) {
	update := types.ProgressUpdate{
		Type:         "optimization",
		Progress:     progress,
		Message:      message,
		CurrentStep:  step,
		Nodes:        nodes,
		BestScore:    best,
		SessionID:    sessionID,
		Optimization: id,
		Timestamp:    time.Now(),
	}
	h.progress.BroadcastToSession(sessionID, update)
}

func (h *OptimizationHandler) writePoolError(c *gin.Context, err error) {
	h.logger.WithError(err).Error("Candidate pool unavailable")
	c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
		Error: "Candidate pool unavailable",
		Code:  "POOL_UNAVAILABLE",
		Details: map[string]string{
			"error": err.Error(),
		},
	})
}

func (h *OptimizationHandler) writeEngineError(c *gin.Context, err error) {
	var verr *optimizer.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "Invalid optimization request",
			Code:    "INVALID_REQUEST",
			Details: map[string]string{verr.Field: verr.Reason},
		})
	case errors.Is(err, optimizer.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "Invalid optimization request",
			Code:    "INVALID_REQUEST",
			Details: map[string]string{"error": err.Error()},
		})
	case errors.Is(err, optimizer.ErrUnknownFormation):
		ids := make([]string, 0, 3)
		for _, f := range optimizer.Formations() {
			ids = append(ids, f.ID)
		}
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error: "Unknown formation",
			Code:  "UNKNOWN_FORMATION",
			Details: map[string]string{
				"error":     err.Error(),
				"available": strings.Join(ids, ", "),
			},
		})
	case errors.Is(err, optimizer.ErrInfeasible):
		c.JSON(http.StatusUnprocessableEntity, types.ErrorResponse{
			Error:   "No squad satisfies the budget and formation",
			Code:    "INFEASIBLE",
			Details: map[string]string{"error": err.Error()},
		})
	case errors.Is(err, optimizer.ErrTimedOut):
		c.JSON(http.StatusGatewayTimeout, types.ErrorResponse{
			Error:   "Optimization did not finish in time",
			Code:    "TIMED_OUT",
			Details: map[string]string{"error": err.Error()},
		})
	default:
		h.logger.WithError(err).Error("Optimization failed")
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error:   "Optimization failed",
			Code:    "OPTIMIZATION_ERROR",
			Details: map[string]string{"error": err.Error()},
		})
	}
}
