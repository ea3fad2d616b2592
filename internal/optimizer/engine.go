package optimizer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/stitts-dev/squad-optimizer/pkg/ilp"
	"github.com/stitts-dev/squad-optimizer/pkg/logger"
	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

// EngineConfig tunes request handling.
type EngineConfig struct {
	// MaxConcurrentSolves bounds the number of solves running at once; 1 serialises them.
	MaxConcurrentSolves int64
	// SolveTimeout caps each solve; zero means only the request context applies.
	SolveTimeout time.Duration
	// NodeLimit caps the branch-and-bound nodes per solve; zero means unlimited.
	NodeLimit int64
	Labeler   Labeler
}

// OptimizeInput is one optimization request.
type OptimizeInput struct {
	ID        uuid.UUID
	Pool      []types.Candidate
	Budget    float64
	Formation string
	Weights   types.ScoringWeights
	Progress  func(ilp.Progress)
}

// EngineStats are the request counters since start-up.
type EngineStats struct {
	Requests   int64 `json:"requests"`
	Optimal    int64 `json:"optimal"`
	Infeasible int64 `json:"infeasible"`
	TimedOut   int64 `json:"timed_out"`
	Invalid    int64 `json:"invalid"`
	Failed     int64 `json:"failed"`
	InFlight   int64 `json:"in_flight"`
}

// SolverFactory creates the backend used for a single solve.
type SolverFactory func(opts ilp.Options) ilp.Solver

// Engine validates requests, adjusts scores, solves under a concurrency limit and
// projects the result. It keeps no roster between calls.
type Engine struct {
	config    EngineConfig
	sem       *semaphore.Weighted
	projector *Projector
	newSolver SolverFactory
	log       *logrus.Logger

	requests   atomic.Int64
	optimal    atomic.Int64
	infeasible atomic.Int64
	timedOut   atomic.Int64
	invalid    atomic.Int64
	failed     atomic.Int64
	inFlight   atomic.Int64
}

// NewEngine creates an engine using the branch-and-bound backend.
func NewEngine(config EngineConfig, log *logrus.Logger) (*Engine, error) {
	if err := ValidateFormations(); err != nil {
		return nil, fmt.Errorf("formation catalogue is inconsistent: %w", err)
	}
	if config.MaxConcurrentSolves < 1 {
		config.MaxConcurrentSolves = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Engine{
		config:    config,
		sem:       semaphore.NewWeighted(config.MaxConcurrentSolves),
		projector: NewProjector(config.Labeler),
		newSolver: func(opts ilp.Options) ilp.Solver { return ilp.NewBranchAndBound(opts) },
		log:       log,
	}, nil
}

// SetSolverFactory replaces the backend used for subsequent solves.
func (e *Engine) SetSolverFactory(factory SolverFactory) {
	if factory != nil {
		e.newSolver = factory
	}
}

// Prepare validates the request and resolves its formation without solving.
func (e *Engine) Prepare(input OptimizeInput) (Formation, error) {
	if err := ValidateBudget(input.Budget); err != nil {
		return Formation{}, err
	}
	if err := ValidateWeights(input.Weights); err != nil {
		return Formation{}, err
	}
	if err := ValidatePool(input.Pool); err != nil {
		return Formation{}, err
	}
	return GetFormation(input.Formation)
}

// Optimize runs one request end to end.
func (e *Engine) Optimize(ctx context.Context, input OptimizeInput) (*types.SquadReport, error) {
	e.requests.Add(1)

	if input.ID == uuid.Nil {
		input.ID = uuid.New()
	}
	log := logger.WithOptimizationContext(e.log, input.ID.String(), input.Formation)

	formation, err := e.Prepare(input)
	if err != nil {
		e.invalid.Add(1)
		log.WithError(err).Info("Optimization request rejected")
		return nil, err
	}

	problem := NewSelectionProblem(formation, AdjustPool(input.Pool, input.Weights), input.Budget)
	problem.ID = input.ID

	if err := e.sem.Acquire(ctx, 1); err != nil {
		e.timedOut.Add(1)
		return nil, fmt.Errorf("%w: waiting for a solver slot: %v", ErrTimedOut, err)
	}
	e.inFlight.Add(1)
	roster, err := e.solve(ctx, problem, input.Progress, log)
	e.inFlight.Add(-1)
	e.sem.Release(1)

	switch {
	case err == nil:
		e.optimal.Add(1)
	case errors.Is(err, ErrInfeasible):
		e.infeasible.Add(1)
		return nil, err
	case errors.Is(err, ErrTimedOut):
		e.timedOut.Add(1)
		return nil, err
	case errors.Is(err, ErrInvalidInput):
		e.invalid.Add(1)
		return nil, err
	default:
		e.failed.Add(1)
		return nil, err
	}

	report := e.projector.Project(roster, input.Budget)
	report.Weights = input.Weights

	log.WithFields(logrus.Fields{
		"total_score": report.TotalScore,
		"total_cost":  report.TotalCost,
		"nodes":       report.Nodes,
	}).Info("Optimization completed")

	return report, nil
}

func (e *Engine) solve(ctx context.Context, problem SelectionProblem, progress func(ilp.Progress), log *logrus.Entry) (*types.Roster, error) {
	solver := e.newSolver(ilp.Options{
		NodeLimit: e.config.NodeLimit,
		TimeLimit: e.config.SolveTimeout,
		Progress:  progress,
		Logger:    log.WithField("component", "branch_and_bound"),
	})
	return NewRosterSolver(solver, log.WithField("component", "roster_solver")).Solve(ctx, problem)
}

// Stats returns a snapshot of the request counters.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Requests:   e.requests.Load(),
		Optimal:    e.optimal.Load(),
		Infeasible: e.infeasible.Load(),
		TimedOut:   e.timedOut.Load(),
		Invalid:    e.invalid.Load(),
		Failed:     e.failed.Load(),
		InFlight:   e.inFlight.Load(),
	}
}
