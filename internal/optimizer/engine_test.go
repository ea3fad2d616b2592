package optimizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/squad-optimizer/pkg/ilp"
	"github.com/stitts-dev/squad-optimizer/pkg/logger"
	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

func newTestEngine(t *testing.T, config EngineConfig) *Engine {
	t.Helper()
	engine, err := NewEngine(config, logger.NewDiscardLogger())
	require.NoError(t, err)
	return engine
}

func TestEngine_OptimizeProducesReport(t *testing.T) {
	engine := newTestEngine(t, EngineConfig{MaxConcurrentSolves: 1})
	pool := exactPool(Formation442, 10, 5)
	pool = append(pool, types.Candidate{ID: "cm-extra", Name: "Extra", Position: CentralMidfield, PerformanceScore: 9, MarketValue: 12})

	id := uuid.New()
	report, err := engine.Optimize(context.Background(), OptimizeInput{
		ID:        id,
		Pool:      pool,
		Budget:    300,
		Formation: Formation442,
		Weights:   types.DefaultScoringWeights(),
	})
	require.NoError(t, err)

	assert.Equal(t, id, report.RosterID)
	assert.Equal(t, Formation442, report.Formation)
	assert.Len(t, report.Players, SquadSize)
	assert.Equal(t, "cm-extra", report.Players[0].ID)
	assert.Equal(t, 112.0, report.TotalCost)
	assert.Equal(t, 59.0, report.TotalScore)
	assert.Equal(t, 188.0, report.BudgetRemaining)
	assert.Equal(t, types.DefaultScoringWeights(), report.Weights)

	stats := engine.Stats()
	assert.EqualValues(t, 1, stats.Requests)
	assert.EqualValues(t, 1, stats.Optimal)
	assert.Zero(t, stats.InFlight)
}

func TestEngine_RejectsBeforeSolving(t *testing.T) {
	engine := newTestEngine(t, EngineConfig{MaxConcurrentSolves: 1})
	engine.SetSolverFactory(func(ilp.Options) ilp.Solver {
		t.Fatal("solver must not be created for rejected requests")
		return nil
	})
	pool := exactPool(Formation433, 1, 1)

	_, err := engine.Optimize(context.Background(), OptimizeInput{Pool: pool, Budget: 100, Formation: "4-2-4", Weights: types.DefaultScoringWeights()})
	assert.True(t, errors.Is(err, ErrUnknownFormation))

	_, err = engine.Optimize(context.Background(), OptimizeInput{Pool: pool, Budget: -3, Formation: Formation433, Weights: types.DefaultScoringWeights()})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = engine.Optimize(context.Background(), OptimizeInput{Pool: pool, Budget: 100, Formation: Formation433, Weights: types.ScoringWeights{Attack: -1, Defense: 1}})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	assert.EqualValues(t, 3, engine.Stats().Invalid)
}

func TestEngine_CountsInfeasibleAndTimedOut(t *testing.T) {
	engine := newTestEngine(t, EngineConfig{MaxConcurrentSolves: 2})
	pool := exactPool(Formation433, 50, 1)

	_, err := engine.Optimize(context.Background(), OptimizeInput{Pool: pool, Budget: 100, Formation: Formation433, Weights: types.DefaultScoringWeights()})
	assert.True(t, errors.Is(err, ErrInfeasible))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = engine.Optimize(ctx, OptimizeInput{Pool: pool, Budget: 1000, Formation: Formation433, Weights: types.DefaultScoringWeights()})
	assert.True(t, errors.Is(err, ErrTimedOut))

	stats := engine.Stats()
	assert.EqualValues(t, 2, stats.Requests)
	assert.EqualValues(t, 1, stats.Infeasible)
	assert.EqualValues(t, 1, stats.TimedOut)
}

func TestEngine_WaitsForSolverSlot(t *testing.T) {
	engine := newTestEngine(t, EngineConfig{MaxConcurrentSolves: 1})
	require.NoError(t, engine.sem.Acquire(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := engine.Optimize(ctx, OptimizeInput{
		Pool:      exactPool(Formation433, 1, 1),
		Budget:    100,
		Formation: Formation433,
		Weights:   types.DefaultScoringWeights(),
	})
	assert.True(t, errors.Is(err, ErrTimedOut))

	engine.sem.Release(1)
	_, err = engine.Optimize(context.Background(), OptimizeInput{
		Pool:      exactPool(Formation433, 1, 1),
		Budget:    100,
		Formation: Formation433,
		Weights:   types.DefaultScoringWeights(),
	})
	assert.NoError(t, err)
}

func TestEngine_PassesLimitsToSolver(t *testing.T) {
	engine := newTestEngine(t, EngineConfig{MaxConcurrentSolves: 1, SolveTimeout: 3 * time.Second, NodeLimit: 500})

	var got ilp.Options
	engine.SetSolverFactory(func(opts ilp.Options) ilp.Solver {
		got = opts
		return ilp.NewBranchAndBound(opts)
	})
	_, err := engine.Optimize(context.Background(), OptimizeInput{
		Pool:      exactPool(Formation433, 1, 1),
		Budget:    100,
		Formation: Formation433,
		Weights:   types.DefaultScoringWeights(),
		Progress:  func(ilp.Progress) {},
	})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, got.TimeLimit)
	assert.EqualValues(t, 500, got.NodeLimit)
	assert.NotNil(t, got.Progress)
	assert.NotNil(t, got.Logger)
}
