package optimizer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/squad-optimizer/pkg/ilp"
	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

func greedyIDs(candidates []types.ScoredCandidate, squad []ilp.Var) []string {
	ids := make([]string, len(squad))
	for i, v := range squad {
		ids[i] = candidates[v].ID
	}
	return ids
}

func TestGreedySquad_UpgradesWhenBudgetAllows(t *testing.T) {
	pool := exactPool(Formation433, 20, 1)
	pool = append(pool, types.Candidate{ID: "gk-star", Position: Goalkeeper, PerformanceScore: 40, MarketValue: 25})
	problem := problemFor(t, Formation433, pool, types.DefaultScoringWeights(), 225)
	sm, err := buildSelectionModel(problem)
	require.NoError(t, err)

	squad := greedySquad(sm.candidates, problem.Requirements, 225)
	require.Len(t, squad, SquadSize)
	assert.Contains(t, greedyIDs(sm.candidates, squad), "gk-star")

	squad = greedySquad(sm.candidates, problem.Requirements, 224.99)
	require.Len(t, squad, SquadSize)
	assert.NotContains(t, greedyIDs(sm.candidates, squad), "gk-star")

	assert.Nil(t, greedySquad(sm.candidates, problem.Requirements, 219))
}

func TestGreedySquad_IsAFeasibleStart(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	for i := 0; i < 20; i++ {
		problem := problemFor(t, Formation442, marketPool(rng, Formation442, 30), types.DefaultScoringWeights(), 1)
		problem.Budget = cheapestSquadCost(problem.Candidates, problem.Requirements) + float64(rng.Intn(200))
		sm, err := buildSelectionModel(problem)
		require.NoError(t, err)

		squad := greedySquad(sm.candidates, problem.Requirements, problem.Budget)
		require.Len(t, squad, SquadSize, "instance %d", i)
		values := make([]bool, sm.model.NumVars())
		for _, v := range squad {
			values[v] = true
		}
		_, ok := sm.model.Evaluate(values, 1e-9)
		assert.True(t, ok, "instance %d", i)

		// The exact optimum never scores below the seed.
		seed := 0.0
		for _, v := range squad {
			seed += sm.candidates[v].AdjustedScore
		}
		best, feasible := tenthsDP(problem.Candidates, problem.Requirements, problem.Budget)
		require.True(t, feasible)
		assert.GreaterOrEqual(t, best, seed-1e-6, "instance %d", i)
	}
}
