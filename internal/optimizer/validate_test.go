package optimizer

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

func TestValidateBudget(t *testing.T) {
	assert.NoError(t, ValidateBudget(300))
	for _, budget := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.True(t, errors.Is(ValidateBudget(budget), ErrInvalidInput), "budget %v", budget)
	}
}

func TestValidateWeights(t *testing.T) {
	assert.NoError(t, ValidateWeights(types.ScoringWeights{}))
	assert.NoError(t, ValidateWeights(types.ScoringWeights{Attack: 2.5, Defense: 0.1}))

	err := ValidateWeights(types.ScoringWeights{Attack: -0.1, Defense: 1})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "attack_weight", verr.Field)

	err = ValidateWeights(types.ScoringWeights{Attack: 1, Defense: math.NaN()})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "defense_weight", verr.Field)
}

func TestValidatePool(t *testing.T) {
	valid := exactPool(Formation433, 5, 5)
	assert.NoError(t, ValidatePool(valid))

	tests := []struct {
		name   string
		mutate func([]types.Candidate) []types.Candidate
		field  string
	}{
		{"empty pool", func([]types.Candidate) []types.Candidate { return nil }, "candidates"},
		{"missing id", func(p []types.Candidate) []types.Candidate { p[2].ID = ""; return p }, "candidates[2].id"},
		{"duplicate id", func(p []types.Candidate) []types.Candidate { p[4].ID = p[1].ID; return p }, "candidates[4].id"},
		{"missing position", func(p []types.Candidate) []types.Candidate { p[0].Position = ""; return p }, "candidates[0].position"},
		{"negative score", func(p []types.Candidate) []types.Candidate { p[3].PerformanceScore = -1; return p }, "candidates[3].performance_score"},
		{"infinite cost", func(p []types.Candidate) []types.Candidate { p[5].MarketValue = math.Inf(1); return p }, "candidates[5].market_value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := tt.mutate(append([]types.Candidate(nil), valid...))
			err := ValidatePool(pool)
			require.True(t, errors.Is(err, ErrInvalidInput))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
