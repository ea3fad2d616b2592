package optimizer

import (
	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

// AdjustScore returns the objective coefficient of a candidate: defensive categories
// are scaled by the defense weight, attacking ones by the attack weight, the rest keep
// their baseline.
func AdjustScore(candidate types.Candidate, weights types.ScoringWeights) float64 {
	switch GroupOf(candidate.Position) {
	case GroupDefensive:
		return candidate.PerformanceScore * weights.Defense
	case GroupAttacking:
		return candidate.PerformanceScore * weights.Attack
	default:
		return candidate.PerformanceScore
	}
}

// AdjustPool scores every candidate of the pool. The pool itself is left untouched.
func AdjustPool(pool []types.Candidate, weights types.ScoringWeights) []types.ScoredCandidate {
	scored := make([]types.ScoredCandidate, len(pool))
	for i, candidate := range pool {
		scored[i] = types.ScoredCandidate{
			Candidate:     candidate,
			AdjustedScore: AdjustScore(candidate, weights),
		}
	}
	return scored
}
