package optimizer

import (
	"sort"

	"github.com/stitts-dev/squad-optimizer/pkg/ilp"
	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

// maxSwapRounds caps the improvement passes of greedySquad.
const maxSwapRounds = 4 * SquadSize

// greedySquad builds a budget-feasible squad to seed the solver. Every quota starts
// with its cheapest candidates (ties to the higher score), then the best-paying
// same-category swap that stays within budget is applied until none is left. Indices
// refer to candidates, which must all belong to required categories. It returns nil
// when even the cheapest squad is over budget.
func greedySquad(candidates []types.ScoredCandidate, requirements map[string]int, budget float64) []ilp.Var {
	byCategory := make(map[string][]int, len(requirements))
	for i, c := range candidates {
		byCategory[c.Position] = append(byCategory[c.Position], i)
	}

	selected := make([]bool, len(candidates))
	slots := make([]int, 0, SquadSize)
	spent := 0.0
	for _, category := range (Formation{Requirements: requirements}).Categories() {
		need, pool := requirements[category], byCategory[category]
		if len(pool) < need {
			return nil
		}
		sort.SliceStable(pool, func(a, b int) bool {
			ca, cb := candidates[pool[a]], candidates[pool[b]]
			if ca.MarketValue != cb.MarketValue {
				return ca.MarketValue < cb.MarketValue
			}
			return ca.AdjustedScore > cb.AdjustedScore
		})
		for _, i := range pool[:need] {
			selected[i] = true
			slots = append(slots, i)
			spent += candidates[i].MarketValue
		}
	}
	limit := budget + budgetSlack(budget)
	if spent > limit {
		return nil
	}

	for round := 0; round < maxSwapRounds; round++ {
		slot, in, gain := -1, -1, 0.0
		for s, out := range slots {
			leaving := candidates[out]
			for _, k := range byCategory[leaving.Position] {
				if selected[k] || spent-leaving.MarketValue+candidates[k].MarketValue > limit {
					continue
				}
				if g := candidates[k].AdjustedScore - leaving.AdjustedScore; g > gain {
					slot, in, gain = s, k, g
				}
			}
		}
		if slot < 0 {
			break
		}
		out := slots[slot]
		selected[out], selected[in] = false, true
		spent += candidates[in].MarketValue - candidates[out].MarketValue
		slots[slot] = in
	}

	sort.Ints(slots)
	squad := make([]ilp.Var, len(slots))
	for i, j := range slots {
		squad[i] = ilp.Var(j)
	}
	return squad
}
