package optimizer

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

// exactPool returns one candidate per quota slot of the formation, each costing
// cost and scoring score.
func exactPool(formationID string, cost, score float64) []types.Candidate {
	formation, err := GetFormation(formationID)
	if err != nil {
		panic(err)
	}
	pool := make([]types.Candidate, 0, SquadSize)
	for _, category := range formation.Categories() {
		for i := 0; i < formation.Requirements[category]; i++ {
			pool = append(pool, types.Candidate{
				ID:               fmt.Sprintf("%s-%d", slug(category), i),
				Name:             fmt.Sprintf("%s %d", category, i),
				Position:         category,
				PerformanceScore: score,
				MarketValue:      cost,
				Nationality:      "Spain",
			})
		}
	}
	return pool
}

// randomPool gives every required category its quota plus up to maxExtra additional
// candidates, with random scores and costs.
func randomPool(rng *rand.Rand, formationID string, maxExtra int) []types.Candidate {
	formation, err := GetFormation(formationID)
	if err != nil {
		panic(err)
	}
	var pool []types.Candidate
	for _, category := range formation.Categories() {
		n := formation.Requirements[category] + rng.Intn(maxExtra+1)
		for i := 0; i < n; i++ {
			pool = append(pool, types.Candidate{
				ID:               fmt.Sprintf("%s-%d", slug(category), i),
				Name:             fmt.Sprintf("%s %d", category, i),
				Position:         category,
				PerformanceScore: float64(rng.Intn(4000)) / 100,
				MarketValue:      float64(1+rng.Intn(600)) / 10,
			})
		}
	}
	return pool
}

func slug(category string) string {
	return strings.ToLower(strings.NewReplacer(" ", "-").Replace(category))
}

// bruteForce enumerates every quota-satisfying squad and returns the best adjusted
// score within budget.
func bruteForce(candidates []types.ScoredCandidate, requirements map[string]int, budget float64) (float64, bool) {
	byCategory := make(map[string][]types.ScoredCandidate)
	for _, c := range candidates {
		if _, ok := requirements[c.Position]; ok {
			byCategory[c.Position] = append(byCategory[c.Position], c)
		}
	}
	categories := Formation{Requirements: requirements}.Categories()

	best, found := 0.0, false
	var walk func(ci int, cost, score float64)
	walk = func(ci int, cost, score float64) {
		if cost > budget+1e-9 {
			return
		}
		if ci == len(categories) {
			if !found || score > best {
				best, found = score, true
			}
			return
		}
		group := byCategory[categories[ci]]
		need := requirements[categories[ci]]
		var choose func(start, left int, cost, score float64)
		choose = func(start, left int, cost, score float64) {
			if left == 0 {
				walk(ci+1, cost, score)
				return
			}
			for i := start; i <= len(group)-left; i++ {
				choose(i+1, left-1, cost+group[i].MarketValue, score+group[i].AdjustedScore)
			}
		}
		choose(0, need, cost, score)
	}
	walk(0, 0, 0)
	return best, found
}

func rosterCost(roster *types.Roster) float64 {
	total := 0.0
	for _, p := range roster.Players {
		total += p.MarketValue
	}
	return total
}

func rosterIDs(roster *types.Roster) []string {
	ids := make([]string, len(roster.Players))
	for i, p := range roster.Players {
		ids[i] = p.ID
	}
	return ids
}

func containsID(roster *types.Roster, id string) bool {
	for _, p := range roster.Players {
		if p.ID == id {
			return true
		}
	}
	return false
}

// marketPool gives every required category perCategory candidates priced in tenths
// between 0.5 and 60, with scores that mostly follow price.
func marketPool(rng *rand.Rand, formationID string, perCategory int) []types.Candidate {
	formation, err := GetFormation(formationID)
	if err != nil {
		panic(err)
	}
	var pool []types.Candidate
	for _, category := range formation.Categories() {
		for i := 0; i < perCategory; i++ {
			cost := float64(5+rng.Intn(596)) / 10
			pool = append(pool, types.Candidate{
				ID:               fmt.Sprintf("%s-%d", slug(category), i),
				Name:             fmt.Sprintf("%s %d", category, i),
				Position:         category,
				PerformanceScore: cost/2 + float64(rng.Intn(150))/10,
				MarketValue:      cost,
			})
		}
	}
	return pool
}

// cheapestSquadCost sums the cheapest quota of every required category.
func cheapestSquadCost(candidates []types.ScoredCandidate, requirements map[string]int) float64 {
	costs := make(map[string][]float64)
	for _, c := range candidates {
		costs[c.Position] = append(costs[c.Position], c.MarketValue)
	}
	total := 0.0
	for category, need := range requirements {
		sort.Float64s(costs[category])
		for _, cost := range costs[category][:need] {
			total += cost
		}
	}
	return total
}

// tenthsDP is an exact oracle for pools priced in tenths: it fills each category's
// quota by dynamic programming over spent tenths and returns the best adjusted score.
func tenthsDP(candidates []types.ScoredCandidate, requirements map[string]int, budget float64) (float64, bool) {
	capacity := int(math.Floor(budget*10 + 1e-6))
	if capacity < 0 {
		return 0, false
	}
	unreachable := math.Inf(-1)
	newRow := func() []float64 {
		row := make([]float64, capacity+1)
		for w := range row {
			row[w] = unreachable
		}
		return row
	}

	total := newRow()
	total[0] = 0
	for _, category := range (Formation{Requirements: requirements}).Categories() {
		need := requirements[category]
		// exact[k][w]: best score taking k candidates of the category costing w tenths.
		exact := make([][]float64, need+1)
		for k := range exact {
			exact[k] = newRow()
		}
		exact[0][0] = 0
		for _, c := range candidates {
			if c.Position != category {
				continue
			}
			cost := int(math.Round(c.MarketValue * 10))
			for k := need; k >= 1; k-- {
				for w := capacity; w >= cost; w-- {
					if prev := exact[k-1][w-cost]; prev > unreachable && prev+c.AdjustedScore > exact[k][w] {
						exact[k][w] = prev + c.AdjustedScore
					}
				}
			}
		}

		next := newRow()
		for w, base := range total {
			if base == unreachable {
				continue
			}
			for add := 0; w+add <= capacity; add++ {
				if s := exact[need][add]; s > unreachable && base+s > next[w+add] {
					next[w+add] = base + s
				}
			}
		}
		total = next
	}

	best, found := unreachable, false
	for _, s := range total {
		if s > best {
			best, found = s, true
		}
	}
	return best, found
}
