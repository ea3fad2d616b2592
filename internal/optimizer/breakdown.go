package optimizer

import (
	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

// Metric groups of the weight breakdown.
const (
	MetricGroupDefense = "defense"
	MetricGroupAttack  = "attack"
)

type baseMetric struct {
	name  string
	group string
	base  float64
}

type positionFamily struct {
	name    string
	metrics []baseMetric
}

// metricCatalogue holds the base weights of the statistics behind each position
// family's performance score.
var metricCatalogue = []positionFamily{
	{name: "Goalkeeper", metrics: []baseMetric{
		{"Saves", MetricGroupDefense, 20},
	}},
	{name: "Full-Backs (R/L)", metrics: []baseMetric{
		{"Tackles", MetricGroupDefense, 8},
		{"Crosses", MetricGroupDefense, 6},
		{"Prog. Carries", MetricGroupDefense, 6},
	}},
	{name: "Centre-Back", metrics: []baseMetric{
		{"Tackles", MetricGroupDefense, 8},
		{"Intercept.", MetricGroupDefense, 4},
		{"Blocks", MetricGroupDefense, 4},
		{"Clearances", MetricGroupDefense, 4},
	}},
	{name: "Defensive Midfield", metrics: []baseMetric{
		{"Tackles", MetricGroupDefense, 6},
		{"Intercept.", MetricGroupDefense, 6},
		{"Prog. Passes", MetricGroupDefense, 4},
		{"Key Passes", MetricGroupDefense, 4},
	}},
	{name: "Central Midfield", metrics: []baseMetric{
		{"Key Passes", MetricGroupAttack, 4},
		{"Intercept.", MetricGroupDefense, 4},
		{"Prog. Passes", MetricGroupAttack, 6},
		{"SCA", MetricGroupAttack, 3},
		{"Assists", MetricGroupAttack, 3},
	}},
	{name: "Attacking Midfield", metrics: []baseMetric{
		{"Key Passes", MetricGroupAttack, 4},
		{"Assists", MetricGroupAttack, 6},
		{"Prog. Passes", MetricGroupAttack, 6},
		{"SCA", MetricGroupAttack, 4},
	}},
	{name: "Wingers / Offence", metrics: []baseMetric{
		{"Dribbles", MetricGroupAttack, 4},
		{"Crosses", MetricGroupAttack, 3},
		{"xAG", MetricGroupAttack, 3},
		{"Goals", MetricGroupAttack, 5},
		{"Assists", MetricGroupAttack, 5},
	}},
	{name: "Centre-Forward", metrics: []baseMetric{
		{"Goals", MetricGroupAttack, 8},
		{"SOT", MetricGroupAttack, 4},
		{"xG", MetricGroupAttack, 4},
		{"Assists", MetricGroupAttack, 4},
	}},
}

// MetricWeights returns the per-family metric weights scaled by the current
// multipliers. It is informational only; the solver works on the final scores.
func MetricWeights(weights types.ScoringWeights) []types.PositionMetricWeights {
	breakdown := make([]types.PositionMetricWeights, 0, len(metricCatalogue))
	for _, family := range metricCatalogue {
		metrics := make([]types.MetricWeight, len(family.metrics))
		for i, m := range family.metrics {
			multiplier := weights.Attack
			if m.group == MetricGroupDefense {
				multiplier = weights.Defense
			}
			metrics[i] = types.MetricWeight{
				Metric: m.name,
				Group:  m.group,
				Base:   m.base,
				Weight: m.base * multiplier,
			}
		}
		breakdown = append(breakdown, types.PositionMetricWeights{
			Position: family.name,
			Metrics:  metrics,
		})
	}
	return breakdown
}
