package optimizer

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

// Labeler builds the display name of a selected player.
type Labeler func(candidate types.Candidate) string

// DefaultLabeler renders "Name (Nationality)", or just the name when the nationality
// is unknown. A Labeler passed to NewProjector replaces it, e.g. to prefix a flag
// looked up from the nationality.
func DefaultLabeler(candidate types.Candidate) string {
	if candidate.Nationality == "" {
		return candidate.Name
	}
	return candidate.Name + " (" + candidate.Nationality + ")"
}

// CostRatio returns cost per point of score rounded to three decimals. A zero score
// yields +Inf and ErrDivisionUndefined.
func CostRatio(cost, score float64) (float64, error) {
	if score == 0 {
		return math.Inf(1), ErrDivisionUndefined
	}
	return roundTo(cost/score, 3), nil
}

// Projector derives display data from a roster.
type Projector struct {
	labeler Labeler
}

// NewProjector creates a projector; a nil labeler falls back to DefaultLabeler.
func NewProjector(labeler Labeler) *Projector {
	if labeler == nil {
		labeler = DefaultLabeler
	}
	return &Projector{labeler: labeler}
}

// Project builds the squad report for a roster. Players are ordered by adjusted score,
// highest first. Zero-score players get a null ratio flagged as undefined.
func (p *Projector) Project(roster *types.Roster, budget float64) *types.SquadReport {
	players := make([]types.SquadPlayer, len(roster.Players))
	costs := make([]float64, len(roster.Players))
	scores := make([]float64, len(roster.Players))

	for i, selected := range roster.Players {
		player := types.SquadPlayer{
			ID:            selected.ID,
			DisplayName:   p.labeler(selected.Candidate),
			Name:          selected.Name,
			Position:      selected.Position,
			Nationality:   selected.Nationality,
			BaseScore:     selected.PerformanceScore,
			AdjustedScore: selected.AdjustedScore,
			MarketValue:   selected.MarketValue,
		}
		ratio, err := CostRatio(selected.MarketValue, selected.AdjustedScore)
		if errors.Is(err, ErrDivisionUndefined) {
			player.RatioUndefined = true
		} else {
			player.Ratio = &ratio
		}
		players[i] = player
		costs[i] = selected.MarketValue
		scores[i] = selected.AdjustedScore
	}

	sort.SliceStable(players, func(i, j int) bool {
		if players[i].AdjustedScore != players[j].AdjustedScore {
			return players[i].AdjustedScore > players[j].AdjustedScore
		}
		return players[i].ID < players[j].ID
	})

	totalCost := floats.Sum(costs)
	totalScore := floats.Sum(scores)

	report := &types.SquadReport{
		RosterID:        roster.ID,
		Formation:       roster.Formation,
		Budget:          budget,
		Players:         players,
		TotalCost:       totalCost,
		TotalScore:      totalScore,
		BudgetRemaining: budget - totalCost,
		Nodes:           roster.Nodes,
		SolveTimeMs:     roster.SolveTime.Milliseconds(),
		CreatedAt:       roster.CreatedAt,
	}
	if totalScore != 0 {
		average := totalCost / totalScore
		report.AverageCostRatio = &average
	}
	return report
}

func roundTo(value float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(value*scale) / scale
}
