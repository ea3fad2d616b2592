package types

import (
	"time"

	"github.com/google/uuid"
)

// Candidate is one player available for selection
type Candidate struct {
	ID               string  `json:"id" yaml:"id"`
	Name             string  `json:"name" yaml:"name"`
	Position         string  `json:"position" yaml:"position"`
	PerformanceScore float64 `json:"performance_score" yaml:"performance_score"`
	MarketValue      float64 `json:"market_value" yaml:"market_value"`
	Nationality      string  `json:"nationality,omitempty" yaml:"nationality,omitempty"`
}

// ScoringWeights holds the multipliers applied to defensive and attacking positions
type ScoringWeights struct {
	Attack  float64 `json:"attack_weight"`
	Defense float64 `json:"defense_weight"`
}

// DefaultScoringWeights leaves every score unscaled
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{Attack: 1, Defense: 1}
}

// ScoredCandidate is a candidate with its objective coefficient
type ScoredCandidate struct {
	Candidate
	AdjustedScore float64 `json:"adjusted_score"`
}

// Roster is the 11-player result of a successful solve. It is never mutated once built.
type Roster struct {
	ID        uuid.UUID         `json:"id"`
	Formation string            `json:"formation"`
	Budget    float64           `json:"budget"`
	Players   []ScoredCandidate `json:"players"`
	Objective float64           `json:"objective"`
	Nodes     int64             `json:"nodes"`
	SolveTime time.Duration     `json:"solve_time_ns"`
	CreatedAt time.Time         `json:"created_at"`
}

// SquadPlayer is a display-ready roster entry
type SquadPlayer struct {
	ID             string   `json:"id"`
	DisplayName    string   `json:"display_name"`
	Name           string   `json:"name"`
	Position       string   `json:"position"`
	Nationality    string   `json:"nationality,omitempty"`
	BaseScore      float64  `json:"base_score"`
	AdjustedScore  float64  `json:"adjusted_score"`
	MarketValue    float64  `json:"market_value"`
	Ratio          *float64 `json:"ratio"`
	RatioUndefined bool     `json:"ratio_undefined,omitempty"`
}

// SquadReport is the projected roster handed to the presentation layer
type SquadReport struct {
	RosterID         uuid.UUID      `json:"roster_id"`
	Formation        string         `json:"formation"`
	Budget           float64        `json:"budget"`
	Weights          ScoringWeights `json:"weights"`
	Players          []SquadPlayer  `json:"players"`
	TotalCost        float64        `json:"total_cost"`
	TotalScore       float64        `json:"total_score"`
	BudgetRemaining  float64        `json:"budget_remaining"`
	AverageCostRatio *float64       `json:"average_cost_ratio"`
	Nodes            int64          `json:"nodes"`
	SolveTimeMs      int64          `json:"solve_time_ms"`
	CreatedAt        time.Time      `json:"created_at"`
}

// OptimizationRequest is the body of POST /api/v1/optimize
type OptimizationRequest struct {
	SessionID     string      `json:"session_id"`
	Budget        *float64    `json:"budget"`
	Formation     string      `json:"formation"`
	AttackWeight  *float64    `json:"attack_weight"`
	DefenseWeight *float64    `json:"defense_weight"`
	Candidates    []Candidate `json:"candidates,omitempty"`
}

// FormationInfo describes one entry of the formation catalogue
type FormationInfo struct {
	ID           string         `json:"id"`
	Requirements map[string]int `json:"requirements"`
}

// MetricWeight is one scaled metric of the weight breakdown
type MetricWeight struct {
	Metric string  `json:"metric"`
	Group  string  `json:"group"`
	Base   float64 `json:"base"`
	Weight float64 `json:"weight"`
}

// PositionMetricWeights lists the core metrics behind a position family's score
type PositionMetricWeights struct {
	Position string         `json:"position"`
	Metrics  []MetricWeight `json:"metrics"`
}
