package optimizer

import (
	"fmt"
	"math"

	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

// ValidationError describes the first offending field of a request. It matches
// ErrInvalidInput under errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidInput, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ValidateBudget requires a positive finite budget.
func ValidateBudget(budget float64) error {
	if !isFinite(budget) || budget <= 0 {
		return invalid("budget", "must be a positive number, got %v", budget)
	}
	return nil
}

// ValidateWeights requires finite, non-negative multipliers.
func ValidateWeights(weights types.ScoringWeights) error {
	if !isFinite(weights.Attack) || weights.Attack < 0 {
		return invalid("attack_weight", "must be a non-negative number, got %v", weights.Attack)
	}
	if !isFinite(weights.Defense) || weights.Defense < 0 {
		return invalid("defense_weight", "must be a non-negative number, got %v", weights.Defense)
	}
	return nil
}

// ValidatePool checks every candidate: unique non-empty IDs, a category, and finite,
// non-negative scores and costs.
func ValidatePool(pool []types.Candidate) error {
	if len(pool) == 0 {
		return invalid("candidates", "pool is empty")
	}
	seen := make(map[string]struct{}, len(pool))
	for i, c := range pool {
		field := fmt.Sprintf("candidates[%d]", i)
		if c.ID == "" {
			return invalid(field+".id", "must not be empty")
		}
		if _, dup := seen[c.ID]; dup {
			return invalid(field+".id", "duplicate id %q", c.ID)
		}
		seen[c.ID] = struct{}{}
		if c.Position == "" {
			return invalid(field+".position", "must not be empty")
		}
		if !isFinite(c.PerformanceScore) || c.PerformanceScore < 0 {
			return invalid(field+".performance_score", "must be a non-negative number, got %v", c.PerformanceScore)
		}
		if !isFinite(c.MarketValue) || c.MarketValue < 0 {
			return invalid(field+".market_value", "must be a non-negative number, got %v", c.MarketValue)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
