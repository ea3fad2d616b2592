package optimizer

import "errors"

var (
	// ErrUnknownFormation is returned for a formation outside the catalogue.
	ErrUnknownFormation = errors.New("unknown formation")
	// ErrInfeasible is returned when no squad satisfies the budget and quotas.
	ErrInfeasible = errors.New("no feasible squad")
	// ErrTimedOut is returned when a time, node or context limit stopped the solver
	// before it proved optimality.
	ErrTimedOut = errors.New("solver limit reached before optimality was proven")
	// ErrDivisionUndefined is returned by CostRatio for a zero score.
	ErrDivisionUndefined = errors.New("cost ratio undefined for zero score")
	// ErrInvalidInput is returned for malformed pools, budgets or weights.
	ErrInvalidInput = errors.New("invalid optimization input")
)
