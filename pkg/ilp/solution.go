package ilp

import (
	"context"
	"fmt"
	"time"
)

// Status reports how a solve ended.
type Status int

const (
	StatusNotSolved Status = iota
	// StatusOptimal means the incumbent is proven optimal.
	StatusOptimal
	// StatusInfeasible means no assignment satisfies the constraints.
	StatusInfeasible
	// StatusLimitReached means a node, time or context limit stopped the search
	// before optimality or infeasibility was proven.
	StatusLimitReached
)

func (s Status) String() string {
	switch s {
	case StatusNotSolved:
		return "not_solved"
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusLimitReached:
		return "limit_reached"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Solver is the capability the roster engine depends on. Implementations must solve
// the model exactly or report StatusLimitReached.
type Solver interface {
	Solve(ctx context.Context, m *Model) (*Solution, error)
}

// Solution is the outcome of a solve.
type Solution struct {
	Status    Status
	Objective float64
	Nodes     int64
	Elapsed   time.Duration

	values []bool
}

// HasIncumbent reports whether a feasible assignment was found.
func (s *Solution) HasIncumbent() bool {
	return s != nil && s.values != nil
}

// Value returns the value of v in the incumbent; false when there is none.
func (s *Solution) Value(v Var) bool {
	if !s.HasIncumbent() || int(v) < 0 || int(v) >= len(s.values) {
		return false
	}
	return s.values[v]
}

// Selected returns the variables set to one, in index order.
func (s *Solution) Selected() []Var {
	if !s.HasIncumbent() {
		return nil
	}
	selected := make([]Var, 0)
	for j, on := range s.values {
		if on {
			selected = append(selected, Var(j))
		}
	}
	return selected
}

// Values returns a copy of the incumbent assignment.
func (s *Solution) Values() []bool {
	if !s.HasIncumbent() {
		return nil
	}
	return append([]bool(nil), s.values...)
}
