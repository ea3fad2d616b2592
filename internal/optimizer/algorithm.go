package optimizer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/squad-optimizer/pkg/ilp"
	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

// RosterSolver turns a SelectionProblem into a binary program and reads the optimal
// squad back from the solver.
type RosterSolver struct {
	solver ilp.Solver
	logger *logrus.Entry
}

// NewRosterSolver wraps an integer-program backend.
func NewRosterSolver(solver ilp.Solver, log *logrus.Entry) *RosterSolver {
	if log == nil {
		log = logrus.WithField("component", "roster_solver")
	}
	return &RosterSolver{solver: solver, logger: log}
}

// selectionModel is the program built for a problem plus the candidate behind each
// variable.
type selectionModel struct {
	model      *ilp.Model
	candidates []types.ScoredCandidate
}

// Solve returns the score-maximal squad of SquadSize players within budget that meets
// every quota exactly. It returns ErrInfeasible when no such squad exists and
// ErrTimedOut when a limit stopped the search first. The problem is not modified.
func (rs *RosterSolver) Solve(ctx context.Context, problem SelectionProblem) (*types.Roster, error) {
	if math.IsNaN(problem.Budget) || math.IsInf(problem.Budget, 0) || problem.Budget <= 0 {
		return nil, fmt.Errorf("%w: budget must be a positive finite number, got %v", ErrInvalidInput, problem.Budget)
	}
	if total := problem.quotaTotal(); total != SquadSize {
		return nil, fmt.Errorf("%w: quotas add up to %d players, want %d", ErrInvalidInput, total, SquadSize)
	}
	if problem.ID == uuid.Nil {
		problem.ID = uuid.New()
	}

	log := rs.logger.WithFields(logrus.Fields{
		"optimization_id": problem.ID.String(),
		"formation":       problem.Formation,
	})

	if err := checkQuotaSupply(problem); err != nil {
		log.WithError(err).Info("No squad fits the pool and budget")
		return nil, err
	}

	sm, err := buildSelectionModel(problem)
	if err != nil {
		return nil, err
	}
	if seed := greedySquad(sm.candidates, problem.Requirements, problem.Budget); seed != nil {
		if err := sm.model.SetStart(seed); err != nil {
			return nil, fmt.Errorf("failed to set start squad: %w", err)
		}
	}

	log.WithFields(logrus.Fields{
		"candidates":  len(problem.Candidates),
		"variables":   sm.model.NumVars(),
		"constraints": sm.model.NumConstraints(),
		"budget":      problem.Budget,
	}).Debug("Selection model built")

	solution, err := rs.solver.Solve(ctx, sm.model)
	if err != nil {
		return nil, fmt.Errorf("solver failed: %w", err)
	}

	switch solution.Status {
	case ilp.StatusOptimal:
	case ilp.StatusInfeasible:
		return nil, fmt.Errorf("%w: budget %.2f cannot cover formation %s", ErrInfeasible, problem.Budget, problem.Formation)
	case ilp.StatusLimitReached:
		return nil, fmt.Errorf("%w after %d nodes (%s)", ErrTimedOut, solution.Nodes, solution.Elapsed)
	default:
		return nil, fmt.Errorf("solver returned unexpected status %s", solution.Status)
	}

	players := make([]types.ScoredCandidate, 0, SquadSize)
	for _, v := range solution.Selected() {
		players = append(players, sm.candidates[v])
	}
	if err := verifySquad(players, problem); err != nil {
		return nil, fmt.Errorf("solver returned an invalid squad: %w", err)
	}

	log.WithFields(logrus.Fields{
		"objective": solution.Objective,
		"nodes":     solution.Nodes,
		"elapsed":   solution.Elapsed,
	}).Info("Optimal squad found")

	return &types.Roster{
		ID:        problem.ID,
		Formation: problem.Formation,
		Budget:    problem.Budget,
		Players:   players,
		Objective: solution.Objective,
		Nodes:     solution.Nodes,
		SolveTime: solution.Elapsed,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// buildSelectionModel creates one binary variable per candidate whose category is
// required, the budget row, the squad size row and one equality row per category.
func buildSelectionModel(problem SelectionProblem) (*selectionModel, error) {
	model := ilp.NewModel("squad_" + problem.Formation)
	sm := &selectionModel{model: model}

	var objective, cost, size ilp.LinExpr
	byCategory := make(map[string]ilp.LinExpr, len(problem.Requirements))

	for _, candidate := range problem.Candidates {
		if _, required := problem.Requirements[candidate.Position]; !required {
			continue
		}
		v := model.AddBinaryVar(candidate.ID)
		sm.candidates = append(sm.candidates, candidate)

		objective = objective.Add(v, candidate.AdjustedScore)
		cost = cost.Add(v, candidate.MarketValue)
		size = size.Add(v, 1)
		byCategory[candidate.Position] = byCategory[candidate.Position].Add(v, 1)
	}

	if err := model.SetObjective(objective, ilp.Maximize); err != nil {
		return nil, fmt.Errorf("failed to set objective: %w", err)
	}
	if err := model.AddConstraint("budget", cost, ilp.LessEqual, problem.Budget); err != nil {
		return nil, fmt.Errorf("failed to add budget constraint: %w", err)
	}
	if err := model.AddConstraint("squad_size", size, ilp.Equal, SquadSize); err != nil {
		return nil, fmt.Errorf("failed to add squad size constraint: %w", err)
	}

	formation := Formation{Requirements: problem.Requirements}
	for _, category := range formation.Categories() {
		name := "quota_" + category
		if err := model.AddConstraint(name, byCategory[category], ilp.Equal, float64(problem.Requirements[category])); err != nil {
			return nil, fmt.Errorf("failed to add %s constraint: %w", name, err)
		}
	}

	return sm, nil
}

// checkQuotaSupply rejects problems no squad can satisfy: a category with fewer
// candidates than its quota, or a budget below the cheapest way to fill every quota.
func checkQuotaSupply(problem SelectionProblem) error {
	costs := make(map[string][]float64, len(problem.Requirements))
	for _, candidate := range problem.Candidates {
		costs[candidate.Position] = append(costs[candidate.Position], candidate.MarketValue)
	}
	formation := Formation{Requirements: problem.Requirements}
	cheapest := 0.0
	for _, category := range formation.Categories() {
		need, available := problem.Requirements[category], costs[category]
		if len(available) < need {
			return fmt.Errorf("%w: formation %s needs %d %s, pool has %d",
				ErrInfeasible, problem.Formation, need, category, len(available))
		}
		sort.Float64s(available)
		for _, cost := range available[:need] {
			cheapest += cost
		}
	}
	if cheapest > problem.Budget+budgetSlack(problem.Budget) {
		return fmt.Errorf("%w: cheapest %s squad costs %.2f, budget is %.2f",
			ErrInfeasible, problem.Formation, cheapest, problem.Budget)
	}
	return nil
}

// verifySquad re-checks the solver's answer against the problem.
func verifySquad(players []types.ScoredCandidate, problem SelectionProblem) error {
	if len(players) != SquadSize {
		return fmt.Errorf("selected %d players, want %d", len(players), SquadSize)
	}

	counts := make(map[string]int, len(problem.Requirements))
	totalCost := 0.0
	for _, p := range players {
		counts[p.Position]++
		totalCost += p.MarketValue
	}
	if totalCost > problem.Budget+budgetSlack(problem.Budget) {
		return fmt.Errorf("total cost %.4f exceeds budget %.4f", totalCost, problem.Budget)
	}
	for category, need := range problem.Requirements {
		if counts[category] != need {
			return fmt.Errorf("selected %d %s, want %d", counts[category], category, need)
		}
	}
	return nil
}

func budgetSlack(budget float64) float64 {
	return 1e-6 * math.Max(1, math.Abs(budget))
}
