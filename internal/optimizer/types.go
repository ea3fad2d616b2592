package optimizer

import (
	"github.com/google/uuid"

	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

// SelectionProblem is one solve request: scored candidates, a budget ceiling and the
// exact number of players required per category. It is built per request and
// discarded afterwards.
type SelectionProblem struct {
	ID           uuid.UUID
	Formation    string
	Candidates   []types.ScoredCandidate
	Budget       float64
	Requirements map[string]int
}

// NewSelectionProblem resolves the formation and pairs it with an adjusted pool.
func NewSelectionProblem(formation Formation, candidates []types.ScoredCandidate, budget float64) SelectionProblem {
	return SelectionProblem{
		ID:           uuid.New(),
		Formation:    formation.ID,
		Candidates:   candidates,
		Budget:       budget,
		Requirements: copyRequirements(formation.Requirements),
	}
}

// quotaTotal returns the number of players the requirements add up to.
func (p SelectionProblem) quotaTotal() int {
	total := 0
	for _, count := range p.Requirements {
		total += count
	}
	return total
}
