// Package ilp models binary integer programs and solves them to proven optimality.
//
// A Model holds binary variables, a linear objective and linear constraints. Any
// Solver implementation can consume it; BranchAndBound is the bundled exact backend.
package ilp

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrUnknownVar is returned when an expression references a variable the model does not own.
	ErrUnknownVar = errors.New("unknown variable")

	// ErrInvalidCoefficient is returned for NaN or infinite coefficients and right-hand sides.
	ErrInvalidCoefficient = errors.New("coefficient must be finite")
)

// Sense is the relation between a constraint's expression and its right-hand side.
type Sense int

const (
	LessEqual Sense = iota
	Equal
	GreaterEqual
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case Equal:
		return "=="
	case GreaterEqual:
		return ">="
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// ObjectiveSense selects the optimization direction.
type ObjectiveSense int

const (
	Maximize ObjectiveSense = iota
	Minimize
)

// Var is a handle to a binary decision variable.
type Var int

// Term is a single coefficient-variable product.
type Term struct {
	Var   Var
	Coeff float64
}

// LinExpr is a linear expression. Repeated variables are summed.
type LinExpr []Term

// Add appends coeff*v to the expression.
func (e LinExpr) Add(v Var, coeff float64) LinExpr {
	return append(e, Term{Var: v, Coeff: coeff})
}

// Constraint is a named linear constraint.
type Constraint struct {
	Name  string
	Expr  LinExpr
	Sense Sense
	RHS   float64
}

// Model is a binary integer program under construction.
type Model struct {
	Name string

	varNames    []string
	objective   []float64
	sense       ObjectiveSense
	constraints []Constraint
	start       []Var
}

// NewModel creates an empty maximization model.
func NewModel(name string) *Model {
	return &Model{Name: name, sense: Maximize}
}

// AddBinaryVar adds a 0/1 variable with a zero objective coefficient.
func (m *Model) AddBinaryVar(name string) Var {
	m.varNames = append(m.varNames, name)
	m.objective = append(m.objective, 0)
	return Var(len(m.varNames) - 1)
}

// NumVars returns the number of variables.
func (m *Model) NumVars() int {
	return len(m.varNames)
}

// NumConstraints returns the number of constraints.
func (m *Model) NumConstraints() int {
	return len(m.constraints)
}

// VarName returns the name given to v.
func (m *Model) VarName(v Var) string {
	if int(v) < 0 || int(v) >= len(m.varNames) {
		return ""
	}
	return m.varNames[v]
}

// Sense returns the objective direction.
func (m *Model) Sense() ObjectiveSense {
	return m.sense
}

// SetObjective replaces the objective with expr.
func (m *Model) SetObjective(expr LinExpr, sense ObjectiveSense) error {
	if err := m.check(expr); err != nil {
		return fmt.Errorf("objective: %w", err)
	}
	objective := make([]float64, len(m.varNames))
	for _, t := range expr {
		objective[t.Var] += t.Coeff
	}
	m.objective = objective
	m.sense = sense
	return nil
}

// AddConstraint adds expr (sense) rhs to the model.
func (m *Model) AddConstraint(name string, expr LinExpr, sense Sense, rhs float64) error {
	if err := m.check(expr); err != nil {
		return fmt.Errorf("constraint %q: %w", name, err)
	}
	if math.IsNaN(rhs) || math.IsInf(rhs, 0) {
		return fmt.Errorf("constraint %q: right-hand side %v: %w", name, rhs, ErrInvalidCoefficient)
	}
	if sense < LessEqual || sense > GreaterEqual {
		return fmt.Errorf("constraint %q: invalid sense %v", name, sense)
	}
	m.constraints = append(m.constraints, Constraint{
		Name:  name,
		Expr:  append(LinExpr(nil), expr...),
		Sense: sense,
		RHS:   rhs,
	})
	return nil
}

// SetStart records the variables set to one in a known assignment. A solver may use
// it as its first incumbent when it satisfies every constraint.
func (m *Model) SetStart(selected []Var) error {
	for _, v := range selected {
		if int(v) < 0 || int(v) >= len(m.varNames) {
			return fmt.Errorf("start: variable %d: %w", v, ErrUnknownVar)
		}
	}
	m.start = append(make([]Var, 0, len(selected)), selected...)
	return nil
}

// Start returns the start assignment, or nil when none was set.
func (m *Model) Start() []Var {
	if m.start == nil {
		return nil
	}
	return append(make([]Var, 0, len(m.start)), m.start...)
}

// Evaluate returns the objective value of values and whether every constraint holds
// within tol (scaled by the magnitude of each right-hand side).
func (m *Model) Evaluate(values []bool, tol float64) (float64, bool) {
	objective := 0.0
	for j, on := range values {
		if on && j < len(m.objective) {
			objective += m.objective[j]
		}
	}
	for _, c := range m.constraints {
		activity := 0.0
		for _, t := range c.Expr {
			if int(t.Var) < len(values) && values[t.Var] {
				activity += t.Coeff
			}
		}
		if !satisfies(activity, c.Sense, c.RHS, tol*(1+math.Abs(c.RHS))) {
			return objective, false
		}
	}
	return objective, true
}

func (m *Model) check(expr LinExpr) error {
	for _, t := range expr {
		if int(t.Var) < 0 || int(t.Var) >= len(m.varNames) {
			return fmt.Errorf("variable %d: %w", t.Var, ErrUnknownVar)
		}
		if math.IsNaN(t.Coeff) || math.IsInf(t.Coeff, 0) {
			return fmt.Errorf("variable %s: %w", m.varNames[t.Var], ErrInvalidCoefficient)
		}
	}
	return nil
}

func satisfies(activity float64, sense Sense, rhs, tol float64) bool {
	switch sense {
	case LessEqual:
		return activity <= rhs+tol
	case GreaterEqual:
		return activity >= rhs-tol
	default:
		return math.Abs(activity-rhs) <= tol
	}
}

// entry is a sparse matrix element; idx is a column when stored in a row and a row
// when stored in a column.
type entry struct {
	idx   int
	coeff float64
}

// group is an equality row with unit coefficients and an integral right-hand side
// whose variables belong to no other group.
type group struct {
	row  int
	vars []int
}

// knapsack is a ≤ row with non-negative coefficients touching grouped variables.
// order lists each group's variables by ascending coefficient; loose holds the row's
// variables outside every group.
type knapsack struct {
	row   int
	coeff []float64
	order [][]int
	loose []int
}

// problem is a model normalised to "maximize obj·x s.t. rows ≤ rhs or = rhs".
type problem struct {
	n     int
	obj   []float64
	sign  float64
	rows  [][]entry
	cols  [][]entry
	rhs   []float64
	equal []bool

	groups    []group
	groupOf   []int
	grouped   []bool
	knapsacks []knapsack
}

func compile(m *Model) *problem {
	p := &problem{
		n:    len(m.varNames),
		obj:  make([]float64, len(m.varNames)),
		sign: 1,
		cols: make([][]entry, len(m.varNames)),
	}
	if m.sense == Minimize {
		p.sign = -1
	}
	for j, c := range m.objective {
		p.obj[j] = p.sign * c
	}

	for _, c := range m.constraints {
		flip := 1.0
		if c.Sense == GreaterEqual {
			flip = -1
		}
		merged := make(map[int]float64, len(c.Expr))
		for _, t := range c.Expr {
			merged[int(t.Var)] += flip * t.Coeff
		}
		cols := make([]int, 0, len(merged))
		for j, coeff := range merged {
			if coeff != 0 {
				cols = append(cols, j)
			}
		}
		sort.Ints(cols)

		r := len(p.rows)
		row := make([]entry, 0, len(cols))
		for _, j := range cols {
			row = append(row, entry{idx: j, coeff: merged[j]})
			p.cols[j] = append(p.cols[j], entry{idx: r, coeff: merged[j]})
		}
		p.rows = append(p.rows, row)
		p.rhs = append(p.rhs, flip*c.RHS)
		p.equal = append(p.equal, c.Sense == Equal)
	}
	p.findGroups()
	p.findKnapsacks()
	return p
}

// findGroups picks disjoint unit equality rows, shortest first.
func (p *problem) findGroups() {
	p.groupOf = make([]int, p.n)
	for j := range p.groupOf {
		p.groupOf[j] = -1
	}
	p.grouped = make([]bool, len(p.rows))

	var candidates []int
	for r, row := range p.rows {
		if !p.equal[r] || len(row) == 0 || p.rhs[r] != math.Round(p.rhs[r]) {
			continue
		}
		unit := true
		for _, e := range row {
			if e.coeff != 1 {
				unit = false
				break
			}
		}
		if unit {
			candidates = append(candidates, r)
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return len(p.rows[candidates[a]]) < len(p.rows[candidates[b]])
	})

	for _, r := range candidates {
		disjoint := true
		for _, e := range p.rows[r] {
			if p.groupOf[e.idx] >= 0 {
				disjoint = false
				break
			}
		}
		if !disjoint {
			continue
		}
		g := len(p.groups)
		vars := make([]int, 0, len(p.rows[r]))
		for _, e := range p.rows[r] {
			p.groupOf[e.idx] = g
			vars = append(vars, e.idx)
		}
		p.groups = append(p.groups, group{row: r, vars: vars})
		p.grouped[r] = true
	}
}

func (p *problem) findKnapsacks() {
	if len(p.groups) == 0 {
		return
	}
	for r, row := range p.rows {
		if p.equal[r] {
			continue
		}
		ks := knapsack{row: r, coeff: make([]float64, p.n)}
		valid, touchesGroup := true, false
		for _, e := range row {
			if e.coeff < 0 {
				valid = false
				break
			}
			ks.coeff[e.idx] = e.coeff
			if p.groupOf[e.idx] >= 0 {
				touchesGroup = true
			} else {
				ks.loose = append(ks.loose, e.idx)
			}
		}
		if !valid || !touchesGroup {
			continue
		}
		ks.order = make([][]int, len(p.groups))
		for g, grp := range p.groups {
			order := append([]int(nil), grp.vars...)
			sort.SliceStable(order, func(a, b int) bool {
				return ks.coeff[order[a]] < ks.coeff[order[b]]
			})
			ks.order[g] = order
		}
		p.knapsacks = append(p.knapsacks, ks)
	}
}
