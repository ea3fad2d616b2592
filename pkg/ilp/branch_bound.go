package ilp

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// Options configures the branch-and-bound backend. Zero values fall back to
// DefaultOptions.
type Options struct {
	// NodeLimit stops the search after this many nodes; zero means unlimited.
	NodeLimit int64
	// TimeLimit stops the search after this wall-clock duration; zero means unlimited.
	TimeLimit time.Duration
	// Tolerance is the relative tolerance used for constraint checks and pruning.
	Tolerance float64
	// RootIterations is the number of subgradient steps at the root node.
	RootIterations int
	// NodeIterations is the number of subgradient steps below the root.
	NodeIterations int
	// ProgressEvery controls how often (in nodes) Progress is called.
	ProgressEvery int64
	Progress      func(Progress)
	Logger        *logrus.Entry
}

// Progress is a snapshot of a running search.
type Progress struct {
	Nodes        int64         `json:"nodes"`
	HasIncumbent bool          `json:"has_incumbent"`
	Incumbent    float64       `json:"incumbent"`
	Elapsed      time.Duration `json:"elapsed"`
}

// DefaultOptions returns the tuning used when an option is left unset.
func DefaultOptions() Options {
	return Options{
		Tolerance:      1e-9,
		RootIterations: 300,
		NodeIterations: 30,
		ProgressEvery:  2000,
	}
}

// BranchAndBound is an exact depth-first branch-and-bound solver for binary programs.
//
// Each node propagates row activity bounds to fix implied variables, then bounds the
// subtree with a Lagrangian relaxation. Disjoint unit equality rows (pick exactly k of
// a group) stay in the relaxation and every other row is dualised. The relaxation
// gives a valid upper bound for any multiplier vector, so projected subgradient steps
// only tighten it; pruning is therefore exact. Knapsack rows are also checked against
// the cheapest way to fill the open group slots, and once an incumbent exists, free
// variables whose flip cannot beat it are fixed by reduced cost. Relaxed solutions
// that satisfy all constraints, and a feasible model start, become incumbents.
type BranchAndBound struct {
	opts Options
}

// NewBranchAndBound creates a solver. A BranchAndBound holds no per-solve state and
// may be shared, but every Solve call allocates its own search.
func NewBranchAndBound(opts Options) *BranchAndBound {
	defaults := DefaultOptions()
	if opts.Tolerance <= 0 {
		opts.Tolerance = defaults.Tolerance
	}
	if opts.RootIterations <= 0 {
		opts.RootIterations = defaults.RootIterations
	}
	if opts.NodeIterations <= 0 {
		opts.NodeIterations = defaults.NodeIterations
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = defaults.ProgressEvery
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger()).WithField("component", "branch_and_bound")
	}
	return &BranchAndBound{opts: opts}
}

// Solve runs the search until optimality is proven, infeasibility is proven, or a
// limit is reached.
func (b *BranchAndBound) Solve(ctx context.Context, m *Model) (*Solution, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	p := compile(m)

	b.opts.Logger.WithFields(logrus.Fields{
		"model":       m.Name,
		"variables":   p.n,
		"constraints": len(p.rows),
		"node_limit":  b.opts.NodeLimit,
		"time_limit":  b.opts.TimeLimit,
	}).Debug("Starting branch and bound")

	s := newSearch(ctx, p, b.opts, start)
	s.warmStart(m)
	s.dfs(make([]float64, len(p.rows)), 0)

	solution := &Solution{
		Nodes:   s.nodes,
		Elapsed: time.Since(start),
	}
	switch {
	case s.limitHit:
		solution.Status = StatusLimitReached
	case !s.hasBest:
		solution.Status = StatusInfeasible
	default:
		solution.Status = StatusOptimal
	}
	if s.hasBest {
		solution.values = make([]bool, p.n)
		for j, v := range s.best {
			solution.values[j] = v == 1
		}
		solution.Objective = p.sign * s.bestObj
	}

	b.opts.Logger.WithFields(logrus.Fields{
		"model":     m.Name,
		"status":    solution.Status.String(),
		"nodes":     solution.Nodes,
		"objective": solution.Objective,
		"elapsed":   solution.Elapsed,
	}).Debug("Branch and bound finished")

	return solution, nil
}

type search struct {
	ctx      context.Context
	p        *problem
	opts     Options
	start    time.Time
	deadline time.Time

	// val is -1 for free variables, otherwise the fixed value.
	val      []int8
	act      []float64
	minFree  []float64
	maxFree  []float64
	objFixed float64
	trail    []int

	best     []int8
	bestObj  float64
	hasBest  bool
	nodes    int64
	limitHit bool

	reduced   []float64
	grad      []float64
	pick      []bool
	dual      float64
	groupCut  []float64
	groupNext []float64
	need      []int
	cut       []float64
	topBuf    []int
}

func newSearch(ctx context.Context, p *problem, opts Options, start time.Time) *search {
	s := &search{
		ctx:       ctx,
		p:         p,
		opts:      opts,
		start:     start,
		val:       make([]int8, p.n),
		act:       make([]float64, len(p.rows)),
		minFree:   make([]float64, len(p.rows)),
		maxFree:   make([]float64, len(p.rows)),
		trail:     make([]int, 0, p.n),
		reduced:   make([]float64, p.n),
		grad:      make([]float64, len(p.rows)),
		pick:      make([]bool, p.n),
		groupCut:  make([]float64, len(p.groups)),
		groupNext: make([]float64, len(p.groups)),
		need:      make([]int, len(p.groups)),
		cut:       make([]float64, len(p.groups)),
	}
	if opts.TimeLimit > 0 {
		s.deadline = start.Add(opts.TimeLimit)
	}
	for j := range s.val {
		s.val[j] = -1
	}
	for r, row := range p.rows {
		for _, e := range row {
			if e.coeff > 0 {
				s.maxFree[r] += e.coeff
			} else {
				s.minFree[r] += e.coeff
			}
		}
	}
	return s
}

func (s *search) dfs(mu []float64, depth int) {
	if s.stop() {
		return
	}
	s.nodes++
	if s.opts.Progress != nil && s.nodes%s.opts.ProgressEvery == 0 {
		s.opts.Progress(Progress{
			Nodes:        s.nodes,
			HasIncumbent: s.hasBest,
			Incumbent:    s.p.sign * s.bestObj,
			Elapsed:      time.Since(s.start),
		})
	}

	mark := len(s.trail)
	defer s.undo(mark)

	if !s.propagate() {
		return
	}
	if s.freeCount() == 0 {
		s.considerLeaf()
		return
	}

	iterations := s.opts.NodeIterations
	if depth == 0 {
		iterations = s.opts.RootIterations
	}
	local := append([]float64(nil), mu...)
	bound := s.relax(local, iterations)
	for round := 0; ; round++ {
		if math.IsInf(bound, -1) || s.prunable(bound) {
			return
		}
		if round == maxFixRounds || s.fixByReducedCost() == 0 {
			break
		}
		if !s.propagate() {
			return
		}
		if s.freeCount() == 0 {
			s.considerLeaf()
			return
		}
		bound = s.relax(local, s.opts.NodeIterations)
	}

	j := s.branchVar()
	for _, v := range [2]int8{1, 0} {
		if s.prunable(bound) {
			return
		}
		inner := len(s.trail)
		s.fix(j, v)
		s.dfs(local, depth+1)
		s.undo(inner)
		if s.limitHit {
			return
		}
	}
}

// maxFixRounds bounds the fix, propagate and re-bound rounds at one node.
const maxFixRounds = 3

// warmStart adopts the model's start assignment as the first incumbent when it
// satisfies every constraint.
func (s *search) warmStart(m *Model) {
	start := m.Start()
	if start == nil {
		return
	}
	values := make([]bool, s.p.n)
	for _, v := range start {
		values[v] = true
	}
	objective, ok := m.Evaluate(values, s.opts.Tolerance)
	if !ok {
		s.opts.Logger.WithField("model", m.Name).Debug("Start assignment violates a constraint, ignored")
		return
	}
	s.offer(s.p.sign*objective, func(j int) bool { return values[j] })
}

func (s *search) stop() bool {
	if s.limitHit {
		return true
	}
	switch {
	case s.ctx.Err() != nil:
		s.limitHit = true
	case s.opts.NodeLimit > 0 && s.nodes >= s.opts.NodeLimit:
		s.limitHit = true
	case !s.deadline.IsZero() && time.Now().After(s.deadline):
		s.limitHit = true
	}
	return s.limitHit
}

func (s *search) prunable(bound float64) bool {
	return s.hasBest && bound <= s.bestObj+s.opts.Tolerance*(1+math.Abs(s.bestObj))
}

func (s *search) rowTol(r int) float64 {
	return s.opts.Tolerance * (1 + math.Abs(s.p.rhs[r]))
}

func (s *search) freeCount() int {
	return s.p.n - len(s.trail)
}

func (s *search) fix(j int, v int8) {
	s.val[j] = v
	s.trail = append(s.trail, j)
	for _, e := range s.p.cols[j] {
		if e.coeff > 0 {
			s.maxFree[e.idx] -= e.coeff
		} else {
			s.minFree[e.idx] -= e.coeff
		}
		if v == 1 {
			s.act[e.idx] += e.coeff
		}
	}
	if v == 1 {
		s.objFixed += s.p.obj[j]
	}
}

func (s *search) undo(mark int) {
	for len(s.trail) > mark {
		j := s.trail[len(s.trail)-1]
		s.trail = s.trail[:len(s.trail)-1]
		v := s.val[j]
		for _, e := range s.p.cols[j] {
			if e.coeff > 0 {
				s.maxFree[e.idx] += e.coeff
			} else {
				s.minFree[e.idx] += e.coeff
			}
			if v == 1 {
				s.act[e.idx] -= e.coeff
			}
		}
		if v == 1 {
			s.objFixed -= s.p.obj[j]
		}
		s.val[j] = -1
	}
}

// propagate fixes every variable whose value is implied by a row's activity bounds
// and reports false when some row can no longer be satisfied.
func (s *search) propagate() bool {
	for changed := true; changed; {
		changed = false
		for r, row := range s.p.rows {
			b := s.p.rhs[r]
			tol := s.rowTol(r)
			if s.act[r]+s.minFree[r] > b+tol {
				return false
			}
			if s.p.equal[r] && s.act[r]+s.maxFree[r] < b-tol {
				return false
			}
			for _, e := range row {
				if s.val[e.idx] >= 0 {
					continue
				}
				lo := s.act[r] + s.minFree[r]
				hi := s.act[r] + s.maxFree[r]
				a := e.coeff
				switch {
				case a > 0 && lo+a > b+tol:
					s.fix(e.idx, 0)
					changed = true
				case a < 0 && lo-a > b+tol:
					s.fix(e.idx, 1)
					changed = true
				case s.p.equal[r] && a > 0 && hi-a < b-tol:
					s.fix(e.idx, 1)
					changed = true
				case s.p.equal[r] && a < 0 && hi+a < b-tol:
					s.fix(e.idx, 0)
					changed = true
				}
			}
		}
		if !changed {
			ok, fixed := s.completion()
			if !ok {
				return false
			}
			changed = fixed
		}
	}
	return true
}

// completion checks every knapsack row against the cheapest way to fill the open
// group slots, and fixes to zero the variables that no such fill can afford. It
// reports false when even the cheapest fill breaks a row.
func (s *search) completion() (ok, changed bool) {
	for _, ks := range s.p.knapsacks {
		limit := s.p.rhs[ks.row] + s.rowTol(ks.row)
		lo := s.act[ks.row]
		for g, grp := range s.p.groups {
			need := int(math.Round(s.p.rhs[grp.row] - s.act[grp.row]))
			if need < 0 {
				return false, changed
			}
			s.need[g] = need
			s.cut[g] = 0
			taken := 0
			for _, j := range ks.order[g] {
				if taken == need {
					break
				}
				if s.val[j] >= 0 {
					continue
				}
				lo += ks.coeff[j]
				s.cut[g] = ks.coeff[j]
				taken++
			}
			if taken < need {
				return false, changed
			}
		}
		if lo > limit {
			return false, changed
		}

		// Taking j instead of the dearest slot filler of its group costs coeff_j - cut.
		for g := range s.p.groups {
			if s.need[g] == 0 {
				continue
			}
			room := limit - lo + s.cut[g]
			order := ks.order[g]
			for i := len(order) - 1; i >= 0 && ks.coeff[order[i]] > room; i-- {
				if s.val[order[i]] < 0 {
					s.fix(order[i], 0)
					changed = true
				}
			}
		}
		for _, j := range ks.loose {
			if s.val[j] < 0 && ks.coeff[j] > limit-lo {
				s.fix(j, 0)
				changed = true
			}
		}
	}
	return true, changed
}

// fixByReducedCost fixes every free variable whose flip would lower the bound from
// the last relaxation to the incumbent or below, and returns how many it fixed.
func (s *search) fixByReducedCost() int {
	if !s.hasBest {
		return 0
	}
	threshold := s.bestObj + s.opts.Tolerance*(1+math.Abs(s.bestObj))
	fixed := 0
	for j, v := range s.val {
		if v >= 0 {
			continue
		}
		rc := s.reduced[j]
		var delta float64
		var flipTo int8
		switch g := s.p.groupOf[j]; {
		case g >= 0 && s.pick[j]:
			delta, flipTo = s.groupNext[g]-rc, 0
		case g >= 0:
			delta, flipTo = rc-s.groupCut[g], 1
		case s.pick[j]:
			delta, flipTo = -rc, 0
		default:
			delta, flipTo = rc, 1
		}
		if s.dual+delta <= threshold {
			s.fix(j, 1-flipTo)
			fixed++
		}
	}
	return fixed
}

// branchVar picks the free variable with the largest reduced profit under the last
// evaluated multipliers; ties go to the lowest index.
func (s *search) branchVar() int {
	best := -1
	for j, v := range s.val {
		if v >= 0 {
			continue
		}
		if best < 0 || s.reduced[j] > s.reduced[best] {
			best = j
		}
	}
	return best
}

func (s *search) considerLeaf() {
	objective := 0.0
	for j, v := range s.val {
		if v == 1 {
			objective += s.p.obj[j]
		}
	}
	for r, row := range s.p.rows {
		activity := 0.0
		for _, e := range row {
			if s.val[e.idx] == 1 {
				activity += e.coeff
			}
		}
		if !s.rowSatisfied(r, activity) {
			return
		}
	}
	s.offer(objective, func(j int) bool { return s.val[j] == 1 })
}

func (s *search) rowSatisfied(r int, activity float64) bool {
	sense := LessEqual
	if s.p.equal[r] {
		sense = Equal
	}
	return satisfies(activity, sense, s.p.rhs[r], s.rowTol(r))
}

// offer records an assignment as the incumbent when it is strictly better.
func (s *search) offer(objective float64, selected func(j int) bool) {
	if s.hasBest && objective <= s.bestObj+s.opts.Tolerance*(1+math.Abs(s.bestObj)) {
		return
	}
	if s.best == nil {
		s.best = make([]int8, s.p.n)
	}
	for j := range s.best {
		s.best[j] = 0
		if selected(j) {
			s.best[j] = 1
		}
	}
	s.bestObj = objective
	s.hasBest = true

	s.opts.Logger.WithFields(logrus.Fields{
		"nodes":     s.nodes,
		"incumbent": s.p.sign * objective,
	}).Debug("New incumbent")
}
