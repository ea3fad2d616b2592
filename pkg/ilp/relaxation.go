package ilp

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// lagrangian evaluates the Lagrangian dual function at mu for the current node.
// Grouped rows stay as constraints: each group takes exactly its remaining count of
// free variables with the largest reduced profits. Every other row is dualised:
//
//	L(mu) = obj·x_fixed + Σ_r mu_r (rhs_r − act_r) + Σ_loose max(0, rc_j) + Σ_groups top rc_j
//
// with rc_j = obj_j − Σ_r mu_r a_rj. For mu_r ≥ 0 on inequality rows (any sign on
// equality rows, zero on grouped rows) L(mu) bounds every feasible completion from
// above, and it is −Inf when some group cannot be filled. It leaves the reduced
// profits in s.reduced, the maximiser in s.pick, and the raw subgradient rhs − A·x*(mu)
// in s.grad.
func (s *search) lagrangian(mu []float64) float64 {
	value := s.objFixed
	for r := range s.p.rows {
		slack := s.p.rhs[r] - s.act[r]
		s.grad[r] = slack
		value += mu[r] * slack
	}
	for j, v := range s.val {
		s.pick[j] = false
		if v >= 0 {
			s.reduced[j] = math.Inf(-1)
			continue
		}
		rc := s.p.obj[j]
		for _, e := range s.p.cols[j] {
			rc -= mu[e.idx] * e.coeff
		}
		s.reduced[j] = rc
		if s.p.groupOf[j] < 0 && rc > 0 {
			s.take(j)
			value += rc
		}
	}

	for g, grp := range s.p.groups {
		need := int(math.Round(s.p.rhs[grp.row] - s.act[grp.row]))
		if need < 0 {
			return math.Inf(-1)
		}
		top, free := s.bestFree(grp.vars, need)
		if free < need {
			return math.Inf(-1)
		}
		for _, j := range top[:need] {
			s.take(j)
			value += s.reduced[j]
		}
		s.groupCut[g] = math.Inf(1)
		if need > 0 {
			s.groupCut[g] = s.reduced[top[need-1]]
		}
		s.groupNext[g] = math.Inf(-1)
		if free > need {
			s.groupNext[g] = s.reduced[top[need]]
		}
		s.grad[grp.row] = 0
	}
	s.dual = value
	return value
}

func (s *search) take(j int) {
	s.pick[j] = true
	for _, e := range s.p.cols[j] {
		s.grad[e.idx] -= e.coeff
	}
}

// bestFree returns up to limit+1 free variables of vars by descending reduced profit,
// ties to the earlier variable, along with the number of free variables.
func (s *search) bestFree(vars []int, limit int) ([]int, int) {
	top := s.topBuf[:0]
	free := 0
	for _, j := range vars {
		if s.val[j] >= 0 {
			continue
		}
		free++
		rc := s.reduced[j]
		if len(top) == limit+1 && rc <= s.reduced[top[limit]] {
			continue
		}
		if len(top) < limit+1 {
			top = append(top, j)
		} else {
			top[limit] = j
		}
		for i := len(top) - 1; i > 0 && s.reduced[top[i-1]] < rc; i-- {
			top[i], top[i-1] = top[i-1], top[i]
		}
	}
	s.topBuf = top
	return top, free
}

// relaxedPointFeasible reports whether the relaxed maximiser from the last lagrangian
// call satisfies every row.
func (s *search) relaxedPointFeasible() bool {
	for r := range s.p.rows {
		tol := s.rowTol(r)
		if s.grad[r] < -tol {
			return false
		}
		if s.p.equal[r] && s.grad[r] > tol {
			return false
		}
	}
	return true
}

func (s *search) offerRelaxedPoint() {
	if !s.relaxedPointFeasible() {
		return
	}
	objective := s.objFixed
	for j, on := range s.pick {
		if on {
			objective += s.p.obj[j]
		}
	}
	s.offer(objective, func(j int) bool {
		if s.val[j] >= 0 {
			return s.val[j] == 1
		}
		return s.pick[j]
	})
}

// relax runs projected subgradient descent on the dual starting at mu. On return mu
// holds the best multipliers found, s.reduced matches them, and the returned value is
// the tightest bound seen.
func (s *search) relax(mu []float64, iterations int) float64 {
	for _, grp := range s.p.groups {
		mu[grp.row] = 0
	}
	bestMu := append([]float64(nil), mu...)
	best := math.Inf(1)
	theta := 2.0
	stall := 0

	for it := 0; it < iterations; it++ {
		value := s.lagrangian(mu)
		if math.IsInf(value, -1) {
			return value
		}
		if value < best {
			best = value
			copy(bestMu, mu)
			stall = 0
		} else {
			stall++
			if stall >= 5 {
				theta /= 2
				stall = 0
			}
		}
		s.offerRelaxedPoint()
		if s.prunable(best) {
			break
		}

		// Project the subgradient onto the feasible multiplier cone: an inequality
		// multiplier sitting at zero cannot move further down.
		for r := range s.grad {
			if !s.p.equal[r] && mu[r] <= 0 && s.grad[r] > 0 {
				s.grad[r] = 0
			}
		}
		norm := floats.Dot(s.grad, s.grad)
		if norm < 1e-18 {
			break
		}

		target := value - 0.05*(1+math.Abs(value))
		if s.hasBest && s.bestObj < value {
			target = s.bestObj
		}
		floats.AddScaled(mu, -theta*(value-target)/norm, s.grad)
		for r := range mu {
			if !s.p.equal[r] && mu[r] < 0 {
				mu[r] = 0
			}
		}
		if theta < 1e-6 {
			break
		}
	}

	copy(mu, bestMu)
	if bound := s.lagrangian(mu); bound < best {
		best = bound
	}
	return best
}
