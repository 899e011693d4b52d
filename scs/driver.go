// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scs

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// state is the iterate of the homogeneous self-dual embedding. All vectors
// have length l = n+m+1 and end with the τ component.
type state struct {
	u, ut, v, vPrev, rsk []float64
	hint                 []float64 // n+m
}

func newState(n, m int) state {
	l := n + m + 1
	return state{
		u: make([]float64, l), ut: make([]float64, l), v: make([]float64, l),
		vPrev: make([]float64, l), rsk: make([]float64, l),
		hint: make([]float64, n+m),
	}
}

// timers accumulates the time spent in each phase of a solve.
type timers struct {
	linSys, cone, accel time.Duration
}

// outcome of the main loop.
type outcome struct {
	status    Status
	iters     int
	timeLimit bool
	err       error
}

// coldStart sets 𝐯 = (0, …, 0, 1).
func (s *Solver) coldStart() {
	st := &s.st
	clear(st.v)
	st.v[s.l-1] = 1
	clear(st.u)
	st.u[s.l-1] = 1
}

// warmStart maps a solution in original units to 𝐯 = (𝐱̂, 𝐲̂ + R𝐲⁻¹𝐬̂, 1).
// Missing parts are taken as zero. It falls back to a cold start when the
// result is not finite and reports whether the guess was used.
func (s *Solver) warmStart(x, y, sl []float64) bool {
	n, m, l := s.n, s.m, s.l
	st := &s.st
	xh := st.v[:n]
	yh := st.v[n : n+m]
	sh := st.rsk[n : n+m]
	clear(xh)
	clear(yh)
	clear(sh)
	copy(xh, x)
	copy(yh, y)
	copy(sh, sl)
	s.scal.NormalizeSolution(xh, yh, sh)
	for i := range yh {
		yh[i] += sh[i] / s.diagR[n+i]
	}
	st.v[l-1] = 1
	if !allFinite(st.v) {
		s.coldStart()
		return false
	}
	copy(st.u, st.v)
	return true
}

// dotR is the R-weighted inner product over the first n+m entries.
func (s *Solver) dotR(x, y []float64) (d float64) {
	for i, r := range s.diagR[:s.n+s.m] {
		d += r * x[i] * y[i]
	}
	return
}

// rootPlus returns the larger root of the quadratic in τ that keeps the
// linear system solution consistent with the embedding.
func (s *Solver) rootPlus(p, v []float64, eta float64) float64 {
	rt := s.diagR[s.l-1]
	a := rt + s.dotR(s.g, s.g)
	b := s.dotR(v, s.g) - 2*s.dotR(p, s.g) - eta*rt
	c := s.dotR(p, p) - s.dotR(p, v)
	rad := b*b - 4*a*c
	return (-b + math.Sqrt(math.Max(rad, 0))) / (2 * a)
}

// projectLinSys computes 𝐮̃ from the solution 𝐩 of K𝐩 = (R𝐱𝐯𝐱, −R𝐲𝐯𝐲):
// 𝐮̃ = 𝐩 − τ𝐠 with τ from rootPlus.
func (s *Solver) projectLinSys(iter int) error {
	n, m, l := s.n, s.m, s.l
	st := &s.st
	ut, v := st.ut, st.v
	for i := 0; i < n; i++ {
		ut[i] = s.diagR[i] * v[i]
	}
	for i := n; i < n+m; i++ {
		ut[i] = -s.diagR[i] * v[i]
	}
	var hint []float64
	if iter >= feasibleIters {
		// 𝐮 + τ𝐠 approximates 𝐩
		hint = st.hint
		floats.AddScaledTo(hint, st.u[:n+m], st.u[l-1], s.g)
	}
	if err := s.backend.Solve(ut[:n+m], hint, iter); err != nil {
		return err
	}
	if iter < feasibleIters {
		ut[l-1] = 1
	} else {
		ut[l-1] = s.rootPlus(ut, v, v[l-1])
	}
	floats.AddScaled(ut[:n+m], -ut[l-1], s.g)
	return nil
}

// projectCones sets 𝐮 = Π(2𝐮̃ − 𝐯) where 𝐱 is free, 𝐲 ∈ K* and τ ≥ 0.
func (s *Solver) projectCones(iter int) {
	n, m, l := s.n, s.m, s.l
	st := &s.st
	for i := range st.u {
		st.u[i] = 2*st.ut[i] - st.v[i]
	}
	s.proj.Project(st.u[n:n+m], true)
	if iter < feasibleIters {
		st.u[l-1] = 1
	} else {
		st.u[l-1] = math.Max(st.u[l-1], 0)
	}
}

// computeRSK sets 𝐫𝐬𝐤 = R(𝐯 + 𝐮 − 2𝐮̃), which holds (𝐫, 𝐬, κ).
func (s *Solver) computeRSK() {
	st := &s.st
	for i, r := range s.diagR {
		st.rsk[i] = r * (st.v[i] + st.u[i] - 2*st.ut[i])
	}
}

// updateDualVars sets 𝐯 ← 𝐯 + α(𝐮 − 𝐮̃).
func (s *Solver) updateDualVars() {
	st := &s.st
	alpha := s.set.Alpha
	for i := range st.v {
		st.v[i] += alpha * (st.u[i] - st.ut[i])
	}
}

// scaleTracker accumulates log residual ratios between scale updates.
type scaleTracker struct {
	sumLog     float64
	count      int
	lastUpdate int
}

// updateScale moves the scale toward balancing the relative primal and dual
// residuals. A change refactors the system, recomputes 𝐠, clears the
// acceleration history and remaps 𝐯 so that 𝐫𝐬𝐤 is preserved.
func (s *Solver) updateScale(r *residuals, iter int, tr *scaleTracker) error {
	pri, dual := s.relativeResiduals(r)
	if !(pri > 0 && dual > 0) || math.IsInf(pri, 0) || math.IsInf(dual, 0) {
		return nil
	}
	// a larger scale drives the primal residual down faster
	tr.sumLog += math.Log(pri) - math.Log(dual)
	tr.count++
	factor := math.Sqrt(math.Exp(tr.sumLog / float64(tr.count)))
	since := iter - tr.lastUpdate
	if since < rescaleMinIters {
		return nil
	}
	if math.IsNaN(factor) || (factor <= scaleBound && factor >= 1/scaleBound) {
		return nil
	}
	next := math.Min(math.Max(s.scale*factor, minScaleValue), maxScaleValue)
	if next == s.scale {
		return nil
	}
	s.log.Debug("scale update", "iter", iter, "from", s.scale, "to", next)
	s.scaleUpdates++
	tr.sumLog, tr.count, tr.lastUpdate = 0, 0, iter
	s.scale = next
	s.setDiagR()
	if err := s.backend.UpdateDiag(s.diagR[:s.n+s.m]); err != nil {
		return err
	}
	if err := s.updateWorkCache(); err != nil {
		return err
	}
	s.acc.Reset()
	st := &s.st
	for i, d := range s.diagR {
		st.v[i] = st.rsk[i]/d + 2*st.ut[i] - st.u[i]
	}
	return nil
}

// iterate runs the splitting iteration until a termination rule fires.
func (s *Solver) iterate(ctx context.Context, deadline time.Time, clk *timers, csvw *csvLog) (out outcome) {
	st := &s.st
	r := &s.res
	interval := s.set.AccelerationInterval
	accelerated := s.acc.Enabled()
	var tr scaleTracker
	start := time.Now()

	for i := 0; i < s.set.MaxIters; i++ {
		out.iters = i + 1
		accelStep := accelerated && i > 0 && i%interval == 0
		if accelStep {
			t := time.Now()
			s.acc.Apply(st.v, st.vPrev)
			clk.accel += time.Since(t)
		}
		copy(st.vPrev, st.v)

		t := time.Now()
		if err := s.projectLinSys(i); err != nil {
			out.status, out.err = Failed, err
			return
		}
		clk.linSys += time.Since(t)

		t = time.Now()
		s.projectCones(i)
		clk.cone += time.Since(t)

		s.computeRSK()
		s.populate(r, i)
		if !r.finite() || floats.HasNaN(st.u) {
			out.status = Failed
			return
		}
		if out.status = s.converged(r); out.status != Unfinished {
			s.logIter(r, start)
			csvw.write(s, r, start)
			return
		}

		s.updateDualVars()

		if accelStep {
			t := time.Now()
			s.acc.Safeguard(st.v, st.vPrev)
			clk.accel += time.Since(t)
		}

		if i%printInterval == 0 {
			s.logIter(r, start)
		}
		csvw.write(s, r, start)

		if ctx.Err() != nil {
			out.status = Interrupted
			return
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			out.timeLimit = true
			return
		}

		if s.set.AdaptiveScale {
			if err := s.updateScale(r, i, &tr); err != nil {
				out.status, out.err = Failed, err
				return
			}
		}
	}
	return
}
