// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scs

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// residuals of the current iterate in original units. Vectors are not
// divided by τ; the scalar products with the suffix Tau are not either.
type residuals struct {
	iter     int
	tau, kap float64

	x, y, s            []float64
	ax, axs, axsBtau   []float64 // m
	px, aty, pxAtyCtau []float64 // n

	xtPxTau, ctxTau, btyTau float64
	xtPx, ctx, bty          float64 // divided by τ² or τ

	resPri, resDual, gap            float64
	resInfeas, resUnbddA, resUnbddP float64
	pobj, dobj                      float64
}

func newResiduals(n, m int) residuals {
	return residuals{
		x: make([]float64, n), y: make([]float64, m), s: make([]float64, m),
		ax: make([]float64, m), axs: make([]float64, m), axsBtau: make([]float64, m),
		px: make([]float64, n), aty: make([]float64, n), pxAtyCtau: make([]float64, n),
	}
}

// populate computes the residuals of (𝐮, 𝐫𝐬𝐤) at iteration iter.
//
// With the scaled data Â = DAE, P̂ = EPE, 𝐛̂ = σD𝐛 and 𝐜̂ = σE𝐜 the original
// quantities are recovered as A𝐱 = D⁻¹Â𝐱̂/σ, Aᵀ𝐲 = E⁻¹Âᵀ𝐲̂/σ and
// P𝐱 = E⁻¹P̂𝐱̂/σ, while inner products shrink by σ².
func (s *Solver) populate(r *residuals, iter int) {
	n, m, l := s.n, s.m, s.l
	st := &s.st
	sc := s.scal
	sigma := sc.PrimalScale
	xh, yh := st.u[:n], st.u[n:n+m]

	r.iter = iter
	r.tau = math.Abs(st.u[l-1])
	r.kap = math.Abs(st.rsk[l-1]) / (sc.PrimalScale * sc.DualScale)

	copy(r.x, xh)
	copy(r.y, yh)
	copy(r.s, st.rsk[n:n+m])
	sc.UnnormalizeSolution(r.x, r.y, r.s)

	clear(r.ax)
	s.backend.AccumByA(xh, r.ax)
	for i := range r.ax {
		r.ax[i] /= sc.D[i] * sigma
	}
	clear(r.aty)
	s.backend.AccumByAT(yh, r.aty)
	for j := range r.aty {
		r.aty[j] /= sc.E[j] * sc.DualScale
	}
	clear(r.px)
	if s.p != nil {
		s.p.SymMulVecAdd(xh, r.px)
		for j := range r.px {
			r.px[j] /= sc.E[j] * sigma
		}
	}

	tau := r.tau
	floats.AddTo(r.axs, r.ax, r.s)
	floats.AddScaledTo(r.axsBtau, r.axs, -tau, s.bOrig)
	floats.AddTo(r.pxAtyCtau, r.px, r.aty)
	floats.AddScaled(r.pxAtyCtau, tau, s.cOrig)

	r.xtPxTau = floats.Dot(r.x, r.px)
	r.ctxTau = floats.Dot(s.cOrig, r.x)
	r.btyTau = floats.Dot(s.bOrig, r.y)

	r.xtPx = safeDiv(r.xtPxTau, tau*tau)
	r.ctx = safeDiv(r.ctxTau, tau)
	r.bty = safeDiv(r.btyTau, tau)

	r.resPri = safeDiv(normInf(r.axsBtau), tau)
	r.resDual = safeDiv(normInf(r.pxAtyCtau), tau)
	r.gap = math.Abs(r.xtPx + r.ctx + r.bty)
	r.pobj = r.xtPx/2 + r.ctx
	r.dobj = -r.xtPx/2 - r.bty

	r.resInfeas = math.Inf(1)
	if r.btyTau < 0 {
		r.resInfeas = normInf(r.aty) / -r.btyTau
	}
	r.resUnbddA, r.resUnbddP = math.Inf(1), math.Inf(1)
	if r.ctxTau < 0 {
		r.resUnbddA = normInf(r.axs) / -r.ctxTau
		r.resUnbddP = normInf(r.px) / -r.ctxTau
	}
}

// converged checks optimality, then unboundedness, then infeasibility.
func (s *Solver) converged(r *residuals) Status {
	set := &s.set
	epsAbs, epsRel, epsInfeas := set.EpsAbs, set.EpsRel, set.EpsInfeas
	if tau := r.tau; tau > 0 {
		// the scalar products already have τ divided out, the vectors not
		grl := math.Max(math.Max(math.Abs(r.xtPx), math.Abs(r.ctx)), math.Abs(r.bty))
		prl := math.Max(math.Max(normInf(r.ax), normInf(r.s)), normInf(s.bOrig)*tau) / tau
		drl := math.Max(math.Max(normInf(r.px), normInf(r.aty)), normInf(s.cOrig)*tau) / tau
		if r.resPri < epsAbs+epsRel*prl &&
			r.resDual < epsAbs+epsRel*drl &&
			r.gap < epsAbs+epsRel*grl {
			return Solved
		}
	}
	if r.resUnbddA < epsInfeas && r.resUnbddP < epsInfeas {
		return Unbounded
	}
	if r.resInfeas < epsInfeas {
		return Infeasible
	}
	return Unfinished
}

// relativeResiduals returns the primal and dual residuals relative to the
// magnitude of their terms, used to steer the scale.
func (s *Solver) relativeResiduals(r *residuals) (pri, dual float64) {
	tau := r.tau
	pri = safeDiv(normInf(r.axsBtau),
		math.Max(math.Max(normInf(r.ax), normInf(r.s)), tau*normInf(s.bOrig)))
	dual = safeDiv(normInf(r.pxAtyCtau),
		math.Max(math.Max(normInf(r.px), normInf(r.aty)), tau*normInf(s.cOrig)))
	return
}

// finite reports whether the residuals are free of NaN.
func (r *residuals) finite() bool {
	return !math.IsNaN(r.tau) && !math.IsNaN(r.kap) &&
		!math.IsNaN(r.resPri) && !math.IsNaN(r.resDual) && !math.IsNaN(r.gap)
}
