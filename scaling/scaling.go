// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scaling equilibrates cone program data so the splitting
// iteration sees a well-conditioned problem.
//
// The data (P, A, 𝐛, 𝐜) is replaced by
//
//	P̂ = EPE,  Â = DAE,  𝐛̂ = σD𝐛,  𝐜̂ = σE𝐜
//
// with positive diagonal D (rows) and E (columns) and a scalar σ. A solution
// (𝐱̂, 𝐲̂, 𝐬̂) of the scaled problem maps back through
//
//	𝐱 = E𝐱̂/σ,  𝐲 = D𝐲̂/σ,  𝐬 = D⁻¹𝐬̂/σ.
package scaling

import (
	"math"

	"github.com/curioloop/conic/sparse"
	"gonum.org/v1/gonum/floats"
)

const (
	// ruizPasses is the number of ∞-norm equilibration passes.
	ruizPasses = 25
	// l2Passes is the number of 2-norm passes run after the Ruiz passes.
	l2Passes = 1
	// MinScale and MaxScale clamp the norms used for a single pass.
	MinScale = 1e-4
	MaxScale = 1e4
)

// Scaling holds the diagonal equilibration of a problem.
type Scaling struct {
	D []float64 // row scaling (m)
	E []float64 // column scaling (n)
	// PrimalScale and DualScale are the scalar σ applied to 𝐛 and 𝐜.
	// They are kept equal so that P̂ does not depend on them.
	PrimalScale float64
	DualScale   float64
}

// Identity returns the scaling that leaves the data untouched.
func Identity(m, n int) *Scaling {
	s := &Scaling{D: make([]float64, m), E: make([]float64, n), PrimalScale: 1, DualScale: 1}
	for i := range s.D {
		s.D[i] = 1
	}
	for j := range s.E {
		s.E[j] = 1
	}
	return s
}

// limit maps a norm into [MinScale, MaxScale], treating tiny norms as one.
func limit(x float64) float64 {
	if x < MinScale {
		return 1
	}
	return math.Min(x, MaxScale)
}

// Equilibrate scales a and p in place and returns the accumulated scaling.
// p may be nil and holds only its upper triangle. Rows belonging to the
// same group of boundaries receive the same scale factor, taken from the
// largest row norm of the group (the root mean square in the ℓ₂ pass).
func Equilibrate(a, p *sparse.CSC, boundaries []int) *Scaling {
	m, n := a.M, a.N
	s := Identity(m, n)
	dt := make([]float64, m)
	et := make([]float64, n)
	for pass := 0; pass < ruizPasses+l2Passes; pass++ {
		inf := pass < ruizPasses
		rowColNorms(a, p, dt, et, inf)
		reduceGroups(dt, boundaries, inf)
		for i := range dt {
			dt[i] = 1 / math.Sqrt(limit(dt[i]))
		}
		for j := range et {
			et[j] = 1 / math.Sqrt(limit(et[j]))
		}
		a.ScaleRowsCols(dt, et)
		if p != nil {
			p.ScaleRowsCols(et, et)
		}
		floats.Mul(s.D, dt)
		floats.Mul(s.E, et)
	}
	return s
}

// rowColNorms computes the row norms of A and the column norms of [P; A].
func rowColNorms(a, p *sparse.CSC, rows, cols []float64, inf bool) {
	clear(rows)
	clear(cols)
	acc := func(dst []float64, i int, v float64) {
		if inf {
			dst[i] = math.Max(dst[i], math.Abs(v))
		} else {
			dst[i] += v * v
		}
	}
	for j := 0; j < a.N; j++ {
		for k := a.P[j]; k < a.P[j+1]; k++ {
			acc(rows, a.I[k], a.X[k])
			acc(cols, j, a.X[k])
		}
	}
	if p != nil {
		for j := 0; j < p.N; j++ {
			for k := p.P[j]; k < p.P[j+1]; k++ {
				i := p.I[k]
				acc(cols, j, p.X[k])
				if i != j {
					acc(cols, i, p.X[k])
				}
			}
		}
	}
	if !inf {
		for i := range rows {
			rows[i] = math.Sqrt(rows[i])
		}
		for j := range cols {
			cols[j] = math.Sqrt(cols[j])
		}
	}
}

// reduceGroups replaces each group of v by its maximum, or by its root mean
// square when inf is false. Either keeps a group containing a zero row from
// shrinking on every pass.
func reduceGroups(v []float64, boundaries []int, inf bool) {
	off := 0
	for _, g := range boundaries {
		if g > 1 {
			blk := v[off : off+g]
			var r float64
			if inf {
				r = floats.Max(blk)
			} else {
				r = floats.Norm(blk, 2) / math.Sqrt(float64(g))
			}
			for i := range blk {
				blk[i] = r
			}
		}
		off += g
	}
}

// NormalizeBC scales b and c in place and sets σ from their norms.
func (s *Scaling) NormalizeBC(b, c []float64) {
	floats.Mul(b, s.D)
	floats.Mul(c, s.E)
	nm := math.Max(floats.Norm(b, math.Inf(1)), floats.Norm(c, math.Inf(1)))
	sigma := 1 / limit(nm)
	floats.Scale(sigma, b)
	floats.Scale(sigma, c)
	s.PrimalScale, s.DualScale = sigma, sigma
}

// NormalizeSolution maps (𝐱, 𝐲, 𝐬) into scaled space in place.
// Any of the vectors may be nil.
func (s *Scaling) NormalizeSolution(x, y, sl []float64) {
	for j := range x {
		x[j] *= s.PrimalScale / s.E[j]
	}
	for i := range y {
		y[i] *= s.DualScale / s.D[i]
	}
	for i := range sl {
		sl[i] *= s.PrimalScale * s.D[i]
	}
}

// UnnormalizeSolution maps a scaled (𝐱̂, 𝐲̂, 𝐬̂) back to original units in place.
func (s *Scaling) UnnormalizeSolution(x, y, sl []float64) {
	for j := range x {
		x[j] *= s.E[j] / s.PrimalScale
	}
	for i := range y {
		y[i] *= s.D[i] / s.DualScale
	}
	for i := range sl {
		sl[i] /= s.D[i] * s.PrimalScale
	}
}

// UnscaleMatrices restores the original A and P in place.
func (s *Scaling) UnscaleMatrices(a, p *sparse.CSC) {
	dinv := make([]float64, len(s.D))
	einv := make([]float64, len(s.E))
	for i, d := range s.D {
		dinv[i] = 1 / d
	}
	for j, e := range s.E {
		einv[j] = 1 / e
	}
	if a != nil {
		a.ScaleRowsCols(dinv, einv)
	}
	if p != nil {
		p.ScaleRowsCols(einv, einv)
	}
}
