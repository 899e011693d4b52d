// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package accel implements Anderson acceleration for fixed-point iterations
// 𝐱ₖ₊₁ = F(𝐱ₖ).
//
// Given the last few input points 𝐱ᵢ, their images 𝐠ᵢ = F(𝐱ᵢ) and the
// residuals 𝐟ᵢ = 𝐠ᵢ − 𝐱ᵢ, the accelerated point is
//
//	𝐱 = 𝐠ₖ − ΔG γ
//
// where ΔG holds the differences of consecutive images. Type-II chooses γ
// by minimizing ‖𝐟ₖ − ΔF γ‖, type-I solves ΔXᵀΔF γ = ΔXᵀ𝐟ₖ. The differences
// are kept in a ring buffer of fixed depth, like the correction pairs of a
// limited-memory quasi-Newton update.
package accel

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultRegularizationTypeI scales the Tikhonov term of type-I.
	DefaultRegularizationTypeI = 1e-8
	// DefaultRegularizationTypeII scales the Tikhonov term of type-II.
	DefaultRegularizationTypeII = 1e-10
	// DefaultSafeguardFactor bounds the residual growth after an
	// accelerated step relative to the residual at extrapolation.
	DefaultSafeguardFactor = 1.0
	// DefaultMaxWeightNorm rejects extrapolations with larger weights.
	DefaultMaxWeightNorm = 1e10
)

var errSingular = errors.New("accel: singular least-squares system")

// Anderson keeps the acceleration history of one fixed-point iteration.
// It is not safe for concurrent use.
type Anderson struct {
	// Regularization scales the Tikhonov term added to the normal equations.
	Regularization float64
	// Relaxation β mixes the images and inputs: β = 1 uses images only.
	Relaxation float64
	// SafeguardFactor bounds the residual after an accelerated step.
	SafeguardFactor float64
	// MaxWeightNorm rejects extrapolations whose weights grow beyond it.
	MaxWeightNorm float64

	dim, mem int
	typeI    bool

	k, head int
	ds      [][]float64 // Δ𝐱
	df      [][]float64 // Δ𝐟
	dg      [][]float64 // Δ𝐠

	started             bool
	xPrev, gPrev, fPrev []float64
	f                   []float64
	saved               []float64 // image before the last extrapolation
	normF               float64
	pending             bool

	gamma []float64

	accepted, rejected int
}

// New creates an accelerator for vectors of length dim keeping mem
// differences. A negative mem selects type-I with depth −mem; mem = 0
// disables acceleration.
func New(dim, mem int) *Anderson {
	a := &Anderson{
		Relaxation:      1,
		SafeguardFactor: DefaultSafeguardFactor,
		MaxWeightNorm:   DefaultMaxWeightNorm,
		dim:             dim,
		Regularization:  DefaultRegularizationTypeII,
	}
	if mem < 0 {
		a.typeI = true
		a.Regularization = DefaultRegularizationTypeI
		mem = -mem
	}
	a.mem = mem
	if mem == 0 {
		return a
	}
	alloc := func() [][]float64 {
		cols := make([][]float64, mem)
		for i := range cols {
			cols[i] = make([]float64, dim)
		}
		return cols
	}
	a.ds, a.df, a.dg = alloc(), alloc(), alloc()
	a.xPrev = make([]float64, dim)
	a.gPrev = make([]float64, dim)
	a.fPrev = make([]float64, dim)
	a.f = make([]float64, dim)
	a.saved = make([]float64, dim)
	a.gamma = make([]float64, mem)
	return a
}

// Enabled reports whether a keeps any history.
func (a *Anderson) Enabled() bool { return a != nil && a.mem > 0 }

// TypeI reports whether a is the type-I variant.
func (a *Anderson) TypeI() bool { return a.typeI }

// Accepted returns the number of accelerated steps kept by Safeguard.
func (a *Anderson) Accepted() int { return a.accepted }

// Rejected returns the number of accelerated steps undone by Safeguard.
func (a *Anderson) Rejected() int { return a.rejected }

// Reset clears the history. The counters are kept.
func (a *Anderson) Reset() {
	a.k, a.head = 0, 0
	a.started = false
	a.pending = false
}

// Apply records the input 𝐱 and its image 𝐠 = F(𝐱) and overwrites 𝐠 with
// the extrapolated point. It reports whether 𝐠 was changed.
func (a *Anderson) Apply(g, x []float64) bool {
	if !a.Enabled() {
		return false
	}
	floats.SubTo(a.f, g, x)
	a.normF = floats.Norm(a.f, 2)
	if a.started {
		h := a.head
		floats.SubTo(a.ds[h], x, a.xPrev)
		floats.SubTo(a.df[h], a.f, a.fPrev)
		floats.SubTo(a.dg[h], g, a.gPrev)
		a.head = (h + 1) % a.mem
		if a.k < a.mem {
			a.k++
		}
	}
	copy(a.xPrev, x)
	copy(a.gPrev, g)
	copy(a.fPrev, a.f)
	a.started = true
	if a.k == 0 {
		return false
	}

	gamma := a.gamma[:a.k]
	if err := a.weights(gamma); err != nil || floats.Norm(gamma, 2) > a.MaxWeightNorm {
		a.Reset()
		return false
	}

	copy(a.saved, g)
	beta := a.Relaxation
	for j, w := range gamma {
		floats.AddScaled(g, -w*beta, a.dg[j])
	}
	if beta != 1 {
		// 𝐠 ← β(𝐠 − ΔGγ) + (1 − β)(𝐱 − ΔXγ)
		for i := range g {
			g[i] += (1 - beta) * (x[i] - a.saved[i])
		}
		for j, w := range gamma {
			floats.AddScaled(g, -w*(1-beta), a.ds[j])
		}
	}
	a.pending = true
	return true
}

// weights solves the regularized normal equations for γ.
func (a *Anderson) weights(gamma []float64) error {
	k := a.k
	rhs := mat.NewVecDense(k, nil)
	sol := mat.NewVecDense(k, gamma)

	if !a.typeI {
		// (ΔFᵀΔF + λI)γ = ΔFᵀ𝐟
		gram := mat.NewSymDense(k, nil)
		frob := 0.0
		for i := 0; i < k; i++ {
			for j := i; j < k; j++ {
				gram.SetSym(i, j, floats.Dot(a.df[i], a.df[j]))
			}
			frob += gram.At(i, i)
			rhs.SetVec(i, floats.Dot(a.df[i], a.f))
		}
		lambda := a.Regularization * frob
		for i := 0; i < k; i++ {
			gram.SetSym(i, i, gram.At(i, i)+lambda)
		}
		var chol mat.Cholesky
		if !chol.Factorize(gram) {
			return errSingular
		}
		return tolerateCondition(chol.SolveVecTo(sol, rhs))
	}

	// (ΔXᵀΔF + λI)γ = ΔXᵀ𝐟
	m := mat.NewDense(k, k, nil)
	ns, nf := 0.0, 0.0
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			m.Set(i, j, floats.Dot(a.ds[i], a.df[j]))
		}
		ns += floats.Dot(a.ds[i], a.ds[i])
		nf += floats.Dot(a.df[i], a.df[i])
		rhs.SetVec(i, floats.Dot(a.ds[i], a.f))
	}
	lambda := a.Regularization * math.Sqrt(ns*nf)
	for i := 0; i < k; i++ {
		m.Set(i, i, m.At(i, i)+lambda)
	}
	return tolerateCondition(sol.SolveVec(m, rhs))
}

func tolerateCondition(err error) error {
	var cond mat.Condition
	if err == nil || errors.As(err, &cond) {
		return nil
	}
	return err
}

// Safeguard inspects the iterate gNew = F(xNew) computed from the point
// returned by the last Apply. If its residual exceeds SafeguardFactor times
// the residual seen by Apply, gNew is replaced with the unaccelerated image
// and the history is cleared. It reports whether the step was kept.
func (a *Anderson) Safeguard(gNew, xNew []float64) bool {
	if !a.pending {
		return true
	}
	a.pending = false
	if floats.Distance(gNew, xNew, 2) > a.SafeguardFactor*a.normF {
		copy(gNew, a.saved)
		a.Reset()
		a.rejected++
		return false
	}
	a.accepted++
	return true
}
