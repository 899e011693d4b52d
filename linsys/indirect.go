// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsys

import (
	"math"

	"github.com/curioloop/conic/sparse"
	"gonum.org/v1/gonum/floats"
)

const (
	cgBestTol = 1e-12
	cgMinTol  = 1e-2
	cgRate    = 1.5
)

// Indirect eliminates 𝐳𝐲 and solves the reduced positive definite system
//
//	(R𝐱 + P + AᵀR𝐲⁻¹A)𝐳𝐱 = 𝐫𝐱 + AᵀR𝐲⁻¹𝐫𝐲
//
// with Jacobi-preconditioned conjugate gradient. Only matrix-vector
// products with P and A are needed. The tolerance tightens as the outer
// iteration count grows.
type Indirect struct {
	// MaxIterations bounds the CG steps of one solve; zero means 10n.
	MaxIterations int

	n, m   int
	p, a   *sparse.CSC
	rx, ry []float64
	diag   []float64 // preconditioner M⁻¹

	b, x, r, z, d, md []float64
	tm                []float64 // length m
	// CGIterations accumulates the CG steps over all solves.
	CGIterations int
}

// NewIndirect creates a matrix-free backend.
func NewIndirect() *Indirect { return &Indirect{} }

func (s *Indirect) Name() string { return "sparse-indirect" }

func (s *Indirect) Init(p, a *sparse.CSC, diagR []float64) error {
	s.n, s.m = a.N, a.M
	s.p, s.a = p, a
	n := s.n
	s.diag = make([]float64, n)
	s.b = make([]float64, n)
	s.x = make([]float64, n)
	s.r = make([]float64, n)
	s.z = make([]float64, n)
	s.d = make([]float64, n)
	s.md = make([]float64, n)
	s.tm = make([]float64, s.m)
	return s.UpdateDiag(diagR)
}

func (s *Indirect) UpdateDiag(diagR []float64) error {
	rx, ry := splitDiag(diagR, s.n)
	s.rx = append(s.rx[:0], rx...)
	s.ry = append(s.ry[:0], ry...)
	copy(s.diag, s.rx)
	if s.p != nil {
		floats.Add(s.diag, s.p.Diag())
	}
	a := s.a
	for j := 0; j < a.N; j++ {
		for k := a.P[j]; k < a.P[j+1]; k++ {
			s.diag[j] += a.X[k] * a.X[k] / s.ry[a.I[k]]
		}
	}
	for j, v := range s.diag {
		s.diag[j] = 1 / v
	}
	return nil
}

// apply computes 𝐲 = (R𝐱 + P + AᵀR𝐲⁻¹A)𝐱.
func (s *Indirect) apply(x, y []float64) {
	floats.MulTo(y, s.rx, x)
	if s.p != nil {
		s.p.SymMulVecAdd(x, y)
	}
	clear(s.tm)
	s.a.MulVecAdd(x, s.tm)
	floats.Div(s.tm, s.ry)
	s.a.MulTVecAdd(s.tm, y)
}

func (s *Indirect) Solve(rhs, hint []float64, iter int) error {
	n := s.n
	rxs, rys := rhs[:n], rhs[n:]

	// reduced right-hand side
	copy(s.b, rxs)
	floats.DivTo(s.tm, rys, s.ry)
	s.a.MulTVecAdd(s.tm, s.b)

	if hint != nil {
		copy(s.x, hint[:n])
	} else {
		clear(s.x)
	}

	tol := cgBestTol
	if iter >= 0 {
		tol = math.Max(cgBestTol, cgMinTol/math.Pow(float64(iter+1), cgRate))
	}
	tol *= floats.Norm(s.b, 2)
	s.CGIterations += s.pcg(tol)

	// back substitution 𝐳𝐲 = R𝐲⁻¹(A𝐳𝐱 − 𝐫𝐲)
	clear(s.tm)
	s.a.MulVecAdd(s.x, s.tm)
	for i := range rys {
		rys[i] = (s.tm[i] - rys[i]) / s.ry[i]
	}
	copy(rxs, s.x)
	return nil
}

// pcg runs preconditioned conjugate gradient from s.x and returns the
// number of steps. The iterate is left in s.x.
func (s *Indirect) pcg(tol float64) int {
	maxIter := s.MaxIterations
	if maxIter <= 0 {
		maxIter = 10 * s.n
	}
	r, z, d, md := s.r, s.z, s.d, s.md

	s.apply(s.x, md)
	floats.SubTo(r, s.b, md)
	if floats.Norm(r, 2) <= tol {
		return 0
	}
	floats.MulTo(z, s.diag, r)
	copy(d, z)
	rz := floats.Dot(r, z)

	k := 0
	for k < maxIter {
		k++
		s.apply(d, md)
		dmd := floats.Dot(d, md)
		if dmd <= 0 {
			break
		}
		alpha := rz / dmd
		floats.AddScaled(s.x, alpha, d)
		floats.AddScaled(r, -alpha, md)
		if floats.Norm(r, 2) <= tol {
			break
		}
		floats.MulTo(z, s.diag, r)
		rzNext := floats.Dot(r, z)
		beta := rzNext / rz
		rz = rzNext
		floats.AddScaledTo(d, z, beta, d)
	}
	return k
}

func (s *Indirect) AccumByA(x, y []float64)  { s.a.MulVecAdd(x, y) }
func (s *Indirect) AccumByAT(x, y []float64) { s.a.MulTVecAdd(x, y) }

func (s *Indirect) Release() {
	s.b, s.x, s.r, s.z, s.d, s.md, s.tm = nil, nil, nil, nil, nil, nil, nil
}
