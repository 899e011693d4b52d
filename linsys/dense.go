// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsys

import (
	"errors"
	"fmt"
	"math"

	"github.com/curioloop/conic/sparse"
	"gonum.org/v1/gonum/mat"
)

// Dense runs on dense BLAS/LAPACK kernels. It forms the reduced matrix
// R𝐱 + P + AᵀR𝐲⁻¹A explicitly and factorizes it with Cholesky, which
// pays off for small or dense problems.
type Dense struct {
	n, m int
	p, a *sparse.CSC
	ad   *mat.Dense // A, m×n
	bw   *mat.Dense // R𝐲^(−½)A
	ry   []float64
	red  *mat.SymDense
	chol mat.Cholesky
	rhs  *mat.VecDense
	sol  *mat.VecDense
	tm   []float64
}

// NewDense creates a dense backend.
func NewDense() *Dense { return &Dense{} }

func (s *Dense) Name() string { return "dense-cholesky" }

func (s *Dense) Init(p, a *sparse.CSC, diagR []float64) error {
	s.n, s.m = a.N, a.M
	s.p, s.a = p, a
	s.ad = mat.NewDense(s.m, s.n, nil)
	for j := 0; j < a.N; j++ {
		for k := a.P[j]; k < a.P[j+1]; k++ {
			s.ad.Set(a.I[k], j, a.X[k])
		}
	}
	s.bw = mat.NewDense(s.m, s.n, nil)
	s.red = mat.NewSymDense(s.n, nil)
	s.rhs = mat.NewVecDense(s.n, nil)
	s.sol = mat.NewVecDense(s.n, nil)
	s.tm = make([]float64, s.m)
	return s.UpdateDiag(diagR)
}

func (s *Dense) UpdateDiag(diagR []float64) error {
	rx, ry := splitDiag(diagR, s.n)
	s.ry = append(s.ry[:0], ry...)
	for i := 0; i < s.m; i++ {
		w := 1 / math.Sqrt(ry[i])
		for j := 0; j < s.n; j++ {
			s.bw.Set(i, j, s.ad.At(i, j)*w)
		}
	}
	s.red.SymOuterK(1, s.bw.T())
	for j := 0; j < s.n; j++ {
		s.red.SetSym(j, j, s.red.At(j, j)+rx[j])
	}
	if s.p != nil {
		for j := 0; j < s.p.N; j++ {
			for k := s.p.P[j]; k < s.p.P[j+1]; k++ {
				i := s.p.I[k]
				s.red.SetSym(i, j, s.red.At(i, j)+s.p.X[k])
			}
		}
	}
	if !s.chol.Factorize(s.red) {
		return fmt.Errorf("%w: reduced matrix is not positive definite", ErrFactorization)
	}
	return nil
}

func (s *Dense) Solve(rhs, _ []float64, _ int) error {
	n := s.n
	rxs, rys := rhs[:n], rhs[n:]
	for i := range s.tm {
		s.tm[i] = rys[i] / s.ry[i]
	}
	copy(s.rhs.RawVector().Data, rxs)
	s.a.MulTVecAdd(s.tm, s.rhs.RawVector().Data)
	if err := s.chol.SolveVecTo(s.sol, s.rhs); err != nil {
		// an ill-conditioned factor still yields a usable solution
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return fmt.Errorf("%w: %v", ErrFactorization, err)
		}
	}
	x := s.sol.RawVector().Data
	clear(s.tm)
	s.a.MulVecAdd(x, s.tm)
	for i := range rys {
		rys[i] = (s.tm[i] - rys[i]) / s.ry[i]
	}
	copy(rxs, x)
	return nil
}

func (s *Dense) AccumByA(x, y []float64)  { s.a.MulVecAdd(x, y) }
func (s *Dense) AccumByAT(x, y []float64) { s.a.MulTVecAdd(x, y) }

func (s *Dense) Release() {
	s.ad, s.bw, s.red, s.rhs, s.sol, s.tm = nil, nil, nil, nil, nil, nil
	s.chol.Reset()
}
