// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsys

import (
	"fmt"

	"github.com/curioloop/conic/sparse"
)

// Ordering selects the fill-reducing permutation of the direct backend.
type Ordering int

const (
	// MinDegree eliminates the node of smallest degree first.
	MinDegree Ordering = iota
	// Natural keeps the original order.
	Natural
)

// Direct factorizes the quasi-definite system with a sparse LDLᵀ.
// Changing the diagonal only repeats the numeric factorization.
type Direct struct {
	Ordering Ordering

	n, m    int
	a       *sparse.CSC
	pDiag   []float64
	kkt     *sparse.CSC
	diagPos []int // value index of the diagonal of each original row
	perm    []int // perm[k] is the original row placed at k
	fact    *ldl
	work    []float64
}

// NewDirect creates a direct backend with minimum degree ordering.
func NewDirect() *Direct { return &Direct{} }

func (d *Direct) Name() string { return "sparse-direct" }

func (d *Direct) Init(p, a *sparse.CSC, diagR []float64) error {
	d.n, d.m = a.N, a.M
	d.a = a
	if p != nil {
		d.pDiag = p.Diag()
	} else {
		d.pDiag = make([]float64, d.n)
	}
	k, diag := formKKT(p, a, diagR)
	dim := k.N

	switch d.Ordering {
	case Natural:
		d.perm = make([]int, dim)
		for i := range d.perm {
			d.perm[i] = i
		}
	default:
		d.perm = minDegree(k)
	}
	pinv := make([]int, dim)
	for i, v := range d.perm {
		pinv[v] = i
	}
	var dst []int
	d.kkt, dst = symPerm(k, pinv)
	d.diagPos = make([]int, dim)
	for i, q := range diag {
		d.diagPos[i] = dst[q]
	}

	fact, err := newLDL(d.kkt)
	if err != nil {
		return err
	}
	d.fact = fact
	d.work = make([]float64, dim)
	return d.factor()
}

func (d *Direct) factor() error {
	positive, err := d.fact.factor(d.kkt)
	if err != nil {
		return err
	}
	if positive != d.n {
		return fmt.Errorf("%w: %d positive pivots, expected %d", ErrFactorization, positive, d.n)
	}
	return nil
}

func (d *Direct) UpdateDiag(diagR []float64) error {
	for j := 0; j < d.n; j++ {
		d.kkt.X[d.diagPos[j]] = d.pDiag[j] + diagR[j]
	}
	for i := d.n; i < d.n+d.m; i++ {
		d.kkt.X[d.diagPos[i]] = -diagR[i]
	}
	return d.factor()
}

func (d *Direct) Solve(rhs, _ []float64, _ int) error {
	for k, v := range d.perm {
		d.work[k] = rhs[v]
	}
	d.fact.solve(d.work)
	for k, v := range d.perm {
		rhs[v] = d.work[k]
	}
	return nil
}

func (d *Direct) AccumByA(x, y []float64)  { d.a.MulVecAdd(x, y) }
func (d *Direct) AccumByAT(x, y []float64) { d.a.MulTVecAdd(x, y) }

func (d *Direct) Release() {
	d.kkt, d.fact, d.work, d.perm, d.diagPos = nil, nil, nil, nil, nil
}
