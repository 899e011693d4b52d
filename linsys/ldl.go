// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsys

import (
	"fmt"

	"github.com/curioloop/conic/sparse"
)

const unknown = -1

// ldl is an LDLᵀ factorization of a symmetric quasi-definite matrix given
// by its upper triangle. The symbolic part (elimination tree and column
// counts) is computed once and reused by every numeric factorization.
type ldl struct {
	n     int
	etree []int
	lnz   []int
	lp    []int
	li    []int
	lx    []float64
	d     []float64
	dinv  []float64
	iwork []int
	bwork []bool
	fwork []float64
}

// newLDL runs the symbolic analysis of k.
func newLDL(k *sparse.CSC) (*ldl, error) {
	n := k.N
	f := &ldl{
		n:     n,
		etree: make([]int, n),
		lnz:   make([]int, n),
		lp:    make([]int, n+1),
		d:     make([]float64, n),
		dinv:  make([]float64, n),
		iwork: make([]int, 3*n),
		bwork: make([]bool, n),
		fwork: make([]float64, n),
	}
	work := f.iwork[:n]
	for i := 0; i < n; i++ {
		work[i] = 0
		f.etree[i] = unknown
	}
	for j := 0; j < n; j++ {
		work[j] = j
		for q := k.P[j]; q < k.P[j+1]; q++ {
			i := k.I[q]
			if i > j {
				return nil, fmt.Errorf("%w: entry (%d,%d) below the diagonal", ErrFactorization, i, j)
			}
			for work[i] != j {
				if f.etree[i] == unknown {
					f.etree[i] = j
				}
				f.lnz[i]++
				work[i] = j
				i = f.etree[i]
			}
		}
	}
	sum := 0
	for i := 0; i < n; i++ {
		f.lp[i] = sum
		sum += f.lnz[i]
	}
	f.lp[n] = sum
	f.li = make([]int, sum)
	f.lx = make([]float64, sum)
	return f, nil
}

// factor computes the numeric factorization of k and returns the number
// of positive pivots.
func (f *ldl) factor(k *sparse.CSC) (positive int, err error) {
	n := f.n
	marked := f.bwork
	yIdx := f.iwork[:n]
	elim := f.iwork[n : 2*n]
	next := f.iwork[2*n : 3*n]
	yVals := f.fwork

	for i := 0; i < n; i++ {
		marked[i] = false
		yVals[i] = 0
		f.d[i] = 0
		next[i] = f.lp[i]
	}

	for c := 0; c < n; c++ {
		nnzY := 0
		for q := k.P[c]; q < k.P[c+1]; q++ {
			b := k.I[q]
			if b == c {
				f.d[c] = k.X[q]
				continue
			}
			yVals[b] = k.X[q]
			if marked[b] {
				continue
			}
			// walk up the elimination tree until a marked node or c
			marked[b] = true
			elim[0] = b
			nnzE := 1
			for p := f.etree[b]; p != unknown && p < c; p = f.etree[p] {
				if marked[p] {
					break
				}
				marked[p] = true
				elim[nnzE] = p
				nnzE++
			}
			for nnzE > 0 {
				nnzE--
				yIdx[nnzY] = elim[nnzE]
				nnzY++
			}
		}

		for i := nnzY - 1; i >= 0; i-- {
			ci := yIdx[i]
			end := next[ci]
			yc := yVals[ci]
			for j := f.lp[ci]; j < end; j++ {
				yVals[f.li[j]] -= f.lx[j] * yc
			}
			f.li[end] = c
			f.lx[end] = yc * f.dinv[ci]
			f.d[c] -= yc * f.lx[end]
			next[ci]++
			yVals[ci] = 0
			marked[ci] = false
		}

		if f.d[c] == 0 {
			return positive, fmt.Errorf("%w: zero pivot at column %d", ErrFactorization, c)
		}
		if f.d[c] > 0 {
			positive++
		}
		f.dinv[c] = 1 / f.d[c]
	}
	return positive, nil
}

// solve overwrites x with (LDLᵀ)⁻¹x.
func (f *ldl) solve(x []float64) {
	n := f.n
	for i := 0; i < n; i++ {
		xi := x[i]
		if xi == 0 {
			continue
		}
		for j := f.lp[i]; j < f.lp[i+1]; j++ {
			x[f.li[j]] -= f.lx[j] * xi
		}
	}
	for i := 0; i < n; i++ {
		x[i] *= f.dinv[i]
	}
	for i := n - 1; i >= 0; i-- {
		s := x[i]
		for j := f.lp[i]; j < f.lp[i+1]; j++ {
			s -= f.lx[j] * x[f.li[j]]
		}
		x[i] = s
	}
}
