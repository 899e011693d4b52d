// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sparse implements the compressed sparse column storage used to
// describe cone program data.
package sparse

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidMatrix is returned when a matrix violates the compressed column layout.
var ErrInvalidMatrix = errors.New("sparse: invalid matrix")

// CSC is a matrix in compressed sparse column format.
//
// The row indices of column j are stored in I[P[j]:P[j+1]] in strictly
// increasing order and the matching values in X[P[j]:P[j+1]].
type CSC struct {
	M int       `yaml:"m"` // rows
	N int       `yaml:"n"` // columns
	P []int     `yaml:"p"` // column pointers (N+1)
	I []int     `yaml:"i"` // row indices (nnz)
	X []float64 `yaml:"x"` // values (nnz)
}

// New creates a CSC matrix from raw arrays and validates its layout.
// The arrays are not copied.
func New(m, n int, p, i []int, x []float64) (*CSC, error) {
	a := &CSC{M: m, N: n, P: p, I: i, X: x}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Zeros creates an m×n matrix without any stored entry.
func Zeros(m, n int) *CSC {
	return &CSC{M: m, N: n, P: make([]int, n+1)}
}

// NNZ returns the number of stored entries.
func (a *CSC) NNZ() int {
	if a == nil || len(a.P) == 0 {
		return 0
	}
	return a.P[a.N]
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidMatrix, fmt.Sprintf(format, args...))
}

// Validate checks dimensions, pointer monotonicity and strictly increasing row indices.
func (a *CSC) Validate() error {
	switch {
	case a == nil:
		return invalid("nil matrix")
	case a.M < 0 || a.N < 0:
		return invalid("negative dimension %dx%d", a.M, a.N)
	case len(a.P) != a.N+1:
		return invalid("column pointer length %d, expected %d", len(a.P), a.N+1)
	case a.P[0] != 0:
		return invalid("first column pointer must be zero")
	}
	nnz := a.P[a.N]
	if len(a.I) < nnz || len(a.X) < nnz {
		return invalid("index/value arrays shorter than nnz %d", nnz)
	}
	for j := 0; j < a.N; j++ {
		if a.P[j+1] < a.P[j] {
			return invalid("column pointers decrease at column %d", j)
		}
		last := -1
		for k := a.P[j]; k < a.P[j+1]; k++ {
			r := a.I[k]
			if r < 0 || r >= a.M {
				return invalid("row index %d out of range in column %d", r, j)
			}
			if r <= last {
				return invalid("row indices not strictly increasing in column %d", j)
			}
			last = r
		}
	}
	return nil
}

// ValidateUpper additionally checks that a is square and stores only its upper triangle.
func (a *CSC) ValidateUpper() error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.M != a.N {
		return invalid("symmetric matrix must be square, got %dx%d", a.M, a.N)
	}
	for j := 0; j < a.N; j++ {
		for k := a.P[j]; k < a.P[j+1]; k++ {
			if a.I[k] > j {
				return invalid("entry (%d,%d) below the diagonal", a.I[k], j)
			}
		}
	}
	return nil
}

// Clone returns a deep copy trimmed to the stored entries.
func (a *CSC) Clone() *CSC {
	if a == nil {
		return nil
	}
	nnz := a.NNZ()
	return &CSC{
		M: a.M, N: a.N,
		P: append([]int(nil), a.P...),
		I: append([]int(nil), a.I[:nnz]...),
		X: append([]float64(nil), a.X[:nnz]...),
	}
}

// Transpose returns Aᵀ in CSC format with sorted row indices.
func (a *CSC) Transpose() *CSC {
	nnz := a.NNZ()
	t := &CSC{M: a.N, N: a.M, P: make([]int, a.M+1), I: make([]int, nnz), X: make([]float64, nnz)}
	for k := 0; k < nnz; k++ {
		t.P[a.I[k]+1]++
	}
	for i := 0; i < a.M; i++ {
		t.P[i+1] += t.P[i]
	}
	next := append([]int(nil), t.P[:a.M]...)
	for j := 0; j < a.N; j++ {
		for k := a.P[j]; k < a.P[j+1]; k++ {
			q := next[a.I[k]]
			next[a.I[k]]++
			t.I[q] = j
			t.X[q] = a.X[k]
		}
	}
	return t
}

// FromDense builds a CSC matrix from row-major dense rows, dropping exact zeros.
func FromDense(rows [][]float64) *CSC {
	m := len(rows)
	n := 0
	if m > 0 {
		n = len(rows[0])
	}
	a := &CSC{M: m, N: n, P: make([]int, n+1)}
	for j := 0; j < n; j++ {
		for i := 0; i < m; i++ {
			if v := rows[i][j]; v != 0 {
				a.I = append(a.I, i)
				a.X = append(a.X, v)
			}
		}
		a.P[j+1] = len(a.I)
	}
	return a
}

// UpperFromDense builds the upper triangle of a symmetric dense matrix.
func UpperFromDense(rows [][]float64) *CSC {
	n := len(rows)
	a := &CSC{M: n, N: n, P: make([]int, n+1)}
	for j := 0; j < n; j++ {
		for i := 0; i <= j; i++ {
			if v := rows[i][j]; v != 0 {
				a.I = append(a.I, i)
				a.X = append(a.X, v)
			}
		}
		a.P[j+1] = len(a.I)
	}
	return a
}

// FromTriplets builds an m×n matrix from coordinate entries, summing duplicates.
func FromTriplets(m, n int, rows, cols []int, vals []float64) (*CSC, error) {
	if len(rows) != len(cols) || len(rows) != len(vals) {
		return nil, invalid("triplet arrays differ in length")
	}
	order := make([]int, len(rows))
	for k := range order {
		if rows[k] < 0 || rows[k] >= m || cols[k] < 0 || cols[k] >= n {
			return nil, invalid("triplet (%d,%d) out of range", rows[k], cols[k])
		}
		order[k] = k
	}
	sort.Slice(order, func(p, q int) bool {
		a, b := order[p], order[q]
		if cols[a] != cols[b] {
			return cols[a] < cols[b]
		}
		return rows[a] < rows[b]
	})
	a := &CSC{M: m, N: n, P: make([]int, n+1)}
	prevRow, prevCol := -1, -1
	for _, k := range order {
		r, c := rows[k], cols[k]
		if r == prevRow && c == prevCol {
			a.X[len(a.X)-1] += vals[k]
			continue
		}
		a.I = append(a.I, r)
		a.X = append(a.X, vals[k])
		a.P[c+1]++
		prevRow, prevCol = r, c
	}
	for j := 0; j < n; j++ {
		a.P[j+1] += a.P[j]
	}
	return a, nil
}

// Dense expands a into row-major rows.
func (a *CSC) Dense() [][]float64 {
	d := make([][]float64, a.M)
	for i := range d {
		d[i] = make([]float64, a.N)
	}
	for j := 0; j < a.N; j++ {
		for k := a.P[j]; k < a.P[j+1]; k++ {
			d[a.I[k]][j] += a.X[k]
		}
	}
	return d
}
